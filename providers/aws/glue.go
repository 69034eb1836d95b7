package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"

	"github.com/dwctl-io/dwctl/internal/topology"
)

// GlueJobService provisions the managed ETL job. The transform itself is the
// static PySpark script staged into the script bucket; this wrapper only
// registers the job definition pointing at it.
type GlueJobService struct {
	client         *Client
	name           string
	role           *RoleService
	scriptLocation string
	defaultArgs    map[string]string

	desc *topology.Descriptor
}

// NewGlueJob returns a Glue job wrapper. scriptLocation is the
// s3://bucket/key path of the ETL script; defaultArgs become the job's
// default arguments (source/sink bucket names and paths).
func NewGlueJob(client *Client, name string, role *RoleService, scriptLocation string, defaultArgs map[string]string) *GlueJobService {
	return &GlueJobService{
		client:         client,
		name:           name,
		role:           role,
		scriptLocation: scriptLocation,
		defaultArgs:    defaultArgs,
	}
}

func (s *GlueJobService) Kind() topology.Kind { return topology.KindGlueJob }
func (s *GlueJobService) Name() string        { return s.name }

// Create registers the job definition.
func (s *GlueJobService) Create(ctx context.Context) (*topology.Descriptor, error) {
	args := map[string]string{
		"--job-language":        "python",
		"--job-bookmark-option": "job-bookmark-disable",
	}
	for k, v := range s.defaultArgs {
		args[k] = v
	}

	_, err := s.client.glueClient.CreateJob(ctx, &glue.CreateJobInput{
		Name:        awssdk.String(s.name),
		Description: awssdk.String("ETL process for the data warehouse"),
		Role:        awssdk.String(s.role.ARN()),
		Command: &gluetypes.JobCommand{
			Name:           awssdk.String("glueetl"),
			ScriptLocation: awssdk.String(s.scriptLocation),
			PythonVersion:  awssdk.String("3"),
		},
		DefaultArguments: args,
		ExecutionProperty: &gluetypes.ExecutionProperty{
			MaxConcurrentRuns: 2,
		},
		GlueVersion:     awssdk.String("4.0"),
		WorkerType:      gluetypes.WorkerTypeG1x,
		NumberOfWorkers: awssdk.Int32(2),
		Timeout:         awssdk.Int32(300),
	})
	if err != nil && !IsAlreadyExists(err) {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: s.name}
	s.desc = d
	return d, nil
}

// Delete removes the job definition; an absent job counts as deleted.
func (s *GlueJobService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if _, err := s.client.glueClient.DeleteJob(ctx, &glue.DeleteJobInput{
		JobName: awssdk.String(s.name),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}
