package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/topology"
)

// FunctionService provisions one Lambda function from a deployment archive
// staged in the script bucket, grants S3 permission to invoke it and points
// a trigger bucket's ObjectCreated events at it.
type FunctionService struct {
	client     *Client
	name       string
	role       *RoleService
	codeBucket *BucketService
	codeKey    string

	trigger       *BucketService
	triggerSuffix string
	triggerPrefix string

	// env is evaluated at Create time so values produced by earlier steps
	// (the connection secret's ARN) are available.
	env func() map[string]string

	desc *topology.Descriptor
}

// NewFunction returns a Lambda function wrapper. The archive at codeKey in
// codeBucket must contain a bootstrap binary for the provided.al2023 runtime.
func NewFunction(client *Client, name string, role *RoleService, codeBucket *BucketService, codeKey string,
	trigger *BucketService, triggerSuffix, triggerPrefix string, env func() map[string]string) *FunctionService {
	return &FunctionService{
		client:        client,
		name:          name,
		role:          role,
		codeBucket:    codeBucket,
		codeKey:       codeKey,
		trigger:       trigger,
		triggerSuffix: triggerSuffix,
		triggerPrefix: triggerPrefix,
		env:           env,
	}
}

func (s *FunctionService) Kind() topology.Kind { return topology.KindLambdaFunction }
func (s *FunctionService) Name() string        { return s.name }

// Create registers the function and wires the S3 trigger. A freshly created
// IAM role is eventually consistent, so creation is retried with backoff
// while Lambda reports the role as not assumable.
func (s *FunctionService) Create(ctx context.Context) (*topology.Descriptor, error) {
	var env map[string]string
	if s.env != nil {
		env = s.env()
	}

	input := &lambda.CreateFunctionInput{
		FunctionName: awssdk.String(s.name),
		Runtime:      lambdatypes.RuntimeProvidedal2023,
		Handler:      awssdk.String("bootstrap"),
		Role:         awssdk.String(s.role.ARN()),
		Code: &lambdatypes.FunctionCode{
			S3Bucket: awssdk.String(s.codeBucket.Name()),
			S3Key:    awssdk.String(s.codeKey),
		},
		Environment: &lambdatypes.Environment{Variables: env},
		Timeout:     awssdk.Int32(300),
		MemorySize:  awssdk.Int32(1024),
	}

	policy := &orchestrator.RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  2 * time.Second,
		MaxDelay:   20 * time.Second,
	}
	var resp *lambda.CreateFunctionOutput
	err := orchestrator.RetryWithBackoff(ctx, policy, func() error {
		var createErr error
		resp, createErr = s.client.lambdaClient.CreateFunction(ctx, input)
		return createErr
	}, func(err error) bool {
		// Role propagation delay surfaces as InvalidParameterValueException.
		return errCode(err) == "InvalidParameterValueException" || orchestrator.IsTransientError(err)
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: s.name, ARN: *resp.FunctionArn}

	if s.trigger != nil {
		statementID := fmt.Sprintf("%s-s3-invoke", s.name)
		if _, err := s.client.lambdaClient.AddPermission(ctx, &lambda.AddPermissionInput{
			FunctionName:  awssdk.String(s.name),
			StatementId:   awssdk.String(statementID),
			Action:        awssdk.String("lambda:InvokeFunction"),
			Principal:     awssdk.String("s3.amazonaws.com"),
			SourceArn:     awssdk.String(s.trigger.ARN()),
			SourceAccount: awssdk.String(s.client.AccountID),
		}); err != nil && !IsAlreadyExists(err) {
			return d, opErr(s.Kind(), s.name, "grant invoke permission on", err)
		}

		if err := s.trigger.NotifyLambda(ctx, d.ARN, s.triggerSuffix, s.triggerPrefix); err != nil {
			return d, err
		}
	}

	s.desc = d
	return d, nil
}

// Delete removes the function; an absent function counts as deleted. The S3
// notification configuration dies with the trigger bucket.
func (s *FunctionService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if _, err := s.client.lambdaClient.DeleteFunction(ctx, &lambda.DeleteFunctionInput{
		FunctionName: awssdk.String(s.name),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}
