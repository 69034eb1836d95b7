// Package warehouse binds the AWS resource wrappers into the fixed
// data-warehouse topology: network, security group, IAM, buckets, Glue job,
// connection secret, trigger Lambdas and the RDS instance, in creation
// dependency order.
package warehouse

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dwctl-io/dwctl/internal/config"
	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/topology"
	"github.com/dwctl-io/dwctl/providers/aws"
)

// Resource names. Bucket names get the configured suffix appended because
// S3 names are globally unique.
const (
	NetworkName       = "data-warehouse-vpc"
	SecurityGroupName = "data-warehouse-sg"
	RDSName           = "data-warehouse"
	GlueJobName       = "etl-glue-job"
	GlueLambdaName    = "s3-to-glue-lambda"
	RDSLambdaName     = "s3-to-rds-lambda"
	SecretName        = "data-warehouse-connection"

	rawBucketPrefix       = "raw-data-bucket"
	processedBucketPrefix = "processed-data-bucket"
	scriptBucketPrefix    = "script-bucket"

	// DataObjectKey is where upload stages the CSV in the raw bucket; the
	// Glue job reads exactly this key.
	DataObjectKey = "emission_data.csv"
	// ProcessedPrefix is the folder the Glue job writes its output under.
	ProcessedPrefix = "processed_data"

	// DatabaseName is the initial database created on the RDS instance.
	DatabaseName = "greenhouse_gas_emissions"

	defaultNameSuffix = "1405480"
	numSubnets        = 2

	etlScriptKey         = "etl_process.py"
	glueTriggerZipKey    = "gluetrigger.zip"
	warehouseLoadZipKey  = "warehouseloader.zip"
	securityGroupRules   = "security_groups/rds_security_group.json"
	glueJobPolicyDoc     = "iam/glue_job_policy.json"
	glueLambdaPolicyDoc  = "iam/lambda_s3_to_glue_policy.json"
	rdsLambdaPolicyDoc   = "iam/lambda_s3_to_rds_policy.json"
)

// Paths locates the static inputs of the blueprint.
type Paths struct {
	// ConfigDir holds the IAM policy documents and security group rules.
	ConfigDir string
	// AssetsDir holds the Glue ETL script.
	AssetsDir string
	// DistDir holds the Lambda deployment archives produced by the build
	// script.
	DistDir string
}

// DefaultPaths matches the repository layout.
func DefaultPaths() Paths {
	return Paths{ConfigDir: "configs", AssetsDir: "assets", DistDir: "dist"}
}

// Blueprint is the assembled topology: the ordered steps, the raw bucket
// (the upload target) and the hook that fills the connection secret once the
// DB instance is available.
type Blueprint struct {
	Steps     []orchestrator.Step
	RawBucket *aws.BucketService
	ReadyHook orchestrator.ReadyHook
}

// Build wires the wrappers together in dependency order. Deletion walks the
// same list strictly reversed.
func Build(client *aws.Client, settings *config.Settings, paths Paths) *Blueprint {
	suffix := settings.NameSuffix
	if suffix == "" {
		suffix = defaultNameSuffix
	}
	rawBucketName := fmt.Sprintf("%s-%s", rawBucketPrefix, suffix)
	processedBucketName := fmt.Sprintf("%s-%s", processedBucketPrefix, suffix)
	scriptBucketName := fmt.Sprintf("%s-%s", scriptBucketPrefix, suffix)

	network := aws.NewNetwork(client, NetworkName, numSubnets)

	securityGroup := aws.NewSecurityGroup(client, SecurityGroupName,
		"Security group for the data-warehouse RDS instance",
		filepath.Join(paths.ConfigDir, securityGroupRules), network)

	glueJobPolicy := aws.NewPolicy(client, GlueJobName+"-policy",
		filepath.Join(paths.ConfigDir, glueJobPolicyDoc))
	glueLambdaPolicy := aws.NewPolicy(client, GlueLambdaName+"-policy",
		filepath.Join(paths.ConfigDir, glueLambdaPolicyDoc))
	rdsLambdaPolicy := aws.NewPolicy(client, RDSLambdaName+"-policy",
		filepath.Join(paths.ConfigDir, rdsLambdaPolicyDoc))

	glueJobRole := aws.NewRole(client, GlueJobName+"-role", "glue.amazonaws.com", glueJobPolicy)
	glueLambdaRole := aws.NewRole(client, GlueLambdaName+"-role", "lambda.amazonaws.com", glueLambdaPolicy)
	rdsLambdaRole := aws.NewRole(client, RDSLambdaName+"-role", "lambda.amazonaws.com", rdsLambdaPolicy)

	scriptBucket := aws.NewBucket(client, scriptBucketName,
		aws.Artifact{LocalPath: filepath.Join(paths.AssetsDir, etlScriptKey), Key: etlScriptKey},
		aws.Artifact{LocalPath: filepath.Join(paths.DistDir, glueTriggerZipKey), Key: glueTriggerZipKey},
		aws.Artifact{LocalPath: filepath.Join(paths.DistDir, warehouseLoadZipKey), Key: warehouseLoadZipKey},
	)
	rawBucket := aws.NewBucket(client, rawBucketName)
	processedBucket := aws.NewBucket(client, processedBucketName)

	glueJob := aws.NewGlueJob(client, GlueJobName, glueJobRole,
		fmt.Sprintf("s3://%s/%s", scriptBucketName, etlScriptKey),
		map[string]string{
			"--SOURCE_BUCKET_NAME": rawBucketName,
			"--SINK_BUCKET_NAME":   processedBucketName,
			"--SOURCE_FILEPATH":    DataObjectKey,
			"--OUTPUT_FOLDER_NAME": ProcessedPrefix,
		})

	secret := aws.NewSecret(client, SecretName)

	glueLambda := aws.NewFunction(client, GlueLambdaName, glueLambdaRole,
		scriptBucket, glueTriggerZipKey,
		rawBucket, ".csv", "",
		func() map[string]string {
			return map[string]string{"JOB_NAME": GlueJobName}
		})

	rdsLambda := aws.NewFunction(client, RDSLambdaName, rdsLambdaRole,
		scriptBucket, warehouseLoadZipKey,
		processedBucket, ".csv", ProcessedPrefix,
		func() map[string]string {
			return map[string]string{
				"SECRET_ARN":  secret.ARN(),
				"BUCKET_NAME": processedBucketName,
				"OUTPUT_PATH": ProcessedPrefix,
			}
		})

	dbInstance := aws.NewDBInstance(client, RDSName, DatabaseName,
		settings.DBUsername, settings.DBPassword, securityGroup, network)

	steps := []orchestrator.Step{
		network,
		securityGroup,
		glueJobPolicy, glueLambdaPolicy, rdsLambdaPolicy,
		glueJobRole, glueLambdaRole, rdsLambdaRole,
		scriptBucket, rawBucket, processedBucket,
		glueJob,
		secret,
		glueLambda, rdsLambda,
		dbInstance,
	}

	readyHook := func(ctx context.Context, topo *topology.Topology) error {
		db := topo.Find(topology.KindDBInstance, RDSName)
		if db == nil || db.Endpoint == "" {
			return fmt.Errorf("DB instance endpoint unknown; cannot fill connection secret")
		}
		return secret.Put(ctx, map[string]string{
			"host":     db.Endpoint,
			"port":     db.Attr("port"),
			"dbname":   DatabaseName,
			"username": settings.DBUsername,
			"password": settings.DBPassword,
		})
	}

	return &Blueprint{
		Steps:     steps,
		RawBucket: rawBucket,
		ReadyHook: readyHook,
	}
}
