// Package aws wraps the AWS services that make up the data-warehouse
// topology. Each file holds one adapter exposing create/describe/delete
// operations over the corresponding SDK client, with uniform error
// translation via OpError.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	appconfig "github.com/dwctl-io/dwctl/internal/config"
)

// Client bundles the per-service SDK clients plus the account identity
// resolved at startup.
type Client struct {
	Region    string
	AccountID string

	s3Client      *s3.Client
	ec2Client     *ec2.Client
	iamClient     *iam.Client
	glueClient    *glue.Client
	lambdaClient  *lambda.Client
	rdsClient     *rds.Client
	secretsClient *secretsmanager.Client
}

// New builds the client bundle from the static credentials in the settings
// file and verifies them with a caller-identity lookup. Bad credentials fail
// here, before any provisioning is attempted.
func New(ctx context.Context, settings *appconfig.Settings) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(settings.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	identity, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("could not connect to AWS; check the configured credentials: %w", err)
	}

	return &Client{
		Region:        settings.Region,
		AccountID:     *identity.Account,
		s3Client:      s3.NewFromConfig(cfg),
		ec2Client:     ec2.NewFromConfig(cfg),
		iamClient:     iam.NewFromConfig(cfg),
		glueClient:    glue.NewFromConfig(cfg),
		lambdaClient:  lambda.NewFromConfig(cfg),
		rdsClient:     rds.NewFromConfig(cfg),
		secretsClient: secretsmanager.NewFromConfig(cfg),
	}, nil
}
