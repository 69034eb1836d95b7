package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dwctl-io/dwctl/internal/logging"
	"github.com/dwctl-io/dwctl/internal/topology"
)

// Artifact is a local file staged into a bucket right after creation
// (the Glue script and the Lambda deployment archives).
type Artifact struct {
	LocalPath string
	Key       string
}

// BucketService provisions one S3 bucket. Bucket names are globally unique,
// so create tolerates BucketAlreadyOwnedByYou.
type BucketService struct {
	client    *Client
	name      string
	artifacts []Artifact

	desc *topology.Descriptor
}

// NewBucket returns a bucket wrapper; artifacts are uploaded on Create.
func NewBucket(client *Client, name string, artifacts ...Artifact) *BucketService {
	return &BucketService{client: client, name: name, artifacts: artifacts}
}

func (s *BucketService) Kind() topology.Kind { return topology.KindBucket }
func (s *BucketService) Name() string        { return s.name }

// ARN returns the bucket ARN (deterministic from the name).
func (s *BucketService) ARN() string {
	return fmt.Sprintf("arn:aws:s3:::%s", s.name)
}

// Create makes the bucket in the session region and stages the configured
// artifacts. A missing artifact file is logged and skipped; the deployment
// archives are produced by the build script and may be absent in a checkout
// that never ran it.
func (s *BucketService) Create(ctx context.Context) (*topology.Descriptor, error) {
	input := &s3.CreateBucketInput{Bucket: awssdk.String(s.name)}
	// us-east-1 is the default location and rejects an explicit constraint.
	if s.client.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.client.Region),
		}
	}

	if _, err := s.client.s3Client.CreateBucket(ctx, input); err != nil && !IsAlreadyExists(err) {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: s.name, ARN: s.ARN()}

	for _, a := range s.artifacts {
		if _, err := os.Stat(a.LocalPath); err != nil {
			logging.Warn("artifact missing, skipping upload", "bucket", s.name, "path", a.LocalPath)
			continue
		}
		if err := s.Upload(ctx, a.LocalPath, a.Key); err != nil {
			return d, err
		}
		logging.Info("uploaded artifact", "bucket", s.name, "key", a.Key)
	}

	s.desc = d
	return d, nil
}

// Upload stages a local file into the bucket under key.
func (s *BucketService) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := s.client.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: awssdk.String(s.name),
		Key:    awssdk.String(key),
		Body:   f,
	}); err != nil {
		return opErr(s.Kind(), s.name, "upload "+filepath.Base(localPath)+" to", err)
	}
	return nil
}

// NotifyLambda points the bucket's ObjectCreated events at a Lambda
// function, filtered by key suffix and optional prefix. The invoke
// permission must already be in place.
func (s *BucketService) NotifyLambda(ctx context.Context, functionARN, suffix, prefix string) error {
	rules := []s3types.FilterRule{{
		Name:  s3types.FilterRuleNameSuffix,
		Value: awssdk.String(suffix),
	}}
	if prefix != "" {
		rules = append(rules, s3types.FilterRule{
			Name:  s3types.FilterRuleNamePrefix,
			Value: awssdk.String(prefix),
		})
	}

	_, err := s.client.s3Client.PutBucketNotificationConfiguration(ctx, &s3.PutBucketNotificationConfigurationInput{
		Bucket: awssdk.String(s.name),
		NotificationConfiguration: &s3types.NotificationConfiguration{
			LambdaFunctionConfigurations: []s3types.LambdaFunctionConfiguration{{
				LambdaFunctionArn: awssdk.String(functionARN),
				Events:            []s3types.Event{"s3:ObjectCreated:*"},
				Filter: &s3types.NotificationConfigurationFilter{
					Key: &s3types.S3KeyFilter{FilterRules: rules},
				},
			}},
		},
	})
	if err != nil {
		return opErr(s.Kind(), s.name, "configure notification on", err)
	}
	return nil
}

// Delete empties the bucket and removes it. A bucket already gone counts as
// deleted; S3 refuses to delete non-empty buckets, so objects go first.
func (s *BucketService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if err := s.empty(ctx); err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}

	if _, err := s.client.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: awssdk.String(s.name),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}

func (s *BucketService) empty(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(s.client.s3Client, &s3.ListObjectsV2Input{
		Bucket: awssdk.String(s.name),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return opErr(s.Kind(), s.name, "list objects of", err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		objects := make([]s3types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, s3types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := s.client.s3Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: awssdk.String(s.name),
			Delete: &s3types.Delete{Objects: objects, Quiet: awssdk.Bool(true)},
		}); err != nil {
			return opErr(s.Kind(), s.name, "empty", err)
		}
	}
	return nil
}
