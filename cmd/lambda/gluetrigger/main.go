// The gluetrigger Lambda starts the ETL Glue job whenever a CSV object lands
// in the raw-data bucket.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"
)

var glueClient *glue.Client

func init() {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic(fmt.Sprintf("failed to load AWS config: %v", err))
	}
	glueClient = glue.NewFromConfig(cfg)
}

func handler(ctx context.Context, event events.S3Event) error {
	jobName := os.Getenv("JOB_NAME")
	if jobName == "" {
		return fmt.Errorf("JOB_NAME environment variable not set")
	}

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		log.Printf("object s3://%s/%s arrived, starting job %s", bucket, key, jobName)

		out, err := glueClient.StartJobRun(ctx, &glue.StartJobRunInput{
			JobName: &jobName,
		})
		if err != nil {
			return fmt.Errorf("failed to start job %s: %w", jobName, err)
		}
		log.Printf("started job run %s", *out.JobRunId)
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
