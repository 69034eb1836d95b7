// The warehouseloader Lambda imports processed CSV objects into the RDS
// warehouse using the aws_s3 extension. Connection details come from the
// topology's connection secret.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/jackc/pgx/v5"
)

var (
	secretsClient *secretsmanager.Client
	region        string
)

func init() {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic(fmt.Sprintf("failed to load AWS config: %v", err))
	}
	secretsClient = secretsmanager.NewFromConfig(cfg)
	region = cfg.Region
}

type connectionSecret struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	DBName   string `json:"dbname"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func loadSecret(ctx context.Context) (*connectionSecret, error) {
	arn := os.Getenv("SECRET_ARN")
	if arn == "" {
		return nil, fmt.Errorf("SECRET_ARN environment variable not set")
	}
	out, err := secretsClient.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: awssdk.String(arn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read connection secret: %w", err)
	}

	var s connectionSecret
	if err := json.Unmarshal([]byte(awssdk.ToString(out.SecretString)), &s); err != nil {
		return nil, fmt.Errorf("failed to parse connection secret: %w", err)
	}
	return &s, nil
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS european_ghg_projections (
	Country VARCHAR,
	Year INTEGER,
	Scenario VARCHAR,
	Category VARCHAR,
	Gas VARCHAR,
	ReportedValue FLOAT,
	Unit VARCHAR
)`

func handler(ctx context.Context, event events.S3Event) error {
	secret, err := loadSecret(ctx)
	if err != nil {
		return err
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(secret.Username), url.QueryEscape(secret.Password),
		secret.Host, secret.Port, secret.DBName)
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	defer conn.Close(ctx)

	// aws_s3 pulls in aws_commons.
	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS aws_s3 CASCADE"); err != nil {
		return fmt.Errorf("failed to enable aws_s3 extension: %w", err)
	}
	if _, err := conn.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create target table: %w", err)
	}

	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if !strings.HasSuffix(key, ".csv") {
			log.Printf("skipping non-CSV object s3://%s/%s", bucket, key)
			continue
		}

		log.Printf("importing s3://%s/%s", bucket, key)
		_, err := conn.Exec(ctx,
			`SELECT aws_s3.table_import_from_s3(
				'european_ghg_projections', '', '(format csv, header true)',
				aws_commons.create_s3_uri($1, $2, $3))`,
			bucket, key, region)
		if err != nil {
			return fmt.Errorf("failed to import s3://%s/%s: %w", bucket, key, err)
		}
	}
	return nil
}

func main() {
	lambda.Start(handler)
}
