package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/dwctl-io/dwctl/internal/topology"
)

// SecretService provisions the warehouse connection secret. It is created
// with a placeholder before the Lambda functions (which only receive its
// ARN) and filled with the real endpoint and credentials once the DB
// instance reports available.
type SecretService struct {
	client *Client
	name   string

	desc *topology.Descriptor
}

// NewSecret returns a secret wrapper.
func NewSecret(client *Client, name string) *SecretService {
	return &SecretService{client: client, name: name}
}

func (s *SecretService) Kind() topology.Kind { return topology.KindSecret }
func (s *SecretService) Name() string        { return s.name }

// ARN returns the created secret's ARN, or "" before Create.
func (s *SecretService) ARN() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.ARN
}

// Create makes the secret with an empty JSON document as placeholder.
func (s *SecretService) Create(ctx context.Context) (*topology.Descriptor, error) {
	resp, err := s.client.secretsClient.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         awssdk.String(s.name),
		Description:  awssdk.String("Connection details for the data warehouse"),
		SecretString: awssdk.String("{}"),
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: *resp.Name, ARN: *resp.ARN}
	s.desc = d
	return d, nil
}

// Put stores the payload as the secret's current value.
func (s *SecretService) Put(ctx context.Context, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal secret payload: %w", err)
	}
	if _, err := s.client.secretsClient.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     awssdk.String(s.name),
		SecretString: awssdk.String(string(body)),
	}); err != nil {
		return opErr(s.Kind(), s.name, "store value of", err)
	}
	return nil
}

// Delete removes the secret immediately; the default recovery window would
// block re-provisioning under the same name.
func (s *SecretService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if _, err := s.client.secretsClient.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   awssdk.String(s.name),
		ForceDeleteWithoutRecovery: awssdk.Bool(true),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}
