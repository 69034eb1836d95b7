package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/dwctl-io/dwctl/internal/topology"
)

// PolicyService provisions an IAM policy from a static JSON document. The
// document may contain REGION and ACCOUNT_ID placeholders, substituted with
// the session's values so resource ARNs in the policy resolve correctly.
type PolicyService struct {
	client  *Client
	name    string
	docPath string

	desc *topology.Descriptor
}

// NewPolicy returns an IAM policy wrapper for the given document.
func NewPolicy(client *Client, name, docPath string) *PolicyService {
	return &PolicyService{client: client, name: name, docPath: docPath}
}

func (s *PolicyService) Kind() topology.Kind { return topology.KindIAMPolicy }
func (s *PolicyService) Name() string        { return s.name }

// ARN returns the created policy's ARN, or "" before Create.
func (s *PolicyService) ARN() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.ARN
}

// Create loads the policy document, substitutes placeholders and creates the
// policy. An already-existing policy of the same name is adopted.
func (s *PolicyService) Create(ctx context.Context) (*topology.Descriptor, error) {
	raw, err := os.ReadFile(s.docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy document %s: %w", s.docPath, err)
	}
	doc := string(raw)
	doc = strings.ReplaceAll(doc, "REGION", s.client.Region)
	doc = strings.ReplaceAll(doc, "ACCOUNT_ID", s.client.AccountID)

	resp, err := s.client.iamClient.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     awssdk.String(s.name),
		PolicyDocument: awssdk.String(doc),
	})
	if err != nil {
		if !IsAlreadyExists(err) {
			return nil, opErr(s.Kind(), s.name, "create", err)
		}
		// Adopt the existing policy; customer-managed policy ARNs are
		// deterministic.
		d := &topology.Descriptor{
			Kind: s.Kind(),
			Name: s.name,
			ARN:  fmt.Sprintf("arn:aws:iam::%s:policy/%s", s.client.AccountID, s.name),
		}
		s.desc = d
		return d, nil
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ARN: *resp.Policy.Arn}
	s.desc = d
	return d, nil
}

// Delete removes the policy; an absent policy counts as deleted. A
// DeleteConflict (still attached to a role) is surfaced for requeueing.
func (s *PolicyService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if d.ARN == "" {
		return nil
	}
	if _, err := s.client.iamClient.DeletePolicy(ctx, &iam.DeletePolicyInput{
		PolicyArn: awssdk.String(d.ARN),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}

// RoleService provisions an IAM role assumable by one AWS service principal
// (glue.amazonaws.com, lambda.amazonaws.com) with managed policies attached.
type RoleService struct {
	client    *Client
	name      string
	principal string
	policies  []*PolicyService

	desc *topology.Descriptor
}

// NewRole returns an IAM role wrapper trusting the given service principal.
func NewRole(client *Client, name, principal string, policies ...*PolicyService) *RoleService {
	return &RoleService{client: client, name: name, principal: principal, policies: policies}
}

func (s *RoleService) Kind() topology.Kind { return topology.KindIAMRole }
func (s *RoleService) Name() string        { return s.name }

// ARN returns the created role's ARN, or "" before Create.
func (s *RoleService) ARN() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.ARN
}

type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Action    string            `json:"Action"`
	Effect    string            `json:"Effect"`
	Principal map[string]string `json:"Principal"`
}

// Create makes the role and attaches its policies. The role descriptor
// records the attached policy ARNs so teardown can detach them even when
// resuming from persisted state.
func (s *RoleService) Create(ctx context.Context) (*topology.Descriptor, error) {
	trust, err := json.Marshal(policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Action:    "sts:AssumeRole",
			Effect:    "Allow",
			Principal: map[string]string{"Service": s.principal},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trust policy: %w", err)
	}

	resp, err := s.client.iamClient.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 awssdk.String(s.name),
		AssumeRolePolicyDocument: awssdk.String(string(trust)),
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ARN: *resp.Role.Arn}

	var attached []string
	for _, policy := range s.policies {
		arn := policy.ARN()
		if arn == "" {
			return d, fmt.Errorf("role %q: policy %q has not been created yet", s.name, policy.Name())
		}
		if _, err := s.client.iamClient.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  awssdk.String(s.name),
			PolicyArn: awssdk.String(arn),
		}); err != nil {
			return d, opErr(s.Kind(), s.name, "attach policy to", err)
		}
		attached = append(attached, arn)
	}
	d.SetAttr("policyArns", strings.Join(attached, ","))

	s.desc = d
	return d, nil
}

// Delete detaches whatever is attached and removes the role. It consults the
// live attachment list rather than the descriptor so it also works on roles
// that gained attachments out of band.
func (s *RoleService) Delete(ctx context.Context, d *topology.Descriptor) error {
	listResp, err := s.client.iamClient.ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
		RoleName: awssdk.String(s.name),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return opErr(s.Kind(), s.name, "list attachments of", err)
	}
	for _, p := range listResp.AttachedPolicies {
		if _, err := s.client.iamClient.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  awssdk.String(s.name),
			PolicyArn: p.PolicyArn,
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "detach policy from", err)
		}
	}

	if _, err := s.client.iamClient.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: awssdk.String(s.name),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}
