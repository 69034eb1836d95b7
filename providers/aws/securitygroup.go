package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/dwctl-io/dwctl/internal/topology"
)

// SecurityGroupRule is one entry of the static rules document. Direction is
// "inbound" or "outbound".
type SecurityGroupRule struct {
	Direction  string   `json:"direction"`
	Protocol   string   `json:"protocol"`
	FromPort   int32    `json:"fromPort"`
	ToPort     int32    `json:"toPort"`
	CidrBlocks []string `json:"cidrBlocks"`
}

// SecurityGroupService provisions the security group guarding the DB
// instance, with rules loaded from a static JSON document.
type SecurityGroupService struct {
	client      *Client
	name        string
	description string
	rulesPath   string
	network     *NetworkService

	desc *topology.Descriptor
}

// NewSecurityGroup returns a security-group wrapper. rulesPath may be empty,
// in which case the group is created without extra rules.
func NewSecurityGroup(client *Client, name, description, rulesPath string, network *NetworkService) *SecurityGroupService {
	return &SecurityGroupService{
		client:      client,
		name:        name,
		description: description,
		rulesPath:   rulesPath,
		network:     network,
	}
}

func (s *SecurityGroupService) Kind() topology.Kind { return topology.KindSecurityGroup }
func (s *SecurityGroupService) Name() string        { return s.name }

// GroupID returns the created group's identifier, or "" before Create.
func (s *SecurityGroupService) GroupID() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.ID
}

// Create makes the group inside the blueprint's VPC and attaches the rules
// from the rules document.
func (s *SecurityGroupService) Create(ctx context.Context) (*topology.Descriptor, error) {
	vpcID := s.network.VpcID()
	if vpcID == "" {
		return nil, fmt.Errorf("security group %q: network has not been created yet", s.name)
	}

	resp, err := s.client.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   awssdk.String(s.name),
		Description: awssdk.String(s.description),
		VpcId:       awssdk.String(vpcID),
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}
	groupID := *resp.GroupId

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: groupID}

	if s.rulesPath != "" {
		rules, err := loadSecurityGroupRules(s.rulesPath)
		if err != nil {
			return d, err
		}
		for _, rule := range rules {
			if err := s.authorize(ctx, groupID, rule); err != nil {
				return d, err
			}
		}
	}

	s.desc = d
	return d, nil
}

func (s *SecurityGroupService) authorize(ctx context.Context, groupID string, rule SecurityGroupRule) error {
	ranges := make([]ec2types.IpRange, 0, len(rule.CidrBlocks))
	for _, cidr := range rule.CidrBlocks {
		ranges = append(ranges, ec2types.IpRange{CidrIp: awssdk.String(cidr)})
	}
	perm := ec2types.IpPermission{
		IpProtocol: awssdk.String(rule.Protocol),
		FromPort:   awssdk.Int32(rule.FromPort),
		ToPort:     awssdk.Int32(rule.ToPort),
		IpRanges:   ranges,
	}

	var err error
	switch rule.Direction {
	case "inbound":
		_, err = s.client.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       awssdk.String(groupID),
			IpPermissions: []ec2types.IpPermission{perm},
		})
	case "outbound":
		_, err = s.client.ec2Client.AuthorizeSecurityGroupEgress(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
			GroupId:       awssdk.String(groupID),
			IpPermissions: []ec2types.IpPermission{perm},
		})
	default:
		return fmt.Errorf("security group %q: unknown rule direction %q", s.name, rule.Direction)
	}
	if err != nil && !IsAlreadyExists(err) {
		return opErr(s.Kind(), s.name, "authorize rule on", err)
	}
	return nil
}

// Delete removes the group; a group already gone counts as deleted. A
// DependencyViolation (the DB instance still tearing down) is surfaced so
// the orchestrator retries on a later pass.
func (s *SecurityGroupService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if d.ID == "" {
		return nil
	}
	if _, err := s.client.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: awssdk.String(d.ID),
	}); err != nil && !IsNotFound(err) {
		return opErr(s.Kind(), s.name, "delete", err)
	}
	return nil
}

func loadSecurityGroupRules(path string) ([]SecurityGroupRule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read security group rules %s: %w", path, err)
	}
	var doc struct {
		Rules []SecurityGroupRule `json:"rules"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse security group rules %s: %w", path, err)
	}
	return doc.Rules, nil
}
