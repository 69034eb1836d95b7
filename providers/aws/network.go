package aws

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/dwctl-io/dwctl/internal/topology"
)

const vpcCidrBlock = "10.0.0.0/16"

// Descriptor attribute keys for the network resource.
const (
	attrSubnetIDs     = "subnetIds"
	attrIGWID         = "internetGatewayId"
	attrRouteTableID  = "routeTableId"
	attrDBSubnetGroup = "dbSubnetGroup"
)

// NetworkService provisions the VPC scaffolding the warehouse lives in: a
// VPC, subnets spread across availability zones (multi-AZ RDS requires at
// least two), an internet gateway with a default route, and the DB subnet
// group referencing the subnets.
type NetworkService struct {
	client     *Client
	name       string
	numSubnets int

	desc *topology.Descriptor
}

// NewNetwork returns a network wrapper creating numSubnets subnets.
func NewNetwork(client *Client, name string, numSubnets int) *NetworkService {
	return &NetworkService{client: client, name: name, numSubnets: numSubnets}
}

func (s *NetworkService) Kind() topology.Kind { return topology.KindNetwork }
func (s *NetworkService) Name() string        { return s.name }

// VpcID returns the created VPC's identifier, or "" before Create.
func (s *NetworkService) VpcID() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.ID
}

// DBSubnetGroup returns the created DB subnet group name, or "" before Create.
func (s *NetworkService) DBSubnetGroup() string {
	if s.desc == nil {
		return ""
	}
	return s.desc.Attr(attrDBSubnetGroup)
}

// Create builds the VPC, its subnets, routing and the DB subnet group. The
// subnets are distributed over distinct availability zones so the DB
// instance can run multi-AZ.
func (s *NetworkService) Create(ctx context.Context) (*topology.Descriptor, error) {
	vpcResp, err := s.client.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: awssdk.String(vpcCidrBlock),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeVpc,
			Tags:         []ec2types.Tag{{Key: awssdk.String("Name"), Value: awssdk.String(s.name)}},
		}},
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}
	vpcID := *vpcResp.Vpc.VpcId

	d := &topology.Descriptor{Kind: s.Kind(), Name: s.name, ID: vpcID}

	azResp, err := s.client.ec2Client.DescribeAvailabilityZones(ctx, &ec2.DescribeAvailabilityZonesInput{})
	if err != nil {
		return d, opErr(s.Kind(), s.name, "describe availability zones for", err)
	}
	if len(azResp.AvailabilityZones) < 2 {
		return d, fmt.Errorf("region %s has fewer than two availability zones; multi-AZ deployment impossible", s.client.Region)
	}

	var subnetIDs []string
	for i := 0; i < s.numSubnets; i++ {
		az := azResp.AvailabilityZones[i%len(azResp.AvailabilityZones)]
		subnetResp, err := s.client.ec2Client.CreateSubnet(ctx, &ec2.CreateSubnetInput{
			VpcId:            awssdk.String(vpcID),
			AvailabilityZone: az.ZoneName,
			CidrBlock:        awssdk.String(fmt.Sprintf("10.0.%d.0/24", i+1)),
		})
		if err != nil {
			return d, opErr(s.Kind(), s.name, "create subnet for", err)
		}
		subnetIDs = append(subnetIDs, *subnetResp.Subnet.SubnetId)
	}
	d.SetAttr(attrSubnetIDs, strings.Join(subnetIDs, ","))

	igwResp, err := s.client.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{})
	if err != nil {
		return d, opErr(s.Kind(), s.name, "create internet gateway for", err)
	}
	igwID := *igwResp.InternetGateway.InternetGatewayId
	d.SetAttr(attrIGWID, igwID)

	if _, err := s.client.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: awssdk.String(igwID),
		VpcId:             awssdk.String(vpcID),
	}); err != nil {
		return d, opErr(s.Kind(), s.name, "attach internet gateway for", err)
	}

	rtResp, err := s.client.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId: awssdk.String(vpcID),
	})
	if err != nil {
		return d, opErr(s.Kind(), s.name, "create route table for", err)
	}
	rtID := *rtResp.RouteTable.RouteTableId
	d.SetAttr(attrRouteTableID, rtID)

	if _, err := s.client.ec2Client.CreateRoute(ctx, &ec2.CreateRouteInput{
		RouteTableId:         awssdk.String(rtID),
		DestinationCidrBlock: awssdk.String("0.0.0.0/0"),
		GatewayId:            awssdk.String(igwID),
	}); err != nil {
		return d, opErr(s.Kind(), s.name, "create default route for", err)
	}

	for _, subnetID := range subnetIDs {
		if _, err := s.client.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
			RouteTableId: awssdk.String(rtID),
			SubnetId:     awssdk.String(subnetID),
		}); err != nil {
			return d, opErr(s.Kind(), s.name, "associate route table for", err)
		}
	}

	groupName := s.name + "-subnet-group"
	if _, err := s.client.rdsClient.CreateDBSubnetGroup(ctx, &rds.CreateDBSubnetGroupInput{
		DBSubnetGroupName:        awssdk.String(groupName),
		DBSubnetGroupDescription: awssdk.String("DB subnet group for the data warehouse"),
		SubnetIds:                subnetIDs,
	}); err != nil && !IsAlreadyExists(err) {
		return d, opErr(s.Kind(), s.name, "create DB subnet group for", err)
	}
	d.SetAttr(attrDBSubnetGroup, groupName)

	s.desc = d
	return d, nil
}

// Delete removes the network pieces in reverse order of creation. Pieces
// already gone are skipped; pieces still referenced surface a dependency
// error for the orchestrator to requeue.
func (s *NetworkService) Delete(ctx context.Context, d *topology.Descriptor) error {
	if group := d.Attr(attrDBSubnetGroup); group != "" {
		if _, err := s.client.rdsClient.DeleteDBSubnetGroup(ctx, &rds.DeleteDBSubnetGroupInput{
			DBSubnetGroupName: awssdk.String(group),
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "delete DB subnet group of", err)
		}
	}

	for _, subnetID := range splitIDs(d.Attr(attrSubnetIDs)) {
		if _, err := s.client.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{
			SubnetId: awssdk.String(subnetID),
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "delete subnet of", err)
		}
	}

	if igwID := d.Attr(attrIGWID); igwID != "" {
		if _, err := s.client.ec2Client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
			InternetGatewayId: awssdk.String(igwID),
			VpcId:             awssdk.String(d.ID),
		}); err != nil && !IsNotFound(err) && errCode(err) != "Gateway.NotAttached" {
			return opErr(s.Kind(), s.name, "detach internet gateway of", err)
		}
		if _, err := s.client.ec2Client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
			InternetGatewayId: awssdk.String(igwID),
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "delete internet gateway of", err)
		}
	}

	if rtID := d.Attr(attrRouteTableID); rtID != "" {
		if _, err := s.client.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{
			RouteTableId: awssdk.String(rtID),
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "delete route table of", err)
		}
	}

	if d.ID != "" {
		if _, err := s.client.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{
			VpcId: awssdk.String(d.ID),
		}); err != nil && !IsNotFound(err) {
			return opErr(s.Kind(), s.name, "delete", err)
		}
	}
	return nil
}

func splitIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
