package aws

import (
	"context"
	"fmt"
	"strconv"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/dwctl-io/dwctl/internal/logging"
	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/topology"
)

// Descriptor attribute keys for the DB instance.
const (
	attrDBName = "dbName"
	attrDBPort = "port"
)

// DBInstanceService provisions the warehouse itself: a multi-AZ RDS Postgres
// instance inside the blueprint's DB subnet group, guarded by the security
// group. Creation returns quickly; availability takes minutes and is polled
// via WaitReady.
type DBInstanceService struct {
	client        *Client
	name          string
	dbName        string
	username      string
	password      string
	instanceClass string
	securityGroup *SecurityGroupService
	network       *NetworkService

	waitPolicy *WaitSettings

	desc *topology.Descriptor
}

// WaitSettings bounds the availability and deletion polls.
type WaitSettings struct {
	Ready   *orchestrator.WaitPolicy
	Deleted *orchestrator.WaitPolicy
}

// NewDBInstance returns an RDS instance wrapper. dbName is the initial
// database created on the instance.
func NewDBInstance(client *Client, name, dbName, username, password string,
	securityGroup *SecurityGroupService, network *NetworkService) *DBInstanceService {
	return &DBInstanceService{
		client:        client,
		name:          name,
		dbName:        dbName,
		username:      username,
		password:      password,
		instanceClass: "db.t3.micro",
		securityGroup: securityGroup,
		network:       network,
		waitPolicy: &WaitSettings{
			Ready:   orchestrator.DefaultWaitPolicy(),
			Deleted: &orchestrator.WaitPolicy{Interval: 30 * time.Second, Budget: 15 * time.Minute},
		},
	}
}

func (s *DBInstanceService) Kind() topology.Kind { return topology.KindDBInstance }
func (s *DBInstanceService) Name() string        { return s.name }

// Create fires the instance creation request. Readiness is handled
// separately by WaitReady.
func (s *DBInstanceService) Create(ctx context.Context) (*topology.Descriptor, error) {
	subnetGroup := s.network.DBSubnetGroup()
	if subnetGroup == "" {
		return nil, fmt.Errorf("DB instance %q: network has not been created yet", s.name)
	}
	groupID := s.securityGroup.GroupID()
	if groupID == "" {
		return nil, fmt.Errorf("DB instance %q: security group has not been created yet", s.name)
	}

	resp, err := s.client.rdsClient.CreateDBInstance(ctx, &rds.CreateDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(s.name),
		DBName:               awssdk.String(s.dbName),
		Engine:               awssdk.String("postgres"),
		DBInstanceClass:      awssdk.String(s.instanceClass),
		AllocatedStorage:     awssdk.Int32(20),
		StorageType:          awssdk.String("gp2"),
		MasterUsername:       awssdk.String(s.username),
		MasterUserPassword:   awssdk.String(s.password),
		VpcSecurityGroupIds:  []string{groupID},
		DBSubnetGroupName:    awssdk.String(subnetGroup),
		// Subnets span availability zones, so a standby replica with
		// automatic failover is possible.
		MultiAZ:            awssdk.Bool(true),
		PubliclyAccessible: awssdk.Bool(false),
	})
	if err != nil {
		return nil, opErr(s.Kind(), s.name, "create", err)
	}

	d := &topology.Descriptor{
		Kind: s.Kind(),
		Name: s.name,
		ID:   s.name,
		ARN:  *resp.DBInstance.DBInstanceArn,
	}
	d.SetAttr(attrDBName, s.dbName)

	s.desc = d
	return d, nil
}

// WaitReady polls the instance until it reports available, recording the
// endpoint on the descriptor. A terminal failure status aborts the wait.
func (s *DBInstanceService) WaitReady(ctx context.Context, d *topology.Descriptor) error {
	return orchestrator.WaitFor(ctx, s.waitPolicy.Ready, "DB instance "+s.name, func(ctx context.Context) (bool, error) {
		resp, err := s.client.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			DBInstanceIdentifier: awssdk.String(s.name),
		})
		if err != nil {
			if orchestrator.IsTransientError(err) {
				return false, nil
			}
			return false, opErr(s.Kind(), s.name, "describe", err)
		}
		if len(resp.DBInstances) == 0 {
			return false, fmt.Errorf("DB instance %q disappeared while waiting", s.name)
		}

		instance := resp.DBInstances[0]
		status := awssdk.ToString(instance.DBInstanceStatus)
		logging.Debug("DB instance status", "name", s.name, "status", status)

		switch status {
		case "available":
			if instance.Endpoint != nil {
				d.Endpoint = awssdk.ToString(instance.Endpoint.Address)
				d.SetAttr(attrDBPort, strconv.Itoa(int(awssdk.ToInt32(instance.Endpoint.Port))))
			}
			return true, nil
		case "failed", "incompatible-parameters", "incompatible-network", "incompatible-restore":
			return false, fmt.Errorf("DB instance %q entered terminal status %q", s.name, status)
		default:
			return false, nil
		}
	})
}

// Delete removes the instance without a final snapshot and waits until it is
// gone: the security group and subnets cannot be deleted while the instance
// still references them.
func (s *DBInstanceService) Delete(ctx context.Context, d *topology.Descriptor) error {
	_, err := s.client.rdsClient.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier: awssdk.String(s.name),
		SkipFinalSnapshot:    awssdk.Bool(true),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return opErr(s.Kind(), s.name, "delete", err)
	}

	logging.Info("waiting for DB instance deletion", "name", s.name)
	return orchestrator.WaitFor(ctx, s.waitPolicy.Deleted, "deletion of DB instance "+s.name, func(ctx context.Context) (bool, error) {
		_, err := s.client.rdsClient.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			DBInstanceIdentifier: awssdk.String(s.name),
		})
		if err != nil {
			if IsNotFound(err) {
				return true, nil
			}
			if orchestrator.IsTransientError(err) {
				return false, nil
			}
			return false, opErr(s.Kind(), s.name, "describe", err)
		}
		return false, nil
	})
}
