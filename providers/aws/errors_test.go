package aws

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwctl-io/dwctl/internal/topology"
)

func apiErr(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: "test"}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(apiErr("NoSuchBucket")))
	assert.True(t, IsNotFound(apiErr("NoSuchEntity")))
	assert.True(t, IsNotFound(apiErr("ResourceNotFoundException")))
	assert.True(t, IsNotFound(apiErr("DBInstanceNotFoundFault")))
	assert.True(t, IsNotFound(apiErr("InvalidGroup.NotFound")))
	assert.True(t, IsNotFound(apiErr("InvalidVpcID.NotFound")))

	assert.False(t, IsNotFound(apiErr("AccessDenied")))
	assert.False(t, IsNotFound(fmt.Errorf("plain error")))
	assert.False(t, IsNotFound(nil))
}

func TestIsNotFound_Wrapped(t *testing.T) {
	err := opErr(topology.KindBucket, "raw", "delete", apiErr("NoSuchBucket"))
	assert.True(t, IsNotFound(err))
}

func TestIsAlreadyExists(t *testing.T) {
	assert.True(t, IsAlreadyExists(apiErr("BucketAlreadyOwnedByYou")))
	assert.True(t, IsAlreadyExists(apiErr("EntityAlreadyExists")))
	assert.True(t, IsAlreadyExists(apiErr("InvalidPermission.Duplicate")))

	assert.False(t, IsAlreadyExists(apiErr("NoSuchBucket")))
	assert.False(t, IsAlreadyExists(nil))
}

func TestIsDependencyViolation(t *testing.T) {
	assert.True(t, IsDependencyViolation(apiErr("DependencyViolation")))
	assert.True(t, IsDependencyViolation(apiErr("DeleteConflict")))
	assert.True(t, IsDependencyViolation(apiErr("InvalidDBInstanceState")))

	assert.False(t, IsDependencyViolation(apiErr("Throttling")))
}

func TestIsRetryableDelete(t *testing.T) {
	assert.True(t, IsRetryableDelete(apiErr("DependencyViolation")))
	assert.True(t, IsRetryableDelete(opErr(topology.KindIAMRole, "r", "delete", apiErr("DeleteConflict"))))
	assert.True(t, IsRetryableDelete(fmt.Errorf("Throttling: rate exceeded")))

	assert.False(t, IsRetryableDelete(apiErr("AccessDenied")))
	assert.False(t, IsRetryableDelete(fmt.Errorf("validation error")))
}

func TestOpError(t *testing.T) {
	cause := apiErr("DependencyViolation")
	err := opErr(topology.KindSecurityGroup, "data-warehouse-sg", "delete", cause)

	var oe *OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "DependencyViolation", oe.Code)
	assert.Contains(t, err.Error(), `delete security-group "data-warehouse-sg"`)

	var ae smithy.APIError
	assert.True(t, errors.As(err, &ae))

	assert.NoError(t, opErr(topology.KindBucket, "raw", "create", nil))
}
