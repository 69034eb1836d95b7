package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/topology"
)

// OpError carries enough context for the orchestrator to decide whether to
// abort or continue: the resource kind and name, the operation that failed
// and the AWS error code when one is available.
type OpError struct {
	Kind topology.Kind
	Name string
	Op   string
	Code string
	Err  error
}

func (e *OpError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s %q: %s: %v", e.Op, e.Kind, e.Name, e.Code, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Op, e.Kind, e.Name, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// opErr wraps an SDK error with resource context, extracting the API error
// code when present.
func opErr(kind topology.Kind, name, op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Name: name, Op: op, Code: errCode(err), Err: err}
}

// errCode returns the AWS API error code, or "" for non-API errors.
func errCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err means the resource is already absent.
// Deletion treats this as success.
func IsNotFound(err error) bool {
	code := errCode(err)
	switch code {
	case "NotFound", "NoSuchBucket", "NoSuchEntity",
		"ResourceNotFoundException", "EntityNotFoundException",
		"DBInstanceNotFound", "DBInstanceNotFoundFault",
		"DBSubnetGroupNotFound", "DBSubnetGroupNotFoundFault":
		return true
	}
	// EC2 spells these InvalidGroup.NotFound, InvalidVpcID.NotFound, ...
	return strings.HasSuffix(code, ".NotFound")
}

// IsAlreadyExists reports whether err means the resource already exists.
// Creation is idempotent-intended; callers treat this as success where the
// existing resource is usable as-is.
func IsAlreadyExists(err error) bool {
	switch errCode(err) {
	case "BucketAlreadyOwnedByYou", "EntityAlreadyExists",
		"AlreadyExistsException", "ResourceConflictException",
		"ResourceExistsException", "DBSubnetGroupAlreadyExists",
		"InvalidGroup.Duplicate", "InvalidPermission.Duplicate":
		return true
	}
	return false
}

// IsDependencyViolation reports whether a deletion failed because another
// resource still references this one.
func IsDependencyViolation(err error) bool {
	switch errCode(err) {
	case "DependencyViolation", "DeleteConflict", "InvalidDBInstanceState":
		return true
	}
	return false
}

// IsRetryableDelete reports whether a failed deletion is worth another
// teardown pass: dependency-ordering errors clear once the dependent
// resources are gone, and transient API errors clear on their own. Anything
// else (access denied, validation errors) will not improve with retries.
func IsRetryableDelete(err error) bool {
	return IsDependencyViolation(err) || orchestrator.IsTransientError(err)
}
