package topology

import (
	"fmt"
	"slices"
)

// Kind identifies the closed set of resource kinds the orchestrator manages.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindSecurityGroup  Kind = "security-group"
	KindIAMPolicy      Kind = "iam-policy"
	KindIAMRole        Kind = "iam-role"
	KindBucket         Kind = "s3-bucket"
	KindGlueJob        Kind = "glue-job"
	KindSecret         Kind = "secret"
	KindLambdaFunction Kind = "lambda-function"
	KindDBInstance     Kind = "rds-instance"
)

// Descriptor is the in-process record of one provisioned cloud resource.
// ID holds the cloud-assigned identifier (group ID, ARN, instance identifier);
// Attrs carries kind-specific extras needed for teardown or wiring
// (e.g. subnet IDs of a network, the DB subnet group name of an instance).
type Descriptor struct {
	Kind     Kind              `json:"kind"`
	Name     string            `json:"name"`
	ID       string            `json:"id,omitempty"`
	ARN      string            `json:"arn,omitempty"`
	Endpoint string            `json:"endpoint,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// Addr returns the kind.name address used in logs and errors.
func (d *Descriptor) Addr() string {
	return fmt.Sprintf("%s.%s", d.Kind, d.Name)
}

// Attr returns a named attribute or "" when unset.
func (d *Descriptor) Attr(key string) string {
	if d.Attrs == nil {
		return ""
	}
	return d.Attrs[key]
}

// SetAttr records a kind-specific attribute on the descriptor.
func (d *Descriptor) SetAttr(key, value string) {
	if d.Attrs == nil {
		d.Attrs = make(map[string]string)
	}
	d.Attrs[key] = value
}

// Topology is the ordered collection of provisioned resources, in creation
// dependency order. Deletion must walk it in strict reverse order because
// dependent resources (roles referenced by functions, security groups
// referenced by the DB instance) cannot be removed while referenced.
type Topology struct {
	Resources []*Descriptor `json:"resources"`
}

// New returns an empty topology.
func New() *Topology {
	return &Topology{}
}

// Append records a descriptor as the most recently created resource.
func (t *Topology) Append(d *Descriptor) {
	t.Resources = append(t.Resources, d)
}

// Remove drops a descriptor after its resource has been deleted.
func (t *Topology) Remove(d *Descriptor) {
	t.Resources = slices.DeleteFunc(t.Resources, func(r *Descriptor) bool {
		return r == d || (r.Kind == d.Kind && r.Name == d.Name)
	})
}

// Reverse returns the descriptors in teardown order (reverse of creation).
// The returned slice is a copy; mutating it does not affect the topology.
func (t *Topology) Reverse() []*Descriptor {
	out := make([]*Descriptor, len(t.Resources))
	for i, d := range t.Resources {
		out[len(t.Resources)-1-i] = d
	}
	return out
}

// Find returns the first descriptor with the given kind and name, or nil.
func (t *Topology) Find(kind Kind, name string) *Descriptor {
	for _, d := range t.Resources {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	return nil
}

// Empty reports whether no resources remain.
func (t *Topology) Empty() bool {
	return len(t.Resources) == 0
}

// Len returns the number of tracked resources.
func (t *Topology) Len() int {
	return len(t.Resources)
}
