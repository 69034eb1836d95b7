package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dwctl-io/dwctl/internal/logging"
	"github.com/dwctl-io/dwctl/internal/topology"
)

// Phase is the orchestrator's lifecycle state.
//
//	EMPTY → PROVISIONING → READY → DELETING → EMPTY
//
// with the rollback path PROVISIONING → PARTIAL_FAILURE → DELETING when a
// provisioning step fails or the user interrupts.
type Phase string

const (
	PhaseEmpty          Phase = "EMPTY"
	PhaseProvisioning   Phase = "PROVISIONING"
	PhaseReady          Phase = "READY"
	PhasePartialFailure Phase = "PARTIAL_FAILURE"
	PhaseDeleting       Phase = "DELETING"
)

// Step provisions and tears down one resource of the topology. Create returns
// a populated descriptor on success. Delete must treat "already absent" as
// success so that teardown passes stay idempotent.
type Step interface {
	Kind() topology.Kind
	Name() string
	Create(ctx context.Context) (*topology.Descriptor, error)
	Delete(ctx context.Context, d *topology.Descriptor) error
}

// Waiter is implemented by steps whose resource becomes usable asynchronously
// (the DB instance). WaitReady blocks until the resource is available, failed,
// or the wait budget is exhausted.
type Waiter interface {
	WaitReady(ctx context.Context, d *topology.Descriptor) error
}

// Uploader stages a local file into the raw-data bucket.
type Uploader interface {
	Upload(ctx context.Context, localPath, objectKey string) error
}

// ReadyHook runs once after every step has been created and waited on, with
// the complete topology. The blueprint uses it to fill the connection secret
// with the DB endpoint, which only exists once the instance is available.
type ReadyHook func(ctx context.Context, topo *topology.Topology) error

// ErrNotReady is returned by Upload when the session is not in READY.
var ErrNotReady = errors.New("topology is not ready: upload is only valid after provisioning completes")

// Orchestrator sequences resource wrappers in dependency order and recovers
// from partial failure by rolling back whatever was created. It is not safe
// for concurrent use; the interactive session drives it from one goroutine.
type Orchestrator struct {
	steps    []Step
	topo     *topology.Topology
	phase    Phase
	uploader Uploader
	onReady  ReadyHook

	// deletePasses bounds how many reverse sweeps Delete attempts before
	// declaring that manual cleanup is required.
	deletePasses int
	// passDelay separates retry sweeps, giving the provider time to settle
	// dependency-ordering errors (e.g. a role still referenced by a function).
	passDelay time.Duration
	// retryable decides whether a failed deletion is worth another sweep.
	// nil requeues every failure.
	retryable func(error) bool
}

// Option customizes a new Orchestrator.
type Option func(*Orchestrator)

// WithUploader sets the target for Upload.
func WithUploader(u Uploader) Option {
	return func(o *Orchestrator) { o.uploader = u }
}

// WithReadyHook registers the hook invoked when provisioning completes.
func WithReadyHook(h ReadyHook) Option {
	return func(o *Orchestrator) { o.onReady = h }
}

// WithDeletePasses overrides the teardown sweep budget.
func WithDeletePasses(n int) Option {
	return func(o *Orchestrator) { o.deletePasses = n }
}

// WithPassDelay overrides the delay between teardown sweeps.
func WithPassDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.passDelay = d }
}

// WithRetryClassifier sets the predicate deciding whether a failed deletion
// is requeued for a later sweep. When every remaining failure is classified
// as permanent, Delete gives up without spending the rest of the sweep
// budget.
func WithRetryClassifier(f func(error) bool) Option {
	return func(o *Orchestrator) { o.retryable = f }
}

// New returns an orchestrator over the given steps with an empty topology.
func New(steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		steps:        steps,
		topo:         topology.New(),
		phase:        PhaseEmpty,
		deletePasses: 3,
		passDelay:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Restore returns an orchestrator resuming from a persisted topology, ready
// for teardown. The phase is READY when the topology is complete, EMPTY when
// it has no resources.
func Restore(steps []Step, topo *topology.Topology, opts ...Option) *Orchestrator {
	o := New(steps, opts...)
	o.topo = topo
	if !topo.Empty() {
		o.phase = PhaseReady
	}
	return o
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	return o.phase
}

// Topology returns the live topology. Callers must not mutate it.
func (o *Orchestrator) Topology() *topology.Topology {
	return o.topo
}

// Provision creates every resource in dependency order. Each step's
// descriptor joins the topology only on success. Any failure, or a context
// cancellation observed between steps, rolls back everything created so far
// in reverse order so no billable resource is stranded.
func (o *Orchestrator) Provision(ctx context.Context) error {
	if o.phase != PhaseEmpty {
		return fmt.Errorf("cannot provision from phase %s", o.phase)
	}
	o.phase = PhaseProvisioning

	for _, step := range o.steps {
		// Interrupts are honored between steps, not mid-call.
		if err := ctx.Err(); err != nil {
			return o.rollback(ctx, fmt.Errorf("provisioning interrupted: %w", err))
		}

		logging.Info("creating resource", "kind", step.Kind(), "name", step.Name())
		d, err := step.Create(ctx)
		// Composite steps return a partial descriptor alongside the error;
		// it must join the topology so the pieces that did get created are
		// torn down too.
		if d != nil {
			o.topo.Append(d)
		}
		if err != nil {
			return o.rollback(ctx, fmt.Errorf("failed to create %s %q: %w", step.Kind(), step.Name(), err))
		}
		logging.Info("created resource", "address", d.Addr(), "id", d.ID)

		if w, ok := step.(Waiter); ok {
			logging.Info("waiting for resource to become available", "address", d.Addr())
			if err := w.WaitReady(ctx, d); err != nil {
				return o.rollback(ctx, fmt.Errorf("%s %q did not become available: %w", step.Kind(), step.Name(), err))
			}
		}
	}

	if o.onReady != nil {
		if err := o.onReady(ctx, o.topo); err != nil {
			return o.rollback(ctx, fmt.Errorf("post-provisioning step failed: %w", err))
		}
	}

	o.phase = PhaseReady
	return nil
}

// rollback transitions to PARTIAL_FAILURE and tears down the partial
// topology. Teardown runs even when the trigger was a cancelled context.
func (o *Orchestrator) rollback(ctx context.Context, cause error) error {
	o.phase = PhasePartialFailure
	logging.Warn("rolling back partially provisioned topology", "resources", o.topo.Len(), "cause", cause)

	// The interrupt that triggered the rollback must not also cancel it.
	cleanupCtx := context.WithoutCancel(ctx)
	if err := o.Delete(cleanupCtx); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// Upload stages a local file into the raw-data bucket under objectKey. It is
// only valid in READY. The downstream Lambda → Glue → RDS pipeline runs
// asynchronously; completion is not tracked here.
func (o *Orchestrator) Upload(ctx context.Context, localPath, objectKey string) error {
	if o.phase != PhaseReady {
		return fmt.Errorf("%w (current phase: %s)", ErrNotReady, o.phase)
	}
	if o.uploader == nil {
		return errors.New("no upload target configured")
	}
	if err := o.uploader.Upload(ctx, localPath, objectKey); err != nil {
		return fmt.Errorf("failed to stage %s: %w", localPath, err)
	}
	logging.Info("staged file into raw-data bucket; downstream ETL completion is not tracked",
		"file", localPath, "key", objectKey)
	return nil
}

// Delete tears the topology down in strict reverse creation order. A step
// failure (typically a dependency-ordering error) requeues the resource for
// the next sweep; after the sweep budget is spent, the remaining resources
// are reported with an instruction that manual cleanup is required. Deleting
// an already-empty topology is a no-op.
func (o *Orchestrator) Delete(ctx context.Context) error {
	if o.topo.Empty() {
		o.phase = PhaseEmpty
		return nil
	}
	o.phase = PhaseDeleting

	for pass := 1; pass <= o.deletePasses; pass++ {
		if pass > 1 {
			logging.Info("retrying deletion of remaining resources", "pass", pass, "remaining", o.topo.Len())
			select {
			case <-ctx.Done():
				return fmt.Errorf("teardown cancelled: %w", ctx.Err())
			case <-time.After(o.passDelay):
			}
		}

		var passErrs []error
		retryWorthwhile := false
		for _, d := range o.topo.Reverse() {
			step := o.stepFor(d)
			if step == nil {
				passErrs = append(passErrs, fmt.Errorf("no wrapper registered for %s", d.Addr()))
				continue
			}
			logging.Info("deleting resource", "address", d.Addr())
			if err := step.Delete(ctx, d); err != nil {
				if o.retryable == nil || o.retryable(err) {
					retryWorthwhile = true
					logging.Warn("deletion failed, will requeue", "address", d.Addr(), "error", err)
				} else {
					logging.Warn("deletion failed permanently", "address", d.Addr(), "error", err)
				}
				passErrs = append(passErrs, fmt.Errorf("%s: %w", d.Addr(), err))
				continue
			}
			o.topo.Remove(d)
		}

		if o.topo.Empty() {
			o.phase = PhaseEmpty
			return nil
		}
		if pass == o.deletePasses || !retryWorthwhile {
			remaining := make([]string, 0, o.topo.Len())
			for _, d := range o.topo.Resources {
				remaining = append(remaining, d.Addr())
			}
			return fmt.Errorf("could not delete all resources after %d passes; "+
				"manual cleanup required for %v: %w",
				pass, remaining, errors.Join(passErrs...))
		}
	}
	return nil
}

func (o *Orchestrator) stepFor(d *topology.Descriptor) Step {
	for _, s := range o.steps {
		if s.Kind() == d.Kind && s.Name() == d.Name {
			return s
		}
	}
	return nil
}
