// Package registry lazily spawns target actors on first reference, routes
// messages between them by target id, and performs orderly shutdown.
//
// Grounded on original_source/src/engine/target_actors.rs (TargetActors):
// kept its "consume from a pending-targets map on first send/request"
// laziness and its terminate-then-join-all shutdown; also grounded on the
// teacher's internal/batch.go worker-pool-over-a-channel and
// errgroup.WithContext shape for the join-all step, swapped from a
// topologically-sorted batch of package builds to an unordered set of
// actor goroutines with no ordering dependency at shutdown time.
package registry

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/actor"
	"github.com/distr1/zinoma/internal/target"
)

// Registry owns the full target set and lazily-created actor handles.
type Registry struct {
	ctx     context.Context
	pending map[target.Id]target.Target
	depKind map[target.Id]target.Kind
	watch   bool
	out     chan actor.Output
	logf    actor.Logf

	handles map[target.Id]*actor.Handle
}

// New builds a Registry over targets, none of which are spawned yet. watch
// controls whether spawned actors install filesystem watchers (disabled in
// one-shot mode, per spec §4.7).
func New(ctx context.Context, targets map[target.Id]target.Target, watch bool, logf actor.Logf) *Registry {
	depKind := make(map[target.Id]target.Kind, len(targets))
	for id, t := range targets {
		depKind[id] = t.Kind
	}

	pending := make(map[target.Id]target.Target, len(targets))
	for id, t := range targets {
		pending[id] = t
	}

	return &Registry{
		ctx:     ctx,
		pending: pending,
		depKind: depKind,
		watch:   watch,
		out:     make(chan actor.Output, actor.DefaultInboxCapacity),
		logf:    logf,
		handles: make(map[target.Id]*actor.Handle, len(targets)),
	}
}

// Output is the channel every actor's messages and errors arrive on,
// equivalent to the source's target_actor_output_events stream.
func (r *Registry) Output() <-chan actor.Output { return r.out }

func (r *Registry) handle(id target.Id) (*actor.Handle, error) {
	if h, ok := r.handles[id]; ok {
		return h, nil
	}

	t, ok := r.pending[id]
	if !ok {
		return nil, xerrors.Errorf("registry: unknown target %s", id)
	}
	delete(r.pending, id)

	h, err := actor.Spawn(r.ctx, t, r.depKind, r.out, r.watch, r.logf)
	if err != nil {
		return nil, xerrors.Errorf("spawning actor for %s: %w", id, err)
	}
	r.handles[id] = h
	return h, nil
}

// Send routes msg to id's actor, spawning it first if this is the first
// reference to it.
func (r *Registry) Send(id target.Id, msg actor.Message) error {
	h, err := r.handle(id)
	if err != nil {
		return err
	}
	h.Send(msg)
	return nil
}

// RequestTarget marks id as wanted both as a build and as a service by the
// root coordinator, the way TargetActors::request_target always sends both
// ExecutionKind::Build and ExecutionKind::Service.
func (r *Registry) RequestTarget(id target.Id) error {
	h, err := r.handle(id)
	if err != nil {
		return err
	}
	h.Send(actor.Requested{Kind: actor.BuildRequest, Requester: actor.RootID})
	h.Send(actor.Requested{Kind: actor.ServiceRequest, Requester: actor.RootID})
	return nil
}

// Terminate asks every spawned actor to shut down and waits for all of
// them, in parallel, to finish — actors never depend on each other's
// shutdown order, so there is nothing to sequence.
func (r *Registry) Terminate() error {
	g := new(errgroup.Group)
	for _, h := range r.handles {
		h := h
		g.Go(func() error {
			h.Terminate()
			return nil
		})
	}
	return g.Wait()
}
