// Package engine is the top-level coordinator: it turns a requested root
// target list into request messages, tracks root completion, and drives
// the watch vs. one-shot lifecycle described in spec §4.7.
//
// Grounded on original_source/src/engine/mod.rs's Engine::watch and
// Engine::execute_once, adapted from futures::select! over async-std
// channels to a native Go select over the registry's output channel and a
// termination.Signal channel.
package engine

import (
	"context"

	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/actor"
	"github.com/distr1/zinoma/internal/registry"
	"github.com/distr1/zinoma/internal/target"
	"github.com/distr1/zinoma/internal/termination"
)

// Logf is the leveled logging hook the engine and the actors it spawns use.
type Logf func(format string, args ...interface{})

// Engine owns the full target set for a run and drives it to completion.
type Engine struct {
	targets map[target.Id]target.Target
	logf    Logf
}

// New builds an Engine over targets.
func New(targets map[target.Id]target.Target, logf Logf) *Engine {
	return &Engine{targets: targets, logf: logf}
}

// Watch requests every root target and then runs forever, routing actor
// output and logging execution errors, until term delivers a termination
// signal. It then tears every actor down and returns.
func (e *Engine) Watch(ctx context.Context, roots []target.Id, term <-chan termination.Signal) error {
	reg := registry.New(ctx, e.targets, true, actor.Logf(e.logf))

	for _, id := range roots {
		if err := reg.RequestTarget(id); err != nil {
			return xerrors.Errorf("requesting root target %s: %w", id, err)
		}
	}

	for {
		select {
		case <-term:
			return reg.Terminate()
		case out := <-reg.Output():
			if err := e.route(reg, out); err != nil {
				return err
			}
		}
	}
}

// ExecuteOnce requests every root target and runs until every root build
// and every root service has reported availability (or a failure occurs),
// then — if any root is a service — blocks on term so the service keeps
// running until interrupted, per spec §4.7's one-shot-with-service-root
// rule. It always tears every actor down before returning.
func (e *Engine) ExecuteOnce(ctx context.Context, roots []target.Id, term <-chan termination.Signal) error {
	reg := registry.New(ctx, e.targets, false, actor.Logf(e.logf))

	for _, id := range roots {
		if err := reg.RequestTarget(id); err != nil {
			return xerrors.Errorf("requesting root target %s: %w", id, err)
		}
	}

	unavailableBuilds := idSet(roots)
	unavailableServices := idSet(roots)
	hasServiceRoot := false
	terminating := false
	var firstErr error

	for !terminating && (len(unavailableBuilds) > 0 || len(unavailableServices) > 0) {
		select {
		case <-term:
			terminating = true

		case out := <-reg.Output():
			switch o := out.(type) {
			case actor.ExecutionError:
				if e.logf != nil {
					e.logf("%s: %v", o.Target, o.Err)
				}
				firstErr = o
				terminating = true

			case actor.ToActor:
				if o.Dest.Root {
					// A root only ever emits one of BuildOk/ServiceOk,
					// depending on its own kind (only Aggregate emits
					// both). Either one means the root has finished
					// reporting in, so it clears from both sets — a
					// build-only root otherwise could never clear
					// unavailableServices, nor a service-only root
					// unavailableBuilds, and the loop would wait forever
					// even with no service root at all. See DESIGN.md.
					switch m := o.Msg.(type) {
					case actor.BuildOk:
						delete(unavailableBuilds, m.Dep)
						delete(unavailableServices, m.Dep)
					case actor.ServiceOk:
						delete(unavailableBuilds, m.Dep)
						delete(unavailableServices, m.Dep)
						if m.HasService {
							hasServiceRoot = true
						}
					}
					continue
				}
				if err := reg.Send(o.Dest.Target, o.Msg); err != nil {
					return err
				}
			}
		}
	}

	if !terminating && hasServiceRoot {
		<-term
	}

	if err := reg.Terminate(); err != nil {
		return err
	}

	return firstErr
}

func (e *Engine) route(reg *registry.Registry, out actor.Output) error {
	switch o := out.(type) {
	case actor.ExecutionError:
		if e.logf != nil {
			e.logf("%s: %v", o.Target, o.Err)
		}
		return nil
	case actor.ToActor:
		if o.Dest.Root {
			// Watch mode has no root bookkeeping to update; root-addressed
			// availability messages are informational only.
			return nil
		}
		return reg.Send(o.Dest.Target, o.Msg)
	default:
		return nil
	}
}

func idSet(ids []target.Id) map[target.Id]bool {
	s := make(map[target.Id]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
