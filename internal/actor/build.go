package actor

import (
	"context"
	"os"

	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/incremental"
	"github.com/distr1/zinoma/internal/shell"
	"github.com/distr1/zinoma/internal/state"
	"github.com/distr1/zinoma/internal/target"
)

// buildOutcome is what a background build run reports back to the actor
// loop once incremental.Run returns.
type buildOutcome struct {
	result incremental.Result
	err    error
}

// buildRun tracks a single in-flight build: cancelProcess hard-kills the
// script (used only on termination); requestCooperativeCancel marks the
// run's eventual result as discardable without touching the running
// process, per spec §4.5's cooperative build cancellation.
type buildRun struct {
	cancelProcess     context.CancelFunc
	cooperativeCancel chan struct{}
	done              chan buildOutcome
}

func (r *buildRun) requestCooperativeCancel() {
	select {
	case r.cooperativeCancel <- struct{}{}:
	default:
	}
}

// runBuildActor is the event loop for a Build target, grounded on
// build_target_actor.rs's run(): execute when the gate opens, race the
// build against invalidation and termination, emit BuildOk/
// TargetExecutionError on completion.
func runBuildActor(parentCtx context.Context, bt *target.BuildTarget, b base, h *Handle, logf Logf) {
	store := state.Store{ProjectDir: bt.ProjectDir, TargetName: bt.ID.Name}
	spec := incremental.Spec{ProjectDir: bt.ProjectDir, Input: bt.Input, Output: bt.Output, HasOutput: bt.HasOutput}

	var current *buildRun

	for {
		if current == nil && b.readyToExecute() {
			b.setExecutionStarted()
			current = startBuild(parentCtx, store, spec, bt)
		}

		var doneCh chan buildOutcome
		if current != nil {
			doneCh = current.done
		}

		select {
		case <-h.terminate:
			if current != nil {
				current.cancelProcess()
				<-current.done
			}
			return

		case msg := <-h.inbox:
			if b.handleMessage(msg) {
				b.notifyBuildInvalidated()
				if current != nil {
					current.requestCooperativeCancel()
				}
			}

		case outcome := <-doneCh:
			current = nil
			switch {
			case outcome.err != nil:
				if logf != nil {
					logf("%s: build failed: %v", b.targetID(), outcome.err)
				}
				b.notifyExecutionError(outcome.err)
			case outcome.result == incremental.Cancelled:
				// discarded: a fresh invalidation already set to_execute.
			default: // Skipped or Completed
				b.executed = !b.toExecute
				if b.executed {
					b.notifyBuildOk()
				}
			}
		}
	}
}

func startBuild(parentCtx context.Context, store state.Store, spec incremental.Spec, bt *target.BuildTarget) *buildRun {
	processCtx, cancelProcess := context.WithCancel(parentCtx)
	cooperativeCancel := make(chan struct{}, 1)
	done := make(chan buildOutcome, 1)

	op := func(ctx context.Context) (incremental.Completion, error) {
		cmd := shell.Command(ctx, bt.BuildScript, bt.ProjectDir)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		runErr := cmd.Run()

		select {
		case <-cooperativeCancel:
			return incremental.Aborted, nil
		default:
		}

		if ctx.Err() != nil {
			// Killed by termination, not a genuine script failure.
			return incremental.Aborted, nil
		}

		if runErr != nil {
			return incremental.Finished, xerrors.Errorf("%s: %w", bt.ID, runErr)
		}
		return incremental.Finished, nil
	}

	go func() {
		result, err := incremental.Run(processCtx, store, spec, op)
		done <- buildOutcome{result: result, err: err}
	}()

	return &buildRun{cancelProcess: cancelProcess, cooperativeCancel: cooperativeCancel, done: done}
}
