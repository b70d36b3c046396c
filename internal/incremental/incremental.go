// Package incremental implements the skip/run/cancel decision described in
// spec §4.3: compare a target's saved fingerprint against its current one,
// skip the supplied operation when they match, and otherwise run it and
// persist a fresh fingerprint on success.
//
// Grounded on original_source/src/engine/incremental/mod.rs, adapted from
// async/await + a BuildTerminationReport enum to a context-cancellable
// function value returning a two-value Completion.
package incremental

import (
	"context"
	"log"

	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/fingerprint"
	"github.com/distr1/zinoma/internal/state"
	"github.com/distr1/zinoma/internal/target"
)

// Result is the outcome of a Run call.
type Result int

const (
	Skipped Result = iota
	Completed
	Cancelled
)

func (r Result) String() string {
	switch r {
	case Skipped:
		return "skipped"
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Completion is what an Operation reports about how it ended.
type Completion int

const (
	// Aborted means the operation was cancelled before finishing; its
	// effects (if any) must not be trusted and no fingerprint is recorded.
	Aborted Completion = iota
	// Finished means the operation ran to completion.
	Finished
)

// Operation is the work an incremental Run may decide to skip. It is
// expected to race itself against ctx cancellation and report Aborted
// rather than returning an error when it notices ctx is done.
type Operation func(ctx context.Context) (Completion, error)

// Spec bundles the resource declarations needed to fingerprint a target.
type Spec struct {
	ProjectDir string
	Input      target.Resources
	Output     target.Resources
	HasOutput  bool
}

// Run executes the incremental skip/run/cancel algorithm of spec §4.3 for a
// single target, using store to persist and retrieve its fingerprint.
func Run(ctx context.Context, store state.Store, spec Spec, op Operation) (Result, error) {
	// Step 1: empty input can never be skipped, and never gets a fingerprint
	// written (spec §8 "Target with empty input_paths: never skipped;
	// fingerprint file is never written").
	canSkip := !spec.Input.IsEmpty()

	if canSkip {
		saved, err := store.Read()
		if err != nil {
			return 0, xerrors.Errorf("reading saved fingerprint: %w", err)
		}
		if saved != nil && envStateMatchesCurrent(ctx, spec, *saved) {
			return Skipped, nil
		}

		// Step 3: the saved fingerprint no longer reflects truth.
		if err := store.Delete(); err != nil {
			return 0, xerrors.Errorf("deleting stale fingerprint: %w", err)
		}
	}

	// Step 4.
	completion, err := op(ctx)
	if err != nil {
		return 0, err
	}
	if completion == Aborted {
		return Cancelled, nil
	}

	// Step 5: best-effort fingerprint write. Failure here only costs a
	// redundant rebuild next time, so it is logged, not propagated.
	if canSkip {
		if err := persistFingerprint(ctx, store, spec); err != nil {
			log.Printf("incremental: %s: failed to save fingerprint after a successful run: %v", store.TargetName, err)
		}
	}

	return Completed, nil
}

func envStateMatchesCurrent(ctx context.Context, spec Spec, saved state.TargetEnvState) bool {
	if !saved.Input.EqualsCurrent(ctx, spec.ProjectDir, spec.Input) {
		return false
	}
	if !spec.HasOutput {
		return true
	}
	if !saved.HasOutput {
		return false
	}
	return saved.Output.EqualsCurrent(ctx, spec.ProjectDir, spec.Output)
}

func persistFingerprint(ctx context.Context, store state.Store, spec Spec) error {
	input, err := fingerprint.Current(ctx, spec.ProjectDir, spec.Input)
	if err != nil {
		return xerrors.Errorf("computing input fingerprint: %w", err)
	}

	envState := state.TargetEnvState{Input: input, HasOutput: spec.HasOutput}
	if spec.HasOutput {
		output, err := fingerprint.Current(ctx, spec.ProjectDir, spec.Output)
		if err != nil {
			return xerrors.Errorf("computing output fingerprint: %w", err)
		}
		envState.Output = output
	}

	return store.Write(envState)
}
