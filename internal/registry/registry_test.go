package registry

import (
	"context"
	"testing"
	"time"

	"github.com/distr1/zinoma/internal/actor"
	"github.com/distr1/zinoma/internal/target"
)

func buildTarget(dir, name string, deps ...target.Id) target.Target {
	depSet := map[target.Id]bool{}
	for _, d := range deps {
		depSet[d] = true
	}
	return target.Target{Kind: target.Build, Build: &target.BuildTarget{
		Metadata:    target.Metadata{ID: target.Id{ProjectDir: dir, Name: name}, Dependencies: depSet},
		BuildScript: "true",
	}}
}

func TestRegistry_LazySpawnAndRouting(t *testing.T) {
	dir := t.TempDir()
	aID := target.Id{ProjectDir: dir, Name: "a"}
	bID := target.Id{ProjectDir: dir, Name: "b"}

	targets := map[target.Id]target.Target{
		aID: buildTarget(dir, "a"),
		bID: buildTarget(dir, "b", aID),
	}

	reg := New(context.Background(), targets, false, nil)
	defer reg.Terminate()

	if err := reg.RequestTarget(bID); err != nil {
		t.Fatal(err)
	}

	// b depends on a; a must be spawned as a side effect of b forwarding its
	// request. a then reports availability to its requester b, and b
	// reports availability to root.
	seenBuildOkFor := map[target.Id]bool{}
	deadline := time.After(5 * time.Second)
	for len(seenBuildOkFor) < 2 {
		select {
		case out := <-reg.Output():
			switch o := out.(type) {
			case actor.ToActor:
				if ok, isOk := o.Msg.(actor.BuildOk); isOk {
					if (ok.Dep == aID && o.Dest == actor.TargetID(bID)) || (ok.Dep == bID && o.Dest.Root) {
						seenBuildOkFor[ok.Dep] = true
					}
				}
				if !o.Dest.Root {
					if err := reg.Send(o.Dest.Target, o.Msg); err != nil {
						t.Fatal(err)
					}
				}
			case actor.ExecutionError:
				t.Fatalf("unexpected execution error: %v", o.Err)
			}
		case <-deadline:
			t.Fatalf("timed out, got BuildOk for %v", seenBuildOkFor)
		}
	}

	if !seenBuildOkFor[aID] || !seenBuildOkFor[bID] {
		t.Errorf("expected both a and b to report BuildOk, got %v", seenBuildOkFor)
	}
}

func TestRegistry_UnknownTargetErrors(t *testing.T) {
	reg := New(context.Background(), map[target.Id]target.Target{}, false, nil)
	defer reg.Terminate()

	err := reg.RequestTarget(target.Id{ProjectDir: "/nope", Name: "missing"})
	if err == nil {
		t.Error("expected an error requesting an unknown target")
	}
}
