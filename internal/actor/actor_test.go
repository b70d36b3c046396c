package actor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/distr1/zinoma/internal/target"
)

func recvOutput(t *testing.T, out <-chan Output) Output {
	t.Helper()
	select {
	case o := <-out:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for actor output")
		return nil
	}
}

func TestAggregate_NoDeps_RepliesImmediately(t *testing.T) {
	out := make(chan Output, 8)
	agg := target.Target{Kind: target.Aggregate, Aggregate: &target.AggregateTarget{
		Metadata: target.Metadata{ID: target.Id{ProjectDir: "/p", Name: "agg"}},
	}}

	h, err := Spawn(context.Background(), agg, nil, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Terminate()

	root := RootID
	h.Send(Requested{Kind: BuildRequest, Requester: root})

	got := recvOutput(t, out)
	msg, ok := got.(ToActor)
	if !ok || msg.Dest != root {
		t.Fatalf("expected a ToActor message addressed to root, got %#v", got)
	}
	if _, ok := msg.Msg.(BuildOk); !ok {
		t.Errorf("expected BuildOk, got %#v", msg.Msg)
	}

	h.Send(Requested{Kind: ServiceRequest, Requester: root})
	got = recvOutput(t, out)
	msg = got.(ToActor)
	so, ok := msg.Msg.(ServiceOk)
	if !ok || so.HasService {
		t.Errorf("expected ServiceOk{HasService:false}, got %#v", msg.Msg)
	}
}

func TestAggregate_WaitsOnDependency(t *testing.T) {
	out := make(chan Output, 8)
	depID := target.Id{ProjectDir: "/p", Name: "dep"}
	aggID := target.Id{ProjectDir: "/p", Name: "agg"}

	agg := target.Target{Kind: target.Aggregate, Aggregate: &target.AggregateTarget{
		Metadata: target.Metadata{ID: aggID, Dependencies: map[target.Id]bool{depID: true}},
	}}

	depKind := map[target.Id]target.Kind{depID: target.Build}
	h, err := Spawn(context.Background(), agg, depKind, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Terminate()

	h.Send(Requested{Kind: BuildRequest, Requester: RootID})

	// The aggregate must first forward a build request to its dependency,
	// not reply to root, since it is not yet available.
	got := recvOutput(t, out).(ToActor)
	if got.Dest != TargetID(depID) {
		t.Fatalf("expected forwarded request to dependency, got dest %#v", got.Dest)
	}
	if _, ok := got.Msg.(Requested); !ok {
		t.Errorf("expected a Requested message forwarded, got %#v", got.Msg)
	}

	select {
	case o := <-out:
		t.Fatalf("aggregate should not be available before its dependency is, got %#v", o)
	case <-time.After(100 * time.Millisecond):
	}

	h.Send(BuildOk{Dep: depID})

	got = recvOutput(t, out).(ToActor)
	if got.Dest != RootID {
		t.Fatalf("expected reply to root, got %#v", got.Dest)
	}
	if _, ok := got.Msg.(BuildOk); !ok {
		t.Errorf("expected BuildOk now that the dependency is available, got %#v", got.Msg)
	}
}

func TestBuildActor_LateRequesterIsNotifiedImmediately(t *testing.T) {
	dir := t.TempDir()
	out := make(chan Output, 8)

	bt := &target.BuildTarget{
		Metadata:    target.Metadata{ID: target.Id{ProjectDir: dir, Name: "b"}},
		BuildScript: "true",
	}
	tgt := target.Target{Kind: target.Build, Build: bt}

	h, err := Spawn(context.Background(), tgt, nil, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Terminate()

	first := ID{Target: target.Id{ProjectDir: "/p", Name: "first"}}
	h.Send(Requested{Kind: BuildRequest, Requester: first})

	got := recvOutput(t, out).(ToActor)
	if got.Dest != first {
		t.Fatalf("expected the first requester to be notified, got dest %#v", got.Dest)
	}
	if _, ok := got.Msg.(BuildOk); !ok {
		t.Fatalf("expected BuildOk, got %#v", got.Msg)
	}

	// A second requester joining a diamond dependency after the target is
	// already built must not hang waiting for a BuildOk that already fired.
	second := ID{Target: target.Id{ProjectDir: "/p", Name: "second"}}
	h.Send(Requested{Kind: BuildRequest, Requester: second})

	got = recvOutput(t, out).(ToActor)
	if got.Dest != second {
		t.Fatalf("expected the late requester to be notified, got dest %#v", got.Dest)
	}
	if _, ok := got.Msg.(BuildOk); !ok {
		t.Fatalf("expected BuildOk for the late requester, got %#v", got.Msg)
	}
}

func TestBuildActor_SuccessEmitsBuildOk(t *testing.T) {
	dir := t.TempDir()
	out := make(chan Output, 8)

	bt := &target.BuildTarget{
		Metadata:    target.Metadata{ID: target.Id{ProjectDir: dir, Name: "b"}},
		BuildScript: "true",
	}
	tgt := target.Target{Kind: target.Build, Build: bt}

	h, err := Spawn(context.Background(), tgt, nil, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Terminate()

	h.Send(Requested{Kind: BuildRequest, Requester: RootID})

	got := recvOutput(t, out).(ToActor)
	if got.Dest != RootID {
		t.Fatalf("expected reply to root, got %#v", got.Dest)
	}
	if _, ok := got.Msg.(BuildOk); !ok {
		t.Fatalf("expected BuildOk, got %#v", got.Msg)
	}
}

func TestBuildActor_FailureEmitsExecutionError(t *testing.T) {
	dir := t.TempDir()
	out := make(chan Output, 8)

	bt := &target.BuildTarget{
		Metadata:    target.Metadata{ID: target.Id{ProjectDir: dir, Name: "b"}},
		BuildScript: "exit 1",
	}
	tgt := target.Target{Kind: target.Build, Build: bt}

	h, err := Spawn(context.Background(), tgt, nil, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Terminate()

	h.Send(Requested{Kind: BuildRequest, Requester: RootID})

	got := recvOutput(t, out)
	if _, ok := got.(ExecutionError); !ok {
		t.Fatalf("expected ExecutionError, got %#v", got)
	}
}

func TestServiceActor_StartAndTerminateKillsProcess(t *testing.T) {
	dir := t.TempDir()
	pidFile := filepath.Join(dir, "pid")
	out := make(chan Output, 8)

	st := &target.ServiceTarget{
		Metadata:  target.Metadata{ID: target.Id{ProjectDir: dir, Name: "s"}},
		RunScript: "echo $$ > " + pidFile + "; sleep 30",
	}
	tgt := target.Target{Kind: target.Service, Service: st}

	h, err := Spawn(context.Background(), tgt, nil, out, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	h.Send(Requested{Kind: ServiceRequest, Requester: RootID})

	got := recvOutput(t, out).(ToActor)
	if _, ok := got.Msg.(ServiceOk); !ok {
		t.Fatalf("expected ServiceOk, got %#v", got.Msg)
	}

	var pid int
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(pidFile)
		if err == nil && len(b) > 0 {
			if _, err := fmt.Sscan(string(b), &pid); err == nil && pid > 0 {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	if pid == 0 {
		t.Fatal("service never wrote its pid")
	}

	h.Terminate()

	if err := syscall.Kill(pid, 0); err == nil {
		t.Errorf("expected process %d to be dead after termination", pid)
	}
}
