// Package actor implements the per-target state machine described in
// spec §4.5: a single-threaded event loop tracking requests, dependency
// availability, and execution, one goroutine per target.
//
// Grounded on original_source/src/engine/target_actor/{mod,
// build_target_actor, service_target_actor, target_actor_helper}.rs,
// adapted from async-std tasks and futures::select! to goroutines and
// Go's native select, and from a shared TargetActorHelper struct to an
// embedded base type.
package actor

import (
	"fmt"

	"github.com/distr1/zinoma/internal/target"
)

// RequestKind distinguishes wanting a target built from wanting it running
// as a service.
type RequestKind int

const (
	BuildRequest RequestKind = iota
	ServiceRequest
)

func (k RequestKind) String() string {
	if k == ServiceRequest {
		return "service"
	}
	return "build"
}

// ID names the destination of an actor message: either a specific target's
// actor, or the engine's root coordinator.
type ID struct {
	Root   bool
	Target target.Id
}

// RootID is the fixed identity of the top-level coordinator, the
// equivalent of the source's ActorId::Root.
var RootID = ID{Root: true}

// TargetID builds an actor ID addressing a single target's actor.
func TargetID(id target.Id) ID { return ID{Target: id} }

func (a ID) String() string {
	if a.Root {
		return "root"
	}
	return a.Target.String()
}

// Message is the sum type accepted by a target actor's inbox.
type Message interface {
	isMessage()
}

// Requested is sent by requester to tell the target it is now wanted,
// either to be built or to be running as a service.
type Requested struct {
	Kind      RequestKind
	Requester ID
}

// Unrequested is the inverse of Requested: the requester no longer needs
// this target at this kind.
type Unrequested struct {
	Kind      RequestKind
	Requester ID
}

// BuildOk announces that the dependency Dep reached build availability.
type BuildOk struct{ Dep target.Id }

// ServiceOk announces that the dependency Dep's service is running (or, for
// a non-service target forwarding availability, that it is simply ready).
type ServiceOk struct {
	Dep        target.Id
	HasService bool
}

// BuildInvalidated announces that the dependency Dep lost build availability.
type BuildInvalidated struct{ Dep target.Id }

// ServiceInvalidated announces that the dependency Dep's service stopped
// being available.
type ServiceInvalidated struct{ Dep target.Id }

// Invalidated is delivered by this target's own filesystem watcher.
type Invalidated struct{}

func (Requested) isMessage()          {}
func (Unrequested) isMessage()        {}
func (BuildOk) isMessage()            {}
func (ServiceOk) isMessage()          {}
func (BuildInvalidated) isMessage()   {}
func (ServiceInvalidated) isMessage() {}
func (Invalidated) isMessage()        {}

// Output is the sum type an actor emits towards the registry/engine: either
// a message addressed to another actor, or an execution error to surface.
type Output interface {
	isOutput()
}

// ToActor routes Msg to the actor identified by Dest.
type ToActor struct {
	Dest ID
	Msg  Message
}

// ExecutionError reports that Target's build or service spawn failed.
type ExecutionError struct {
	Target target.Id
	Err    error
}

func (ToActor) isOutput()        {}
func (ExecutionError) isOutput() {}

func (e ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Target, e.Err)
}
