package actor

import "github.com/distr1/zinoma/internal/target"

// requesters tracks, per RequestKind, the set of actor IDs currently
// wanting this target at that kind.
type requesters struct {
	build   map[ID]bool
	service map[ID]bool
}

func newRequesters() requesters {
	return requesters{build: map[ID]bool{}, service: map[ID]bool{}}
}

func (r requesters) isEmpty() bool { return len(r.build) == 0 && len(r.service) == 0 }

func (r requesters) set(kind RequestKind) map[ID]bool {
	if kind == ServiceRequest {
		return r.service
	}
	return r.build
}

// add records who, and reports whether the combined requester set just
// became non-empty (i.e. this target just became wanted), and whether who
// was not already recorded at this kind.
func (r requesters) add(kind RequestKind, who ID) (becameWanted, isNew bool) {
	set := r.set(kind)
	if set[who] {
		return false, false
	}
	becameWanted = r.isEmpty()
	set[who] = true
	return becameWanted, true
}

// remove forgets who, and reports whether the combined requester set just
// became empty.
func (r requesters) remove(kind RequestKind, who ID) (becameUnwanted bool) {
	set := r.set(kind)
	if !set[who] {
		return false
	}
	delete(set, who)
	return r.isEmpty()
}

// base holds the state and behaviour shared by every target actor variant:
// dependency tracking, the execution gate, and request/availability/
// invalidation propagation. It is not itself runnable; each variant embeds
// it and drives its own event loop around it, the way the source's
// TargetActorHelper is held (not run) by each concrete actor.
type base struct {
	id ID

	// kind is this target's own Kind, needed by handleRequested to decide
	// which availability message(s) a late-joining requester is immediately
	// owed (Build → BuildOk, Service → ServiceOk, Aggregate → either).
	kind target.Kind

	// deps is the static set of this target's dependencies; depKind looks
	// up each dependency's own Kind, which decides whether a Requested
	// message is forwarded to it as a build or a service request (spec
	// §4.5's "Build's dependencies are requested at kind=Build" / "Service's
	// dependencies are requested at kind=Service" is, in this
	// implementation, driven by what the dependency itself actually is
	// rather than by what kind of request this target received — a service
	// target's build-only dependency is still requested as a build, since
	// asking a non-service target to run as a service is meaningless; see
	// DESIGN.md for this Open Question's resolution).
	deps        map[target.Id]bool
	depKind     map[target.Id]target.Kind
	unavailable map[target.Id]bool

	requested requesters

	toExecute bool
	executed  bool

	out chan<- Output
}

func newBase(id target.Id, kind target.Kind, deps map[target.Id]bool, depKind map[target.Id]target.Kind, out chan<- Output) base {
	unavailable := make(map[target.Id]bool, len(deps))
	for d := range deps {
		unavailable[d] = true
	}
	return base{
		id:          TargetID(id),
		kind:        kind,
		deps:        deps,
		depKind:     depKind,
		unavailable: unavailable,
		requested:   newRequesters(),
		toExecute:   true,
		out:         out,
	}
}

func (b *base) targetID() target.Id { return b.id.Target }

// readyToExecute implements the execution gate of spec §4.5: "to_execute ∧
// unavailable_deps = ∅ ∧ (someone requests it)".
func (b *base) readyToExecute() bool {
	return b.toExecute && len(b.unavailable) == 0 && !b.requested.isEmpty()
}

func (b *base) setExecutionStarted() {
	b.toExecute = false
	b.executed = false
}

// forwardKind decides which RequestKind to forward to dependency dep.
func (b *base) forwardKind(dep target.Id) RequestKind {
	if b.depKind[dep] == target.Service {
		return ServiceRequest
	}
	return BuildRequest
}

// send emits msg towards dest via the shared output channel.
func (b *base) send(dest ID, msg Message) {
	b.out <- ToActor{Dest: dest, Msg: msg}
}

// handleRequested updates requester bookkeeping and, the first time this
// target becomes wanted, forwards a Requested message to every dependency.
// A requester joining a target that is already available (spec invariant
// 2 only bounds how often availability is reported per transition, not
// that late joiners are owed nothing) is notified immediately — otherwise
// a requester of an already-available shared/diamond dependency would
// never see its BuildOk/ServiceOk and hang forever.
func (b *base) handleRequested(m Requested) {
	becameWanted, isNew := b.requested.add(m.Kind, m.Requester)
	if becameWanted {
		for dep := range b.deps {
			b.send(TargetID(dep), Requested{Kind: b.forwardKind(dep), Requester: b.id})
		}
	}
	if isNew && b.executed {
		b.notifyLateRequester(m.Kind, m.Requester)
	}
}

// notifyLateRequester sends requester the availability message it is owed
// for kind, given this target's own variant, mirroring the Ok messages
// each variant's run loop sends on a fresh gate-open (build.go/service.go/
// aggregate.go).
func (b *base) notifyLateRequester(kind RequestKind, requester ID) {
	switch kind {
	case BuildRequest:
		if b.kind == target.Build || b.kind == target.Aggregate {
			b.send(requester, BuildOk{Dep: b.targetID()})
		}
	case ServiceRequest:
		switch b.kind {
		case target.Service:
			b.send(requester, ServiceOk{Dep: b.targetID(), HasService: true})
		case target.Aggregate:
			b.send(requester, ServiceOk{Dep: b.targetID(), HasService: false})
		}
	}
}

// handleUnrequested is the inverse of handleRequested.
func (b *base) handleUnrequested(m Unrequested) {
	if b.requested.remove(m.Kind, m.Requester) {
		for dep := range b.deps {
			b.send(TargetID(dep), Unrequested{Kind: b.forwardKind(dep), Requester: b.id})
		}
	}
}

// handleDepAvailable clears dep from the unavailable set, if it is one of
// this target's dependencies.
func (b *base) handleDepAvailable(dep target.Id) {
	delete(b.unavailable, dep)
}

// handleDepInvalidated re-adds dep to the unavailable set and reports
// whether this target itself just transitioned into needing re-execution,
// mirroring target_actor_helper.rs's pattern of gating on !to_execute.
func (b *base) handleDepInvalidated(dep target.Id) bool {
	if !b.deps[dep] {
		return false
	}
	b.unavailable[dep] = true
	return b.invalidate()
}

// invalidate marks this target as needing re-execution, unless it already
// does, and reports whether a transition just happened.
func (b *base) invalidate() bool {
	if b.toExecute {
		return false
	}
	b.toExecute = true
	b.executed = false
	return true
}

// notifyBuildOk announces build availability to every current build
// requester.
func (b *base) notifyBuildOk() {
	for r := range b.requested.build {
		b.send(r, BuildOk{Dep: b.targetID()})
	}
}

// notifyServiceOk announces service/aggregate availability to every current
// service requester.
func (b *base) notifyServiceOk(hasService bool) {
	for r := range b.requested.service {
		b.send(r, ServiceOk{Dep: b.targetID(), HasService: hasService})
	}
}

// notifyBuildInvalidated announces loss of build availability to every
// current build requester.
func (b *base) notifyBuildInvalidated() {
	for r := range b.requested.build {
		b.send(r, BuildInvalidated{Dep: b.targetID()})
	}
}

// notifyServiceInvalidated announces loss of service availability to every
// current service requester.
func (b *base) notifyServiceInvalidated() {
	for r := range b.requested.service {
		b.send(r, ServiceInvalidated{Dep: b.targetID()})
	}
}

func (b *base) notifyExecutionError(err error) {
	b.out <- ExecutionError{Target: b.targetID(), Err: err}
}

// handleMessage applies any inbox message common to every actor kind and
// reports whether handling it just invalidated this target (a transition
// the caller must still propagate with the kind-appropriate
// notifyBuildInvalidated/notifyServiceInvalidated, since that differs per
// variant).
func (b *base) handleMessage(m Message) (becameInvalidated bool) {
	switch m := m.(type) {
	case Requested:
		b.handleRequested(m)
	case Unrequested:
		b.handleUnrequested(m)
	case BuildOk:
		b.handleDepAvailable(m.Dep)
	case ServiceOk:
		b.handleDepAvailable(m.Dep)
	case BuildInvalidated:
		return b.handleDepInvalidated(m.Dep)
	case ServiceInvalidated:
		return b.handleDepInvalidated(m.Dep)
	case Invalidated:
		return b.invalidate()
	}
	return false
}
