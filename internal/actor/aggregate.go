package actor

// runAggregateActor is the event loop for an Aggregate target: it has no
// script of its own, so the execution gate opening just means "every
// dependency is available" — it immediately reports both build and service
// availability to whichever requesters are waiting on each kind (spec
// §4.5: "Aggregate: no work; immediately emits BuildOk(self) and
// ServiceOk{self, has_service=false} to requesters").
func runAggregateActor(b base, h *Handle) {
	for {
		if b.readyToExecute() {
			b.setExecutionStarted()
			b.executed = !b.toExecute
			if b.executed {
				b.notifyBuildOk()
				b.notifyServiceOk(false)
			}
		}

		select {
		case <-h.terminate:
			return
		case msg := <-h.inbox:
			if b.handleMessage(msg) {
				b.notifyBuildInvalidated()
				b.notifyServiceInvalidated()
			}
		}
	}
}
