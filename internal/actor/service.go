package actor

import (
	"context"
	"os"

	"golang.org/x/xerrors"

	"github.com/distr1/zinoma/internal/shell"
	"github.com/distr1/zinoma/internal/target"
)

// runServiceActor is the event loop for a Service target, grounded on
// service_target_actor.rs's run(): restart the child process whenever the
// gate opens, stop it (SIGKILL + wait) on termination or before a restart.
func runServiceActor(st *target.ServiceTarget, b base, h *Handle, logf Logf) {
	var proc *os.Process

	stop := func() {
		if proc == nil {
			return
		}
		if logf != nil {
			logf("%s: stopping service", b.targetID())
		}
		if err := proc.Kill(); err != nil && logf != nil {
			logf("%s: failed to stop service: %v", b.targetID(), err)
		}
		_, _ = proc.Wait()
		proc = nil
	}

	for {
		if b.readyToExecute() {
			b.setExecutionStarted()
			stop()

			if logf != nil {
				logf("%s: starting service", b.targetID())
			}
			// A service's process is stopped explicitly via Kill, never via
			// context cancellation, so it is free to outlive any single gate
			// iteration: context.Background() here is deliberate.
			cmd := shell.Command(context.Background(), st.RunScript, st.ProjectDir)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Start(); err != nil {
				b.notifyExecutionError(xerrors.Errorf("%s: failed to start service: %w", st.ID, err))
			} else {
				proc = cmd.Process
				b.executed = !b.toExecute
				if b.executed {
					b.notifyServiceOk(true)
				}
			}
		}

		select {
		case <-h.terminate:
			stop()
			return
		case msg := <-h.inbox:
			if b.handleMessage(msg) {
				b.notifyServiceInvalidated()
			}
		}
	}
}
