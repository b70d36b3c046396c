// Package shell runs user-provided scripts through the platform shell, the
// same way the teacher's build step shells out to an external build command
// (internal/batch.scheduler.build): os/exec.CommandContext, directory set on
// the command, output wired by the caller.
package shell

import (
	"context"
	"os"
	"os/exec"
	"runtime"
)

// Command builds an *exec.Cmd that runs script through the platform shell in
// dir, per spec §6: `/bin/sh -ce <script>` on Unix, `%COMSPEC% /C <script>`
// (falling back to cmd.exe) on Windows.
func Command(ctx context.Context, script, dir string) *exec.Cmd {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		comspec := os.Getenv("COMSPEC")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		cmd = exec.CommandContext(ctx, comspec, "/C", script)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-ce", script)
	}
	cmd.Dir = dir
	return cmd
}
