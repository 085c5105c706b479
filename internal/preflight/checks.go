package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"mediacheck/internal/config"
	"mediacheck/internal/deps"
	"mediacheck/internal/transfer"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTransmission verifies the transfer service answers RPC calls. The
// result is always optional because the liveness oracle fails open.
func CheckTransmission(ctx context.Context, cfg *config.Config) Result {
	const name = "Transmission"

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := transfer.NewClient(
		cfg.TransmissionEndpoint(),
		cfg.Transmission.Username,
		cfg.Transmission.Password,
		5*time.Second,
	)
	if err != nil {
		return Result{Name: name, Optional: true, Detail: err.Error()}
	}
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Optional: true, Detail: summarizeRPCError(err)}
	}
	return Result{Name: name, Optional: true, Passed: true, Detail: "RPC reachable"}
}

// CheckSystemDeps evaluates the external tools needed by the enabled stages.
// Both the scan preflight and the CLI deps command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(Requirements(cfg, false))
}

// Requirements lists the external tools. With all set, tools for disabled
// stages are included as optional entries.
func Requirements(cfg *config.Config, all bool) []deps.Requirement {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Tools.FFmpeg,
			Description: "Required for media validation",
		},
	}
	if cfg.Archives.Decompress || all {
		requirements = append(requirements, deps.Requirement{
			Name:        "unrar",
			Command:     cfg.Tools.Unrar,
			Description: "Required for archive decompression",
			Optional:    !cfg.Archives.Decompress,
		})
	}
	if cfg.Archives.Merge || all {
		requirements = append(requirements, deps.Requirement{
			Name:        "mkvmerge",
			Command:     cfg.Tools.Mkvmerge,
			Description: "Required for remuxing media and subtitle tracks",
			Optional:    !cfg.Archives.Merge,
		})
	}
	return requirements
}

// summarizeRPCError produces a human-readable summary for RPC check failures.
func summarizeRPCError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (transfer service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (transfer service unreachable)"
	}
	return err.Error()
}
