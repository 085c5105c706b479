package validation

import (
	"context"
	"time"

	"mediacheck/internal/config"
	"mediacheck/internal/services"
)

// Validator checks whether one media file decodes cleanly.
type Validator interface {
	Validate(ctx context.Context, path string) services.Outcome
}

// FFmpegValidator decodes the whole file to the null muxer. Any decode error
// makes ffmpeg exit non-zero.
type FFmpegValidator struct {
	Binary  string
	Timeout time.Duration
	Runner  services.Runner
}

// NewFFmpegValidator builds a validator from tool settings. A nil runner uses
// services.NewCommandRunner.
func NewFFmpegValidator(cfg *config.Config, runner services.Runner) *FFmpegValidator {
	if runner == nil {
		runner = services.NewCommandRunner()
	}
	return &FFmpegValidator{
		Binary:  cfg.Tools.FFmpeg,
		Timeout: cfg.ValidateTimeout(),
		Runner:  runner,
	}
}

// Validate runs ffmpeg against path.
func (v *FFmpegValidator) Validate(ctx context.Context, path string) services.Outcome {
	return v.Runner.Run(ctx, v.Timeout, v.Binary, validateArgs(path)...)
}

func validateArgs(path string) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-v", "error",
		"-xerror",
		"-i", path,
		"-f", "null",
		"-",
	}
}
