package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// cliProgress renders indexmgr.ProgressFunc phase transitions as progress
// bars, mirroring the teacher's CLIProgressReporter (one bar per phase,
// replaced whenever the phase name changes).
type cliProgress struct {
	quiet bool
	phase string
	bar   *progressbar.ProgressBar
}

func newCLIProgress(quiet bool) *cliProgress {
	return &cliProgress{quiet: quiet}
}

// onProgress satisfies indexmgr.ProgressFunc.
func (c *cliProgress) onProgress(processed, total int, phase string) {
	if c.quiet {
		return
	}
	if phase != c.phase {
		if c.bar != nil {
			c.bar.Finish()
			fmt.Println()
		}
		c.phase = phase
		c.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(phaseLabel(phase)),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
		)
	}
	if c.bar != nil {
		_ = c.bar.Set(processed)
	}
}

func (c *cliProgress) done() {
	if c.bar != nil {
		c.bar.Finish()
		fmt.Println()
	}
}

func phaseLabel(phase string) string {
	switch phase {
	case "analyzing":
		return "Scanning files"
	case "processing":
		return "Extracting symbols"
	case "embedding":
		return "Generating embeddings"
	default:
		return phase
	}
}
