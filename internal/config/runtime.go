package config

import (
	"os"

	"github.com/mattn/go-isatty"
)

// EnvTest marks a process as running under automated tests
const EnvTest = "ACTIVITYTRACKER_TEST"

// RuntimeContext describes the process environment. It is computed once by
// main and handed down so that library code never inspects the terminal.
type RuntimeContext struct {
	Interactive bool
	Test        bool
}

// DetectRuntime inspects out and the environment
func DetectRuntime(out *os.File) RuntimeContext {
	rc := RuntimeContext{Test: os.Getenv(EnvTest) != ""}
	if out != nil {
		fd := out.Fd()
		rc.Interactive = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	if rc.Test {
		rc.Interactive = false
	}
	return rc
}
