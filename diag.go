package relaylog

import (
	"fmt"
	"os"
)

// warnStderr writes a one-line internal diagnostic straight to stderr.
// The pipeline's own self-diagnostics cannot flow back through the
// pipeline itself without risking recursion, so they are written
// directly to os.Stderr rather than through a logger.
func warnStderr(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "relaylog: "+format+"\n", args...)
}
