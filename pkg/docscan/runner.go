package docscan

import (
	"bytes"
	"context"
	"log"
	"os/exec"
	"time"
)

// Runner executes an external binary. The indirection exists so tests can
// stub pdftoppm without a poppler install.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

// ExecRunner returns a Runner backed by os/exec.
func ExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	err := cmd.Run()
	if err != nil {
		log.Printf("exec %s failed after %dms: %v stderr=%q", name, time.Since(start).Milliseconds(), err, snippet(errb.String(), 512))
	}
	return out.Bytes(), errb.Bytes(), err
}

// snippet shortens a string for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
