package sync

import (
	"bufio"
	"fmt"
	"io"
)

// Acknowledger is the operator checkpoint for malformed roster cells:
// the offending text is surfaced and the run blocks until the operator
// acknowledges it, then the cell is skipped.
type Acknowledger interface {
	Acknowledge(monthLabel string, day int, rawText string)
}

// StdinAcknowledger prompts on out and waits for a line on in.
type StdinAcknowledger struct {
	In  io.Reader
	Out io.Writer
}

func (p *StdinAcknowledger) Acknowledge(monthLabel string, day int, rawText string) {
	fmt.Fprintf(p.Out, "Could not read shift for %s day %d: %q\nPress Enter to skip it and continue... ", monthLabel, day, rawText)
	// Wait for any input (or EOF when stdin is closed); either way the
	// record is skipped and the run resumes.
	_, _ = bufio.NewReader(p.In).ReadString('\n')
}

// AutoAcknowledger skips malformed cells without blocking, for
// unattended (cron) runs.
type AutoAcknowledger struct{}

func (AutoAcknowledger) Acknowledge(string, int, string) {}
