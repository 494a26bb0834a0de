// Package uisink notifies an observer of pipeline events: new transcript
// lines, translations, minutes updates, and status changes. Terminal/UI
// rendering itself is out of scope; this package only defines the
// notification surface the pipeline stages call into.
package uisink

import (
	"fmt"
	"io"
	"time"
)

// Controller receives pipeline events as they occur.
type Controller interface {
	OnTranscript(text string, ts time.Time)
	OnTranslation(text string, ts time.Time)
	OnMinutesUpdated(summary string)
	OnStatus(status string)
}

// Noop implements Controller by discarding every event.
type Noop struct{}

var _ Controller = Noop{}

func (Noop) OnTranscript(string, time.Time) {}
func (Noop) OnTranslation(string, time.Time) {}
func (Noop) OnMinutesUpdated(string)         {}
func (Noop) OnStatus(string)                 {}

// TerminalLine writes each event as a single line to an io.Writer
// (typically os.Stderr), matching the teacher's plain-line progress
// reporting rather than a full TUI.
type TerminalLine struct {
	Out io.Writer
}

var _ Controller = (*TerminalLine)(nil)

func (t *TerminalLine) OnTranscript(text string, ts time.Time) {
	fmt.Fprintf(t.Out, "[%s] [SYS] %s\n", ts.Format("15:04:05"), text)
}

func (t *TerminalLine) OnTranslation(text string, ts time.Time) {
	fmt.Fprintf(t.Out, "[%s] [->] %s\n", ts.Format("15:04:05"), text)
}

func (t *TerminalLine) OnMinutesUpdated(summary string) {
	fmt.Fprintf(t.Out, "[minutes updated, %d bytes]\n", len(summary))
}

func (t *TerminalLine) OnStatus(status string) {
	fmt.Fprintf(t.Out, "[status] %s\n", status)
}
