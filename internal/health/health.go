// Package health tracks consecutive per-stage error counts and the LM-down
// latch, turning them into retry/backoff/skip verdicts, and runs the
// one-time startup preflight.
package health

import "sync"

// Verdict is the action a stage should take in response to an error.
type Verdict int

const (
	// VerdictRetry means try again immediately (after any stage-local delay).
	VerdictRetry Verdict = iota
	// VerdictBackoff means retry, but after a longer cooldown.
	VerdictBackoff
	// VerdictSkip means give up on this item and move on.
	VerdictSkip
	// VerdictTranscribeOnly means the LM is considered down: translation
	// should no-op and transcription continues as the log of record.
	VerdictTranscribeOnly
)

func (v Verdict) String() string {
	switch v {
	case VerdictRetry:
		return "retry"
	case VerdictBackoff:
		return "backoff"
	case VerdictSkip:
		return "skip"
	case VerdictTranscribeOnly:
		return "transcribe_only"
	default:
		return "unknown"
	}
}

const (
	captureBackoffThreshold = 3
	captureSkipThreshold    = 5
	transcribeSkipThreshold = 3
)

// Monitor holds the consecutive-error counters and LM-down latch described
// by the health policy table. Each stage mutates only its own counters;
// the LM-down latch is set and cleared by the translate stage, pre-latched
// by preflight through SetLMDown, and cleared by Reset.
type Monitor struct {
	mu sync.Mutex

	captureConsecutive   int
	transcribeConsecutive int
	lmDown               bool
}

// New creates an empty Monitor.
func New() *Monitor {
	return &Monitor{}
}

// OnCaptureError bumps the capture error counter and returns the verdict
// for the current consecutive count.
func (m *Monitor) OnCaptureError() Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureConsecutive++
	switch {
	case m.captureConsecutive > captureSkipThreshold:
		return VerdictSkip
	case m.captureConsecutive >= captureBackoffThreshold:
		return VerdictBackoff
	default:
		return VerdictRetry
	}
}

// OnCaptureSuccess resets the capture error counter.
func (m *Monitor) OnCaptureSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureConsecutive = 0
}

// OnTranscribeError bumps the transcribe error counter and returns the
// verdict for the current consecutive count.
func (m *Monitor) OnTranscribeError() Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcribeConsecutive++
	if m.transcribeConsecutive > transcribeSkipThreshold {
		return VerdictSkip
	}
	return VerdictRetry
}

// OnTranscribeSuccess resets the transcribe error counter.
func (m *Monitor) OnTranscribeSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcribeConsecutive = 0
}

// OnLLMError records an LM call failure. isAlive is the result of a fresh
// liveness probe taken by the caller: if the LM is not alive, the down
// latch is set and the verdict is transcribe_only; otherwise the failure
// is treated as a transient retry.
func (m *Monitor) OnLLMError(isAlive bool) Verdict {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !isAlive {
		m.lmDown = true
		return VerdictTranscribeOnly
	}
	return VerdictRetry
}

// OnLLMSuccess clears the down latch if it was set, reporting whether a
// recovery just occurred (for logging).
func (m *Monitor) OnLLMSuccess() (recovered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recovered = m.lmDown
	m.lmDown = false
	return recovered
}

// IsLMDown reports whether the LM-down latch is currently set.
func (m *Monitor) IsLMDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lmDown
}

// SetLMDown pre-latches the degraded mode, used by preflight when the
// startup liveness probe fails.
func (m *Monitor) SetLMDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lmDown = down
}

// Reset clears all counters and the down latch, used by the pipeline's
// reset operation.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captureConsecutive = 0
	m.transcribeConsecutive = 0
	m.lmDown = false
}
