package health

import "testing"

func TestCaptureVerdictDependsOnlyOnConsecutiveCount(t *testing.T) {
	t.Parallel()

	m := New()
	wantVerdicts := []Verdict{
		VerdictRetry, VerdictRetry, // 1, 2
		VerdictBackoff, VerdictBackoff, VerdictBackoff, // 3, 4, 5
		VerdictSkip, VerdictSkip, // 6, 7
	}
	for i, want := range wantVerdicts {
		got := m.OnCaptureError()
		if got != want {
			t.Errorf("consecutive=%d: verdict = %v, want %v", i+1, got, want)
		}
	}
}

func TestCaptureSuccessResetsCounter(t *testing.T) {
	t.Parallel()

	m := New()
	m.OnCaptureError()
	m.OnCaptureError()
	m.OnCaptureError() // now at backoff threshold
	m.OnCaptureSuccess()

	if got := m.OnCaptureError(); got != VerdictRetry {
		t.Errorf("first error after reset = %v, want retry", got)
	}
}

func TestTranscribeVerdictDependsOnlyOnConsecutiveCount(t *testing.T) {
	t.Parallel()

	m := New()
	wantVerdicts := []Verdict{VerdictRetry, VerdictRetry, VerdictRetry, VerdictSkip, VerdictSkip}
	for i, want := range wantVerdicts {
		got := m.OnTranscribeError()
		if got != want {
			t.Errorf("consecutive=%d: verdict = %v, want %v", i+1, got, want)
		}
	}
}

func TestLLMErrorLatchesDownWhenNotAlive(t *testing.T) {
	t.Parallel()

	m := New()
	verdict := m.OnLLMError(false)
	if verdict != VerdictTranscribeOnly {
		t.Errorf("verdict = %v, want transcribe_only", verdict)
	}
	if !m.IsLMDown() {
		t.Error("IsLMDown() = false, want true")
	}
}

func TestLLMErrorRetriesWhenAlive(t *testing.T) {
	t.Parallel()

	m := New()
	verdict := m.OnLLMError(true)
	if verdict != VerdictRetry {
		t.Errorf("verdict = %v, want retry", verdict)
	}
	if m.IsLMDown() {
		t.Error("IsLMDown() = true, want false")
	}
}

func TestLLMSuccessClearsLatchAndReportsRecovery(t *testing.T) {
	t.Parallel()

	m := New()
	m.SetLMDown(true)

	recovered := m.OnLLMSuccess()
	if !recovered {
		t.Error("OnLLMSuccess() recovered = false, want true")
	}
	if m.IsLMDown() {
		t.Error("IsLMDown() = true after success, want false")
	}

	recovered = m.OnLLMSuccess()
	if recovered {
		t.Error("second OnLLMSuccess() recovered = true, want false (already clear)")
	}
}

func TestResetClearsAllState(t *testing.T) {
	t.Parallel()

	m := New()
	m.OnCaptureError()
	m.OnTranscribeError()
	m.SetLMDown(true)

	m.Reset()

	if got := m.OnCaptureError(); got != VerdictRetry {
		t.Errorf("capture verdict after Reset = %v, want retry", got)
	}
	if m.IsLMDown() {
		t.Error("IsLMDown() = true after Reset, want false")
	}
}
