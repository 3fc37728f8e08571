package newstrader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// DebugExchange is one recorded (prompt, response) pair within a resolution.
type DebugExchange struct {
	Step     string `json:"step"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// DebugEntry collects every exchange of one asset's resolution, plus which
// tier finally produced the result.
type DebugEntry struct {
	Asset     string          `json:"asset"`
	MultiStep bool            `json:"multi_step"`
	Outcome   string          `json:"outcome,omitempty"`
	Exchanges []DebugExchange `json:"exchanges"`
}

// DebugSession captures one pipeline run's worth of raw model traffic for
// offline diagnosis. All methods are nil-safe so call sites need no guards
// when capture is disabled. Entries are appended from a single control flow,
// so no locking is needed.
type DebugSession struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	StartedAt time.Time     `json:"started_at"`
	Entries   []*DebugEntry `json:"entries"`
}

// NewDebugSession starts a capture for the given backend and model.
func NewDebugSession(provider, model string) *DebugSession {
	return &DebugSession{
		Provider:  provider,
		Model:     model,
		StartedAt: time.Now(),
	}
}

// NewEntry appends and returns an entry for one asset's resolution.
func (s *DebugSession) NewEntry(asset string) *DebugEntry {
	if s == nil {
		return nil
	}
	entry := &DebugEntry{Asset: asset}
	s.Entries = append(s.Entries, entry)
	return entry
}

// Record appends one exchange to the entry.
func (e *DebugEntry) Record(step, prompt, response string, err error) {
	if e == nil {
		return
	}
	exchange := DebugExchange{Step: step, Prompt: prompt, Response: response}
	if err != nil {
		exchange.Error = err.Error()
	}
	e.Exchanges = append(e.Exchanges, exchange)
}

// SetOutcome records which tier produced the final result.
func (e *DebugEntry) SetOutcome(tier string, multiStep bool) {
	if e == nil {
		return
	}
	e.Outcome = tier
	e.MultiStep = multiStep
}

// JSON serializes the session as one indented document.
func (s *DebugSession) JSON() ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return json.MarshalIndent(s, "", "  ")
}

// WriteFile flushes the session to disk, creating parent directories as
// needed. A nil session writes nothing.
func (s *DebugSession) WriteFile(path string) error {
	if s == nil {
		return nil
	}
	data, err := s.JSON()
	if err != nil {
		return WrapError(ErrCodeInternal, "failed to serialize debug session", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return WrapError(ErrCodeInternal, "failed to create debug directory", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return WrapError(ErrCodeInternal, "failed to write debug session", err)
	}
	return nil
}
