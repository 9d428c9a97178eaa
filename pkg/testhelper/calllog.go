package testhelper

import "sync"

// CallLog records outbound calls across fakes in the order they were made.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) Record(name string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

// Calls returns a copy of the recorded call names.
func (l *CallLog) Calls() []string {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// Count returns how many times name was recorded.
func (l *CallLog) Count(name string) int {
	n := 0
	for _, c := range l.Calls() {
		if c == name {
			n++
		}
	}
	return n
}
