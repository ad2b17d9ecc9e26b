package archive

import (
	"fmt"
	"sync"
)

// Memory implements Archiver with in-memory storage.
// Used only for testing.
type Memory struct {
	mu    sync.Mutex
	next  int
	saved map[string]Request

	// FailNext makes the next Save report a filename collision.
	FailNext bool
}

// NewMemory creates a new in-memory archiver
func NewMemory() *Memory {
	return &Memory{saved: make(map[string]Request)}
}

func (m *Memory) Save(req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return "", ErrFileExists
	}

	m.next++
	name := fmt.Sprintf("%s-%d", req.ClientIP, m.next)
	m.saved[name] = req

	return name, nil
}

// Saved returns the archived request for a filename.
func (m *Memory) Saved(name string) (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.saved[name]
	return req, ok
}

// Len reports how many requests have been archived.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.saved)
}
