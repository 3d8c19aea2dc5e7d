package assessment

import "sync"

// Manager holds the live session for each student. One session per student;
// sessions are ephemeral and never shared across students or requests for
// different students.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: map[string]*Session{}}
}

// Session returns the student's live session, creating a fresh one on the
// upload screen if none exists.
func (m *Manager) Session(student string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[student]
	if !ok {
		s = NewSession(student)
		m.sessions[student] = s
	}
	return s
}

// Drop forgets the student's session, e.g. on logout.
func (m *Manager) Drop(student string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, student)
}
