// Package server is the demo backend: it keeps per-session conversation
// memory, shortlists widgets for each user message, runs the model's
// tool-calling loop and serves the HTTP contract the chat client speaks.
package server

import (
	"sync"

	"github.com/jask/wipchat/internal/llm"
)

// LastKMemory keeps the most recent k messages per session. When the
// window is full the oldest message is dropped. Sessions are created on
// first touch.
type LastKMemory struct {
	mu       sync.Mutex
	k        int
	sessions map[string][]llm.Message
}

func NewLastKMemory(k int) *LastKMemory {
	if k < 1 {
		k = 1
	}
	return &LastKMemory{k: k, sessions: map[string][]llm.Message{}}
}

// Append adds msg at the end of the window, evicting the oldest message
// when full.
func (m *LastKMemory) Append(session string, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.sessions[session]
	if len(h) >= m.k {
		h = h[1:]
	}
	m.sessions[session] = append(h, msg)
}

// ReinsertSystem places msg at the front of the window, evicting the
// oldest entry first when full. The system prompt is rebuilt every turn
// with a fresh widget shortlist, so any earlier system message is
// replaced rather than accumulated.
func (m *LastKMemory) ReinsertSystem(session string, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.sessions[session]
	if len(h) > 0 && h[0].Role == llm.RoleSystem {
		h = h[1:]
	}
	if len(h) >= m.k {
		h = h[1:]
	}
	m.sessions[session] = append([]llm.Message{msg}, h...)
}

// History returns a copy of the session's window, oldest first.
func (m *LastKMemory) History(session string) []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.Message(nil), m.sessions[session]...)
}

// Len reports the current window size for a session.
func (m *LastKMemory) Len(session string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[session])
}
