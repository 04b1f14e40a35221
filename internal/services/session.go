package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// maxHistoryMessages bounds a session's conversation buffer. Oldest turns are
// dropped in user/assistant pairs so the transcript always starts on a user
// message.
const maxHistoryMessages = 40

// Session holds the conversational state for one phone number.
type Session struct {
	SessionID   string         `json:"session_id"`
	Phone       string         `json:"phone"`
	CreatedAt   time.Time      `json:"created_at"`
	LastActive  time.Time      `json:"last_active"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Preferences map[string]any `json:"preferences"`

	mu      sync.Mutex
	history []anthropic.MessageParam

	// turnMu serializes whole conversational turns so two concurrent
	// messages from the same phone cannot interleave history updates.
	turnMu sync.Mutex
}

// LockTurn serializes a full inbound-message turn for this session.
func (s *Session) LockTurn() { s.turnMu.Lock() }

// UnlockTurn releases the turn lock.
func (s *Session) UnlockTurn() { s.turnMu.Unlock() }

// History returns a copy of the conversation buffer.
func (s *Session) History() []anthropic.MessageParam {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]anthropic.MessageParam, len(s.history))
	copy(out, s.history)
	return out
}

// HistoryLen reports the number of buffered messages.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// AppendTurn records one exchanged turn and trims the buffer.
func (s *Session) AppendTurn(userText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history,
		anthropic.NewUserMessage(anthropic.NewTextBlock(userText)),
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(assistantText)),
	)
	if len(s.history) > maxHistoryMessages {
		drop := len(s.history) - maxHistoryMessages
		if drop%2 != 0 {
			drop++
		}
		s.history = s.history[drop:]
	}
}

// MergePreferences folds a preference delta into the session.
func (s *Session) MergePreferences(delta map[string]any) {
	if len(delta) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range delta {
		s.Preferences[k] = v
	}
}

// PreferencesSnapshot returns a copy of the stored preferences.
func (s *Session) PreferencesSnapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.Preferences))
	for k, v := range s.Preferences {
		out[k] = v
	}
	return out
}

// SessionManager manages per-phone conversation sessions.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	ttl      time.Duration // 0 disables expiry
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager. A positive ttl enables idle
// expiry with a background cleanup routine.
func NewSessionManager(ttl time.Duration) *SessionManager {
	sm := &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go sm.cleanupExpiredSessions()
	}
	return sm
}

// Stop halts the cleanup routine.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

// GetOrCreate returns the session for a phone number, creating it lazily.
// An expired session is replaced by a fresh one.
func (sm *SessionManager) GetOrCreate(phone string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	if session, exists := sm.sessions[phone]; exists && !sm.expired(session, now) {
		session.LastActive = now
		if sm.ttl > 0 {
			session.ExpiresAt = now.Add(sm.ttl)
		}
		return session
	}

	session := &Session{
		SessionID:   fmt.Sprintf("SES%d", now.UnixNano()),
		Phone:       phone,
		CreatedAt:   now,
		LastActive:  now,
		Preferences: make(map[string]any),
	}
	if sm.ttl > 0 {
		session.ExpiresAt = now.Add(sm.ttl)
	}
	sm.sessions[phone] = session
	log.Printf("Session created for %s", phone)
	return session
}

// Clear removes a session. Returns true when one existed.
func (sm *SessionManager) Clear(phone string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	_, existed := sm.sessions[phone]
	delete(sm.sessions, phone)
	if existed {
		log.Printf("Session cleared for %s", phone)
	}
	return existed
}

// ActiveCount returns the number of live sessions.
func (sm *SessionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, session := range sm.sessions {
		if !sm.expired(session, now) {
			count++
		}
	}
	return count
}

// SessionStats provides session statistics for the monitoring surface.
type SessionStats struct {
	ActiveSessions         int     `json:"active_sessions"`
	TotalSessions          int     `json:"total_sessions"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
}

// GetSessionStats returns current session statistics.
func (sm *SessionManager) GetSessionStats() *SessionStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	stats := &SessionStats{TotalSessions: len(sm.sessions)}

	now := time.Now()
	totalDuration := 0.0
	for _, session := range sm.sessions {
		if sm.expired(session, now) {
			continue
		}
		stats.ActiveSessions++
		totalDuration += now.Sub(session.CreatedAt).Minutes()
	}
	if stats.ActiveSessions > 0 {
		stats.AverageDurationMinutes = totalDuration / float64(stats.ActiveSessions)
	}
	return stats
}

func (sm *SessionManager) expired(session *Session, now time.Time) bool {
	return sm.ttl > 0 && now.After(session.ExpiresAt)
}

// cleanupExpiredSessions periodically removes idle sessions.
func (sm *SessionManager) cleanupExpiredSessions() {
	interval := sm.ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.stop:
			return
		case <-ticker.C:
			sm.mu.Lock()
			now := time.Now()
			for phone, session := range sm.sessions {
				if sm.expired(session, now) {
					delete(sm.sessions, phone)
					log.Printf("Cleaned up expired session for %s", phone)
				}
			}
			sm.mu.Unlock()
		}
	}
}
