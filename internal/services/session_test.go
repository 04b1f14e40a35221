package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_GetOrCreate(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	first := sm.GetOrCreate("+971501234567")
	require.NotNil(t, first)
	assert.Equal(t, "+971501234567", first.Phone)
	assert.Equal(t, 0, first.HistoryLen())

	second := sm.GetOrCreate("+971501234567")
	assert.Equal(t, first.SessionID, second.SessionID, "same phone must resolve to the same session")

	other := sm.GetOrCreate("+971509999999")
	assert.NotEqual(t, first.SessionID, other.SessionID)
}

func TestSessionManager_ClearStartsEmptyHistory(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	phone := "+971501234567"
	session := sm.GetOrCreate(phone)
	session.AppendTurn("show me villas", "🏠 Here are some properties...")
	require.Equal(t, 2, session.HistoryLen())

	assert.True(t, sm.Clear(phone))
	assert.False(t, sm.Clear(phone), "second clear must report no session")

	fresh := sm.GetOrCreate(phone)
	assert.Equal(t, 0, fresh.HistoryLen(), "cleared session must start with empty history")
	assert.NotEqual(t, session.SessionID, fresh.SessionID)
}

func TestSessionManager_ConcurrentClearAndGetOrCreate(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	phone := "+971501234567"

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			session := sm.GetOrCreate(phone)
			session.AppendTurn("hello", "hi")
		}()
		go func() {
			defer wg.Done()
			sm.Clear(phone)
		}()
	}
	wg.Wait()

	// The store must still be usable and internally consistent
	session := sm.GetOrCreate(phone)
	require.NotNil(t, session)
	assert.Equal(t, phone, session.Phone)
	assert.LessOrEqual(t, sm.ActiveCount(), 1)
}

func TestSessionManager_TTLExpiry(t *testing.T) {
	sm := NewSessionManager(20 * time.Millisecond)
	defer sm.Stop()

	first := sm.GetOrCreate("+971501234567")
	first.AppendTurn("hello", "hi")

	time.Sleep(50 * time.Millisecond)

	second := sm.GetOrCreate("+971501234567")
	assert.NotEqual(t, first.SessionID, second.SessionID, "expired session must be replaced")
	assert.Equal(t, 0, second.HistoryLen())
}

func TestSession_HistoryBounded(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	session := sm.GetOrCreate("+971501234567")
	for i := 0; i < 30; i++ {
		session.AppendTurn(fmt.Sprintf("message %d", i), fmt.Sprintf("reply %d", i))
	}

	assert.Equal(t, maxHistoryMessages, session.HistoryLen())
	assert.Equal(t, 0, session.HistoryLen()%2, "history must stay in user/assistant pairs")
}

func TestSession_MergePreferences(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	session := sm.GetOrCreate("+971501234567")
	session.MergePreferences(map[string]any{"location": "Dubai Marina", "bedrooms": "2"})
	session.MergePreferences(map[string]any{"bedrooms": "3"})

	prefs := session.PreferencesSnapshot()
	assert.Equal(t, "Dubai Marina", prefs["location"])
	assert.Equal(t, "3", prefs["bedrooms"])
}

func TestSessionManager_Stats(t *testing.T) {
	sm := NewSessionManager(0)
	defer sm.Stop()

	sm.GetOrCreate("+971501111111")
	sm.GetOrCreate("+971502222222")

	stats := sm.GetSessionStats()
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 2, stats.TotalSessions)
}
