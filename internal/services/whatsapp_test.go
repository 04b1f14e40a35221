package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	mu         sync.Mutex
	reply      string
	err        error
	prefs      map[string]any
	prefsErr   error
	lastPrompt string
	calls      int
}

func (f *fakeResponder) Respond(_ context.Context, _ []anthropic.MessageParam, userText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastPrompt = userText
	return f.reply, f.err
}

func (f *fakeResponder) ExtractPreferences(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
	if f.prefsErr != nil {
		return map[string]any{}, f.prefsErr
	}
	if f.prefs == nil {
		return map[string]any{}, nil
	}
	return f.prefs, nil
}

type sentMessage struct {
	To       string
	Body     string
	MediaURL string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendWhatsAppMessage(to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body})
	return f.err
}

func (f *fakeSender) SendWhatsAppMedia(to, body, mediaURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{To: to, Body: body, MediaURL: mediaURL})
	return f.err
}

func newTestService(responder *fakeResponder, sender *fakeSender) (*WhatsAppService, *SessionManager) {
	sm := NewSessionManager(0)
	return NewWhatsAppService(sm, responder, sender), sm
}

func TestWhatsAppService_TextReply(t *testing.T) {
	responder := &fakeResponder{reply: "Hello! How can I help you find a property today?"}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	svc.HandleInbound(context.Background(), "+971501234567", "hi")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "+971501234567", sender.sent[0].To)
	assert.Equal(t, responder.reply, sender.sent[0].Body)
	assert.Empty(t, sender.sent[0].MediaURL)
}

func TestWhatsAppService_MediaReply(t *testing.T) {
	responder := &fakeResponder{reply: "https://cdn.example.com/skyscape-avenue.jpg"}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	svc.HandleInbound(context.Background(), "+971501234567", "Send me an image of Skyscape Avenue")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "https://cdn.example.com/skyscape-avenue.jpg", sender.sent[0].MediaURL)
	assert.Empty(t, sender.sent[0].Body, "media messages carry no body text")
}

func TestWhatsAppService_AgentFailureSendsApology(t *testing.T) {
	responder := &fakeResponder{err: errors.New("model unavailable")}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	svc.HandleInbound(context.Background(), "+971501234567", "hi")

	require.Len(t, sender.sent, 1)
	assert.Equal(t, apologyText, sender.sent[0].Body)

	// The failed turn must not be recorded
	assert.Equal(t, 0, sm.GetOrCreate("+971501234567").HistoryLen())
}

func TestWhatsAppService_UnknownPropertyStaysGraceful(t *testing.T) {
	responder := &fakeResponder{reply: `I couldn't find a property called "Atlantis Towers". Ask me to list our properties if you'd like to see what's available.`}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	reply := svc.Reply(context.Background(), "+971501234567", "Send me the brochure for Atlantis Towers")

	assert.Empty(t, reply.MediaURL)
	assert.Contains(t, reply.Text, "couldn't find a property")
}

func TestWhatsAppService_PreferencesIncludedInPrompt(t *testing.T) {
	responder := &fakeResponder{
		reply: "ok",
		prefs: map[string]any{"location": "Dubai Marina"},
	}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	svc.Reply(context.Background(), "+971501234567", "show me apartments")

	assert.Contains(t, responder.lastPrompt, "Current preferences:")
	assert.Contains(t, responder.lastPrompt, "Dubai Marina")
	assert.Contains(t, responder.lastPrompt, "show me apartments")
}

func TestWhatsAppService_PreferenceExtractionFailureIsNonFatal(t *testing.T) {
	responder := &fakeResponder{reply: "ok", prefsErr: errors.New("llm down")}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	reply := svc.Reply(context.Background(), "+971501234567", "hello")
	assert.Equal(t, "ok", reply.Text)
}

func TestWhatsAppService_LongReplyIsChunked(t *testing.T) {
	lines := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		lines = append(lines, "This property listing line is long enough to matter.")
	}
	responder := &fakeResponder{reply: strings.Join(lines, "\n")}
	sender := &fakeSender{}
	svc, sm := newTestService(responder, sender)
	defer sm.Stop()

	svc.HandleInbound(context.Background(), "+971501234567", "list everything")

	require.Greater(t, len(sender.sent), 1)
	for _, msg := range sender.sent {
		assert.LessOrEqual(t, len(msg.Body), messageLimit)
	}
}

func TestExtractURL(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.jpg", ExtractURL("here: https://cdn.example.com/a.jpg"))
	assert.Equal(t, "http://example.com/b.pdf", ExtractURL("http://example.com/b.pdf trailing"))
	assert.Empty(t, ExtractURL("no links here"))
}

func TestSplitMessage(t *testing.T) {
	t.Run("short message untouched", func(t *testing.T) {
		chunks := SplitMessage("hello", messageLimit)
		assert.Equal(t, []string{"hello"}, chunks)
	})

	t.Run("splits at newlines", func(t *testing.T) {
		text := strings.Repeat("line one is here\n", 200)
		chunks := SplitMessage(text, 100)
		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 100)
		}
	})

	t.Run("forces split of oversized single line", func(t *testing.T) {
		text := strings.Repeat("x", 350)
		chunks := SplitMessage(text, 100)
		assert.Len(t, chunks, 4)
	})

	t.Run("never cuts a rune in half", func(t *testing.T) {
		text := strings.Repeat("🏠é", 40)
		chunks := SplitMessage(text, 13)
		require.Greater(t, len(chunks), 1)
		var rejoined strings.Builder
		for _, chunk := range chunks {
			assert.True(t, utf8.ValidString(chunk), "chunk %q is not valid UTF-8", chunk)
			assert.LessOrEqual(t, len(chunk), 13)
			rejoined.WriteString(chunk)
		}
		assert.Equal(t, text, rejoined.String())
	})
}
