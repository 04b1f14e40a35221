package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// Responder is the agent facade the WhatsApp service talks to. The
// production implementation is agent.Engine.
type Responder interface {
	Respond(ctx context.Context, history []anthropic.MessageParam, userText string) (string, error)
	ExtractPreferences(ctx context.Context, message string, current map[string]any) (map[string]any, error)
}

// apologyText is returned to the user when the agent or a provider fails.
// The webhook still acknowledges success to Twilio.
const apologyText = "Sorry, I'm having trouble processing your request. Please try again."

// messageLimit is WhatsApp's practical per-message character budget.
const messageLimit = 1600

// Reply is the outcome of one conversational turn. MediaURL set means the
// reply should be delivered as a media message.
type Reply struct {
	Text     string `json:"text,omitempty"`
	MediaURL string `json:"media_url,omitempty"`
}

// WhatsAppService orchestrates a turn: session resolution, preference
// extraction, agent invocation, and outbound delivery.
type WhatsAppService struct {
	sessions  *SessionManager
	responder Responder
	sender    MessageSender
}

// NewWhatsAppService wires the orchestration service.
func NewWhatsAppService(sessions *SessionManager, responder Responder, sender MessageSender) *WhatsAppService {
	return &WhatsAppService{
		sessions:  sessions,
		responder: responder,
		sender:    sender,
	}
}

// Reply processes one inbound message and returns the reply without sending
// it. It never fails: agent errors collapse to the apology text.
func (s *WhatsAppService) Reply(ctx context.Context, phone, text string) *Reply {
	session := s.sessions.GetOrCreate(phone)
	session.LockTurn()
	defer session.UnlockTurn()

	// Preference extraction is best-effort; a failed call never blocks the turn.
	if delta, err := s.responder.ExtractPreferences(ctx, text, session.PreferencesSnapshot()); err != nil {
		log.Printf("⚠️  Preference extraction failed for %s: %v", phone, err)
	} else {
		session.MergePreferences(delta)
	}

	prompt := text
	if prefs := session.PreferencesSnapshot(); len(prefs) > 0 {
		if prefsJSON, err := json.Marshal(prefs); err == nil {
			prompt = fmt.Sprintf("Current preferences: %s\n\nUser message: %s", prefsJSON, text)
		}
	}

	replyText, err := s.responder.Respond(ctx, session.History(), prompt)
	if err != nil {
		log.Printf("❌ Agent failure for %s: %v", phone, err)
		return &Reply{Text: apologyText}
	}

	session.AppendTurn(prompt, replyText)

	if url := ExtractURL(replyText); url != "" {
		return &Reply{MediaURL: url}
	}
	return &Reply{Text: replyText}
}

// HandleInbound processes one inbound message and delivers the reply through
// the message sender. Send failures are logged; the webhook caller still
// acknowledges the provider.
func (s *WhatsAppService) HandleInbound(ctx context.Context, phone, text string) {
	reply := s.Reply(ctx, phone, text)

	if reply.MediaURL != "" {
		if err := s.sender.SendWhatsAppMedia(phone, "", reply.MediaURL); err != nil {
			log.Printf("❌ Failed to deliver media to %s: %v", phone, err)
		}
		return
	}

	for _, chunk := range SplitMessage(reply.Text, messageLimit) {
		if err := s.sender.SendWhatsAppMessage(phone, chunk); err != nil {
			log.Printf("❌ Failed to deliver message to %s: %v", phone, err)
			return
		}
	}
}

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL finds the first HTTP or HTTPS URL in a string.
func ExtractURL(text string) string {
	return urlRe.FindString(text)
}

// SplitMessage splits a long message into chunks under the character limit,
// preferring to split at newlines. Oversized single lines are split by force.
func SplitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	for _, line := range strings.Split(text, "\n") {
		if current.Len()+len(line)+1 > limit {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimSpace(current.String()))
				current.Reset()
			}
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	// A single line can still exceed the limit on its own. Cuts back off to
	// a rune boundary so an emoji never gets sliced in half.
	var final []string
	for _, chunk := range chunks {
		for len(chunk) > limit {
			cut := limit
			for cut > 0 && !utf8.RuneStart(chunk[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			final = append(final, chunk[:cut])
			chunk = chunk[cut:]
		}
		if chunk != "" {
			final = append(final, chunk)
		}
	}
	return final
}
