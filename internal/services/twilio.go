package services

import (
	"fmt"
	"log"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessageSender is the outbound messaging surface the WhatsApp service
// depends on. TwilioService is the production implementation.
type MessageSender interface {
	SendWhatsAppMessage(to string, body string) error
	SendWhatsAppMedia(to string, body string, mediaURL string) error
}

// LoggingSender logs outbound messages instead of sending them. Used when
// Twilio credentials are absent (local development, tests).
type LoggingSender struct{}

func (LoggingSender) SendWhatsAppMessage(to string, body string) error {
	log.Printf("📤 Response to %s (not sent - Twilio not configured): %s", to, body)
	return nil
}

func (LoggingSender) SendWhatsAppMedia(to string, body string, mediaURL string) error {
	log.Printf("📤 Media to %s (not sent - Twilio not configured): %s", to, mediaURL)
	return nil
}

type TwilioService struct {
	client *twilio.RestClient
	from   string // Twilio WhatsApp number, format "whatsapp:+14155238886"
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService() (*TwilioService, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM")

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
	}, nil
}

// SendWhatsAppMessage sends a WhatsApp text message via Twilio
func (t *TwilioService) SendWhatsAppMessage(to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	return nil
}

// SendWhatsAppMedia sends a WhatsApp message carrying a media attachment
// (image or PDF URL). Body may be empty for media-only messages.
func (t *TwilioService) SendWhatsAppMedia(to string, body string, mediaURL string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:%s", to))
	if body != "" {
		params.SetBody(body)
	}
	params.SetMediaUrl([]string{mediaURL})

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp media: %v", err)
		return err
	}

	log.Printf("✅ WhatsApp media sent! SID: %s", *resp.Sid)
	return nil
}
