package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"bookmarket/server/internal/config"
)

// MockEmailTTL is how long a captured message stays readable.
const MockEmailTTL = 5 * time.Minute

// MockEmail is the JSON document stored for each captured message.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"template_id"`
	SentAt     string `json:"sent_at"`
}

// MockEmailKey is the Redis key a message for recipient and templateID is
// stored under.
func MockEmailKey(recipient, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", recipient, templateID)
}

// RedisSender captures outgoing mail in Redis for end-to-end tests.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores the message once per recipient. The template id comes from the
// TemplateHeader, or "unknown" if the message has none.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID := "unknown"
	body := string(rawMessage)
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if id := msg.Header.Get(TemplateHeader); id != "" {
			templateID = id
		}
		if b, err := io.ReadAll(msg.Body); err == nil {
			body = strings.TrimRight(string(b), "\r\n")
		}
	}

	doc := MockEmail{
		To:         strings.Join(to, ", "),
		From:       s.cfg.SmtpFromAddress,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	for _, recipient := range to {
		key := MockEmailKey(recipient, templateID)
		if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		log.Printf("Mock email stored in Redis key '%s' (TTL: %v, Subject: %s)", key, MockEmailTTL, subject)
	}
	return nil
}
