package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"bookmarket/server/internal/config"
	"bookmarket/server/internal/email"
	"bookmarket/server/internal/models"
	"bookmarket/server/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
)

const contactNotificationMaxRetry = 5

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// EmailTaskPayload describes one templated email.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	ReplyTo    string                 `json:"reply_to,omitempty"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
}

// NewContactNotificationTask builds the email task that tells the site owner
// about a stored contact message. The message id doubles as the task id, so
// the same message is never queued twice.
func NewContactNotificationTask(cfg *config.Config, msg *models.ContactMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{
		To:         cfg.ContactNotifyTo,
		ReplyTo:    msg.Email,
		TemplateID: services.TemplateNewContactMessage,
		Locale:     cfg.DefaultLocale,
		Data: map[string]interface{}{
			"app_name":   cfg.AppName,
			"name":       msg.Name,
			"email":      msg.Email,
			"message":    msg.Message,
			"message_id": msg.ID.Hex(),
			"created_at": msg.CreatedAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal contact notification payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload,
		asynq.TaskID("contact:"+msg.ID.Hex()),
		asynq.MaxRetry(contactNotificationMaxRetry),
	), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg                  *config.Config
	emailSender          email.Sender
	emailTemplateService services.IEmailTemplateService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	emailTemplateService services.IEmailTemplateService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:                  cfg,
		emailSender:          emailSender,
		emailTemplateService: emailTemplateService,
	}
}

// SetupServer configures an Asynq server and its handler mux. The caller runs
// it with srv.Start(mux) and stops it with srv.Shutdown().
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Error: %v", task.Type(), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// headerSafe keeps user-supplied text on a single header line.
func headerSafe(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func render(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// HandleEmailDeliveryTask renders a stored template and sends it. Bad payloads
// and broken templates are not retried; send failures are.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.DefaultLocale
	}

	tmpl, err := p.emailTemplateService.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("email template not found: %w", asynq.SkipRetry)
	}

	subject, err := render(payload.TemplateID+".subject", tmpl.Subject, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render subject of %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}
	subject = headerSafe(subject)
	body, err := render(payload.TemplateID+".body", tmpl.Body, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render body of %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@example.com"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", payload.To)
	fmt.Fprintf(&sb, "From: %s\r\n", fromAddress)
	if payload.ReplyTo != "" {
		fmt.Fprintf(&sb, "Reply-To: %s\r\n", headerSafe(payload.ReplyTo))
	}
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "%s: %s\r\n", email.TemplateHeader, payload.TemplateID)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, []byte(sb.String())); err != nil {
		log.Printf("Email sending failed, will retry: %v", err)
		return err
	}

	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}
