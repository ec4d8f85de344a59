package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookmarket/server/internal/config"
	"bookmarket/server/internal/email"
	"bookmarket/server/internal/models"
	"bookmarket/server/internal/services"
	"bookmarket/server/internal/tasks"
)

// --- Mocks ---

type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func newContactTask(t *testing.T, cfg *config.Config) (*asynq.Task, *models.ContactMessage) {
	msg := &models.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "Is Dune still available?"}
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	task, err := tasks.NewContactNotificationTask(cfg, msg)
	require.NoError(t, err)
	return task, msg
}

// --- Tests ---

func TestNewContactNotificationTask_Payload(t *testing.T) {
	cfg := &config.Config{ContactNotifyTo: "owner@example.com", DefaultLocale: "en-US", AppName: "Book Market"}
	task, msg := newContactTask(t, cfg)

	assert.Equal(t, tasks.TypeEmailDelivery, task.Type())

	var payload tasks.EmailTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "owner@example.com", payload.To)
	assert.Equal(t, "ada@example.com", payload.ReplyTo)
	assert.Equal(t, services.TemplateNewContactMessage, payload.TemplateID)
	assert.Equal(t, "Ada", payload.Data["name"])
	assert.Equal(t, msg.ID.Hex(), payload.Data["message_id"])
	assert.Equal(t, "2024-03-01T12:00:00Z", payload.Data["created_at"])
}

func TestHandleEmailDeliveryTask_ContactNotification(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	cfg := &config.Config{
		ContactNotifyTo: "owner@example.com",
		DefaultLocale:   "en-US",
		AppName:         "Book Market",
		SmtpFromAddress: "noreply@bookmarket.example.com",
	}
	p := tasks.NewTaskProcessor(cfg, mockEmailSender, mockTmplService)
	task, msg := newContactTask(t, cfg)

	mockTmplService.On("GetTemplate", mock.Anything, services.TemplateNewContactMessage, "en-US").Return(&models.EmailTemplate{
		Subject: "[{{.app_name}}] New message from {{.name}}",
		Body:    "{{.message}} ({{.message_id}})",
	}, nil)

	expectedSubject := "[Book Market] New message from Ada"
	mockEmailSender.On("Send",
		mock.Anything,
		[]string{"owner@example.com"},
		expectedSubject,
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, "To: owner@example.com\r\n")
			assert.Contains(t, msgStr, "From: noreply@bookmarket.example.com\r\n")
			assert.Contains(t, msgStr, "Reply-To: ada@example.com\r\n")
			assert.Contains(t, msgStr, fmt.Sprintf("Subject: %s\r\n", expectedSubject))
			assert.Contains(t, msgStr, email.TemplateHeader+": "+services.TemplateNewContactMessage)
			assert.Contains(t, msgStr, "Is Dune still available? ("+msg.ID.Hex()+")")
			return true
		}),
	).Return(nil)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.NoError(t, err)
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertExpectations(t)
}

func TestHandleEmailDeliveryTask_TemplateNotFound(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{DefaultLocale: "en-US"}, mockEmailSender, mockTmplService)

	payloadBytes, _ := json.Marshal(tasks.EmailTaskPayload{
		To:         "test@example.com",
		TemplateID: "nonexistent_template",
	})
	task := asynq.NewTask(tasks.TypeEmailDelivery, payloadBytes)

	mockTmplService.On("GetTemplate", mock.Anything, "nonexistent_template", "en-US").Return(nil, assert.AnError)

	err := p.HandleEmailDeliveryTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Error should be SkipRetry for template not found")
	mockTmplService.AssertExpectations(t)
	mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleEmailDeliveryTask_PermanentFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		tmpl    *models.EmailTemplate
	}{
		{name: "malformed payload", payload: []byte("{not json")},
		{name: "no recipient", payload: []byte(`{"template_id":"x","data":{}}`)},
		{
			name:    "missing template key",
			payload: []byte(`{"to":"a@b.co","template_id":"x","data":{}}`),
			tmpl:    &models.EmailTemplate{Subject: "Hi {{.name}}", Body: "b"},
		},
		{
			name:    "broken template",
			payload: []byte(`{"to":"a@b.co","template_id":"x","data":{"name":"Ada"}}`),
			tmpl:    &models.EmailTemplate{Subject: "Hi", Body: "{{.name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEmailSender := new(MockEmailSender)
			mockTmplService := new(MockEmailTemplateService)
			if tt.tmpl != nil {
				mockTmplService.On("GetTemplate", mock.Anything, "x", "en-US").Return(tt.tmpl, nil)
			}
			p := tasks.NewTaskProcessor(&config.Config{DefaultLocale: "en-US"}, mockEmailSender, mockTmplService)

			err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, tt.payload))

			assert.ErrorIs(t, err, asynq.SkipRetry)
			mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandleEmailDeliveryTask_SendFailureIsRetried(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	mockTmplService := new(MockEmailTemplateService)
	p := tasks.NewTaskProcessor(&config.Config{DefaultLocale: "en-US"}, mockEmailSender, mockTmplService)

	mockTmplService.On("GetTemplate", mock.Anything, "x", "en-US").Return(&models.EmailTemplate{Subject: "Hi {{.name}}\nInjected: yes", Body: "b"}, nil)
	mockEmailSender.On("Send", mock.Anything, []string{"a@b.co"}, "Hi Ada Injected: yes", mock.Anything).Return(errors.New("relay down"))

	payload := []byte(`{"to":"a@b.co","template_id":"x","data":{"name":"Ada"}}`)
	err := p.HandleEmailDeliveryTask(context.Background(), asynq.NewTask(tasks.TypeEmailDelivery, payload))

	assert.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	mockEmailSender.AssertExpectations(t)
}
