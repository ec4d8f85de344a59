package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookmarket/server/internal/db"
	"bookmarket/server/internal/models"
)

// TemplateNewContactMessage notifies the site owner of a contact submission.
const TemplateNewContactMessage = "new_contact_message"

// Built-in templates used when the database has no override.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateNewContactMessage: {
		TemplateID: TemplateNewContactMessage,
		Locale:     "en-US",
		Subject:    "[{{.app_name}}] New message from {{.name}}",
		Body: "{{.name}} <{{.email}}> wrote on {{.created_at}}:\n\n" +
			"{{.message}}\n\n" +
			"Message ID: {{.message_id}}",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db            *mongo.Database
	defaultLocale string
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database, defaultLocale string) *EmailTemplateService {
	return &EmailTemplateService{db: db, defaultLocale: defaultLocale}
}

// GetTemplate looks up templateID for locale, then for the default locale,
// then among the built-in templates.
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(db.EmailTemplatesCollection)

	locales := []string{locale}
	if s.defaultLocale != "" && s.defaultLocale != locale {
		locales = append(locales, s.defaultLocale)
	}
	for _, loc := range locales {
		var template models.EmailTemplate
		err := collection.FindOne(ctx, bson.M{"template_id": templateID, "locale": loc}).Decode(&template)
		if err == nil {
			return &template, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error retrieving template %s (locale: %s): %w", templateID, loc, err)
		}
	}

	if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
		return &defaultTemplate, nil
	}
	return nil, fmt.Errorf("template not found: %s (locale: %s)", templateID, locale)
}

// SaveTemplate upserts an email template keyed by template ID and locale.
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}
	update := bson.M{"$set": bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
		"subject":     template.Subject,
		"body":        template.Body,
	}}

	_, err := s.db.Collection(db.EmailTemplatesCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}
	return nil
}
