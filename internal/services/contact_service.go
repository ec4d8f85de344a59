package services

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"bookmarket/server/internal/db"
	"bookmarket/server/internal/models"
)

// IContactService defines the interface for contact message operations.
type IContactService interface {
	CreateContactMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error)
	ListContactMessages(ctx context.Context) ([]models.ContactMessage, error)
}

// contactService implements IContactService.
type contactService struct {
	db *mongo.Database
}

// NewContactService creates a new ContactService.
func NewContactService(db *mongo.Database) IContactService {
	return &contactService{db: db}
}

// CreateContactMessage creates a new contact message document.
func (s *contactService) CreateContactMessage(ctx context.Context, msg *models.ContactMessage) (*models.ContactMessage, error) {
	stored, err := db.InsertOne(ctx, s.db.Collection(db.ContactsCollection), msg)
	if err != nil {
		return nil, storageError("create contact message", err)
	}
	return stored, nil
}

// ListContactMessages returns all contact messages, newest first.
func (s *contactService) ListContactMessages(ctx context.Context) ([]models.ContactMessage, error) {
	msgs, err := db.FindNewestFirst[models.ContactMessage](ctx, s.db.Collection(db.ContactsCollection))
	if err != nil {
		return nil, storageError("list contact messages", err)
	}
	return msgs, nil
}
