package services

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"bookmarket/server/internal/db"
	"bookmarket/server/internal/models"
)

// IBookService defines the interface for listing operations.
type IBookService interface {
	CreateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	ListBooks(ctx context.Context) ([]models.Book, error)
}

// bookService implements IBookService.
type bookService struct {
	db *mongo.Database
}

// NewBookService creates a new BookService.
func NewBookService(db *mongo.Database) IBookService {
	return &bookService{db: db}
}

// CreateBook persists a validated listing and returns it with its ID and
// creation time.
func (s *bookService) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	stored, err := db.InsertOne(ctx, s.db.Collection(db.BooksCollection), book)
	if err != nil {
		return nil, storageError("create book", err)
	}
	return stored, nil
}

// ListBooks returns all listings, newest first.
func (s *bookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	books, err := db.FindNewestFirst[models.Book](ctx, s.db.Collection(db.BooksCollection))
	if err != nil {
		return nil, storageError("list books", err)
	}
	return books, nil
}
