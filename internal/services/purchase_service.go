package services

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"bookmarket/server/internal/db"
	"bookmarket/server/internal/models"
)

// IPurchaseService defines the interface for purchase record operations.
type IPurchaseService interface {
	CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error)
	ListPurchases(ctx context.Context) ([]models.Purchase, error)
}

type purchaseService struct {
	db *mongo.Database
}

// NewPurchaseService creates a new PurchaseService.
func NewPurchaseService(db *mongo.Database) IPurchaseService {
	return &purchaseService{db: db}
}

// CreatePurchase stores the purchase snapshot as given. The referenced book is
// not looked up.
func (s *purchaseService) CreatePurchase(ctx context.Context, purchase *models.Purchase) (*models.Purchase, error) {
	stored, err := db.InsertOne(ctx, s.db.Collection(db.PurchasesCollection), purchase)
	if err != nil {
		return nil, storageError("create purchase", err)
	}
	return stored, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	purchases, err := db.FindNewestFirst[models.Purchase](ctx, s.db.Collection(db.PurchasesCollection))
	if err != nil {
		return nil, storageError("list purchases", err)
	}
	return purchases, nil
}
