package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/server/internal/services"
	"bookmarket/server/internal/validation"
)

// RestPurchaseHandler serves /api/purchases.
type RestPurchaseHandler struct {
	purchaseService services.IPurchaseService
}

func NewRestPurchaseHandler(purchaseService services.IPurchaseService) *RestPurchaseHandler {
	return &RestPurchaseHandler{purchaseService: purchaseService}
}

// SubmitPurchase handles POST /api/purchases. The referenced book is not
// looked up; the request carries its own snapshot of it.
func (h *RestPurchaseHandler) SubmitPurchase(c *gin.Context) {
	bag, ok := bindFields(c)
	if !ok {
		return
	}
	purchase, err := validation.ParsePurchase(bag)
	if err != nil {
		respondInvalid(c, err)
		return
	}
	if _, err := h.purchaseService.CreatePurchase(c.Request.Context(), purchase); err != nil {
		respondServerError(c, "Error", "create purchase", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Purchase saved!"})
}

// ListPurchases handles GET /api/purchases
func (h *RestPurchaseHandler) ListPurchases(c *gin.Context) {
	purchases, err := h.purchaseService.ListPurchases(c.Request.Context())
	if err != nil {
		respondServerError(c, "Fetch error.", "list purchases", err)
		return
	}
	c.JSON(http.StatusOK, purchases)
}
