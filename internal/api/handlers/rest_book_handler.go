package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bookmarket/server/internal/services"
	"bookmarket/server/internal/validation"
)

// RestBookHandler serves /api/books.
type RestBookHandler struct {
	bookService services.IBookService
}

func NewRestBookHandler(bookService services.IBookService) *RestBookHandler {
	return &RestBookHandler{bookService: bookService}
}

// SubmitBook handles POST /api/books
func (h *RestBookHandler) SubmitBook(c *gin.Context) {
	bag, ok := bindFields(c)
	if !ok {
		return
	}
	book, err := validation.ParseListing(bag)
	if err != nil {
		respondInvalid(c, err)
		return
	}
	if _, err := h.bookService.CreateBook(c.Request.Context(), book); err != nil {
		respondServerError(c, "Error", "create book", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Book saved!"})
}

// ListBooks handles GET /api/books
func (h *RestBookHandler) ListBooks(c *gin.Context) {
	books, err := h.bookService.ListBooks(c.Request.Context())
	if err != nil {
		respondServerError(c, "Fetch error.", "list books", err)
		return
	}
	c.JSON(http.StatusOK, books)
}
