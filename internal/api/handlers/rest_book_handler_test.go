package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookmarket/server/internal/api/handlers"
	"bookmarket/server/internal/models"
	"bookmarket/server/internal/services"
)

func performRequest(r http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func setupBookRouter(svc *MockBookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := handlers.NewRestBookHandler(svc)
	r := gin.New()
	r.POST("/api/books", handler.SubmitBook)
	r.GET("/api/books", handler.ListBooks)
	return r
}

func TestRestBookHandler_SubmitBook_JSON(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)

	mockBookSvc.On("CreateBook", mock.Anything, mock.MatchedBy(func(b *models.Book) bool {
		return b.Title == "Dune" && b.Author == "Frank Herbert" && b.Price == 9.99 && b.Phone == "+1 555-1234"
	})).Return(&models.Book{Title: "Dune"}, nil).Once()

	w := performRequest(r, "POST", "/api/books", "application/json",
		`{"title":" Dune ","author":"Frank Herbert","price":9.99,"phone":"+1 555-1234"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Book saved!", decodeBody(t, w)["message"])
	mockBookSvc.AssertExpectations(t)
}

func TestRestBookHandler_SubmitBook_Form(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)

	mockBookSvc.On("CreateBook", mock.Anything, mock.MatchedBy(func(b *models.Book) bool {
		return b.Title == "Emma" && b.Price == 4.5
	})).Return(&models.Book{Title: "Emma"}, nil).Once()

	form := url.Values{"title": {"Emma"}, "author": {"Jane Austen"}, "price": {"4.50"}, "phone": {"5551234567"}}
	w := performRequest(r, "POST", "/api/books", "application/x-www-form-urlencoded", form.Encode())

	assert.Equal(t, http.StatusCreated, w.Code)
	mockBookSvc.AssertExpectations(t)
}

func TestRestBookHandler_SubmitBook_Rejected(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    string
		wantError   string
	}{
		{"missing phone", "application/json", `{"title":"Dune","author":"F","price":"9.99"}`, "MissingFields", "Missing fields"},
		{"empty body", "application/json", ``, "MissingFields", "Missing fields"},
		{"zero price", "application/json", `{"title":"Dune","author":"F","price":0,"phone":"5551234"}`, "InvalidPrice", "Invalid price"},
		{"text price", "application/x-www-form-urlencoded", "title=Dune&author=F&price=cheap&phone=5551234", "InvalidPrice", "Invalid price"},
		{"bad phone", "application/json", `{"title":"Dune","author":"F","price":"9.99","phone":"abc"}`, "InvalidPhone", "Invalid phone number"},
		{"malformed json", "application/json", `{"title":`, "InvalidBody", "Invalid request body"},
		{"json array", "application/json", `[1,2]`, "InvalidBody", "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockBookSvc := new(MockBookService)
			r := setupBookRouter(mockBookSvc)

			w := performRequest(r, "POST", "/api/books", tt.contentType, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, tt.wantError, body["error"])
			mockBookSvc.AssertNotCalled(t, "CreateBook", mock.Anything, mock.Anything)
		})
	}
}

func TestRestBookHandler_SubmitBook_StorageError(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)

	cause := errors.New("connection refused: mongo-primary:27017")
	mockBookSvc.On("CreateBook", mock.Anything, mock.Anything).Return(nil, errors.Join(services.ErrStorage, cause)).Once()

	w := performRequest(r, "POST", "/api/books", "application/json",
		`{"title":"Dune","author":"F","price":"9.99","phone":"5551234"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "Error"}, decodeBody(t, w))
	assert.NotContains(t, w.Body.String(), "mongo-primary")
	mockBookSvc.AssertExpectations(t)
}

func TestRestBookHandler_ListBooks(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)

	newer := models.Book{Title: "Newer", Author: "B", Price: 2, Phone: "5551234"}
	newer.ID = primitive.NewObjectID()
	newer.CreatedAt = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	older := models.Book{Title: "Older", Author: "A", Price: 1, Phone: "5551234"}
	older.ID = primitive.NewObjectID()
	older.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mockBookSvc.On("ListBooks", mock.Anything).Return([]models.Book{newer, older}, nil).Once()

	w := performRequest(r, "GET", "/api/books", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var books []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &books))
	require.Len(t, books, 2)
	assert.Equal(t, "Newer", books[0]["title"])
	assert.Equal(t, newer.ID.Hex(), books[0]["_id"])
	assert.Equal(t, "2024-03-02T00:00:00Z", books[0]["createdAt"])
	assert.Equal(t, "Older", books[1]["title"])
	mockBookSvc.AssertExpectations(t)
}

func TestRestBookHandler_ListBooks_Empty(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)
	mockBookSvc.On("ListBooks", mock.Anything).Return([]models.Book{}, nil).Once()

	w := performRequest(r, "GET", "/api/books", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRestBookHandler_ListBooks_StorageError(t *testing.T) {
	mockBookSvc := new(MockBookService)
	r := setupBookRouter(mockBookSvc)
	mockBookSvc.On("ListBooks", mock.Anything).Return(nil, services.ErrStorage).Once()

	w := performRequest(r, "GET", "/api/books", "", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Fetch error.", decodeBody(t, w)["error"])
}
