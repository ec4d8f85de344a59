// Package validation turns loosely-typed request bodies into normalized records.
package validation

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookmarket/server/internal/models"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9 \-]{7,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// FieldBag is a request body decoded from a form or a JSON object.
type FieldBag map[string]any

// Text returns the trimmed string form of a scalar field. ok is false when the
// field is missing, null, or not a string or number.
func (b FieldBag) Text(key string) (value string, ok bool) {
	switch v := b[key].(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func (b FieldBag) text(key string) string {
	v, _ := b.Text(key)
	return v
}

type listingInput struct {
	Title  string `validate:"required"`
	Author string `validate:"required"`
	Price  string `validate:"required"`
	Phone  string `validate:"required,phone"`
}

type purchaseInput struct {
	BookID     string `validate:"required"`
	BookTitle  string `validate:"required"`
	BookAuthor string `validate:"required"`
	BookPrice  string `validate:"required"`
	BuyerName  string `validate:"required"`
	BuyerEmail string `validate:"required"`
	BuyerPhone string `validate:"required,phone"`
}

type contactInput struct {
	Name    string `validate:"required"`
	Email   string `validate:"required,contactemail"`
	Message string `validate:"required"`
}

// Validator wraps go-playground/validator with the marketplace field rules.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the phone and contactemail tags registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// failedTags runs the struct validation and returns the set of tags that failed.
func (v *Validator) failedTags(input any) map[string]bool {
	failed := make(map[string]bool)
	err := v.v.Struct(input)
	if err == nil {
		return failed
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		// Only reachable on a programming error (non-struct input).
		failed["required"] = true
		return failed
	}
	for _, e := range validationErrs {
		failed[e.Tag()] = true
	}
	return failed
}

// parsePrice accepts finite decimal numbers only. NaN, infinities and strings
// with trailing garbage are rejected.
func parsePrice(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseListing validates a listing submission.
// Checks run in order: presence, price > 0, phone shape.
func (v *Validator) ParseListing(bag FieldBag) (*models.Book, error) {
	in := listingInput{
		Title:  bag.text("title"),
		Author: bag.text("author"),
		Price:  bag.text("price"),
		Phone:  bag.text("phone"),
	}
	failed := v.failedTags(in)
	if failed["required"] {
		return nil, newError(CodeMissingFields)
	}
	price, ok := parsePrice(in.Price)
	if !ok || price <= 0 {
		return nil, newError(CodeInvalidPrice)
	}
	if failed["phone"] {
		return nil, newError(CodeInvalidPhone)
	}
	return &models.Book{
		Title:  in.Title,
		Author: in.Author,
		Price:  price,
		Phone:  in.Phone,
	}, nil
}

// ParsePurchase validates a purchase submission. BookID is kept verbatim.
func (v *Validator) ParsePurchase(bag FieldBag) (*models.Purchase, error) {
	in := purchaseInput{
		BookTitle:  bag.text("bookTitle"),
		BookAuthor: bag.text("bookAuthor"),
		BookPrice:  bag.text("bookPrice"),
		BuyerName:  bag.text("buyerName"),
		BuyerEmail: bag.text("buyerEmail"),
		BuyerPhone: bag.text("buyerPhone"),
	}
	rawBookID, _ := bag["bookId"].(string)
	if strings.TrimSpace(rawBookID) != "" {
		in.BookID = rawBookID
	} else {
		in.BookID = bag.text("bookId")
	}

	failed := v.failedTags(in)
	if failed["required"] {
		return nil, newError(CodeMissingFields)
	}
	price, ok := parsePrice(in.BookPrice)
	if !ok {
		return nil, newError(CodeInvalidPrice)
	}
	if failed["phone"] {
		return nil, newError(CodeInvalidPhone)
	}
	return &models.Purchase{
		BookID:     in.BookID,
		BookTitle:  in.BookTitle,
		BookAuthor: in.BookAuthor,
		BookPrice:  price,
		BuyerName:  in.BuyerName,
		BuyerEmail: in.BuyerEmail,
		BuyerPhone: in.BuyerPhone,
	}, nil
}

// ParseContactMessage validates a contact form submission.
func (v *Validator) ParseContactMessage(bag FieldBag) (*models.ContactMessage, error) {
	in := contactInput{
		Name:    bag.text("name"),
		Email:   bag.text("email"),
		Message: bag.text("message"),
	}
	failed := v.failedTags(in)
	if failed["required"] {
		return nil, newError(CodeMissingFields)
	}
	if failed["contactemail"] {
		return nil, newError(CodeInvalidEmail)
	}
	return &models.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Message: in.Message,
	}, nil
}

var std = New()

// ParseListing validates a listing submission with the default validator.
func ParseListing(bag FieldBag) (*models.Book, error) { return std.ParseListing(bag) }

// ParsePurchase validates a purchase submission with the default validator.
func ParsePurchase(bag FieldBag) (*models.Purchase, error) { return std.ParsePurchase(bag) }

// ParseContactMessage validates a contact submission with the default validator.
func ParseContactMessage(bag FieldBag) (*models.ContactMessage, error) {
	return std.ParseContactMessage(bag)
}
