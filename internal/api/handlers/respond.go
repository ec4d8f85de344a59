package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"bookmarket/server/internal/api/middleware"
	"bookmarket/server/internal/validation"
)

const (
	maxBodyBytes   = 1 << 20
	maxMemoryBytes = 1 << 20

	codeInvalidBody = "InvalidBody"
)

// IAsynqClient is the part of asynq.Client the handlers use.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// bindFields reads a JSON object or a form body into a FieldBag. It writes the
// 400 response itself and returns false when the body cannot be read.
func bindFields(c *gin.Context) (validation.FieldBag, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	bag := validation.FieldBag{}
	switch c.ContentType() {
	case gin.MIMEJSON:
		dec := json.NewDecoder(c.Request.Body)
		dec.UseNumber()
		if err := dec.Decode(&bag); err != nil && !errors.Is(err, io.EOF) {
			respondBadBody(c, err)
			return nil, false
		}
	case gin.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(maxMemoryBytes); err != nil {
			respondBadBody(c, err)
			return nil, false
		}
		copyForm(bag, c.Request.PostForm)
	default:
		if err := c.Request.ParseForm(); err != nil {
			respondBadBody(c, err)
			return nil, false
		}
		copyForm(bag, c.Request.PostForm)
	}
	return bag, true
}

func copyForm(bag validation.FieldBag, form map[string][]string) {
	for key, values := range form {
		if len(values) > 0 {
			bag[key] = values[0]
		}
	}
}

func respondBadBody(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "code": codeInvalidBody})
}

// respondInvalid answers a Parse failure with its code and message.
func respondInvalid(c *gin.Context, err error) {
	var vErr *validation.Error
	if !errors.As(err, &vErr) {
		respondServerError(c, "Error", "validate", err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "code": vErr.Code})
}

// respondServerError logs the cause with the request id and answers with a
// generic message.
func respondServerError(c *gin.Context, message, op string, err error) {
	log.Printf("[%s] %s %s: %s failed: %v", middleware.GetRequestID(c), c.Request.Method, c.Request.URL.Path, op, err)
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}
