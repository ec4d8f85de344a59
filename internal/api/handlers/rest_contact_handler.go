package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"bookmarket/server/internal/api/middleware"
	"bookmarket/server/internal/config"
	"bookmarket/server/internal/models"
	"bookmarket/server/internal/services"
	"bookmarket/server/internal/tasks"
	"bookmarket/server/internal/validation"
)

// RestContactHandler serves /api/contact.
type RestContactHandler struct {
	cfg            *config.Config
	contactService services.IContactService
	taskClient     IAsynqClient // nil when notifications are off
}

func NewRestContactHandler(cfg *config.Config, contactService services.IContactService, taskClient IAsynqClient) *RestContactHandler {
	return &RestContactHandler{
		cfg:            cfg,
		contactService: contactService,
		taskClient:     taskClient,
	}
}

// SubmitContact handles POST /api/contact
func (h *RestContactHandler) SubmitContact(c *gin.Context) {
	bag, ok := bindFields(c)
	if !ok {
		return
	}
	msg, err := validation.ParseContactMessage(bag)
	if err != nil {
		respondInvalid(c, err)
		return
	}
	stored, err := h.contactService.CreateContactMessage(c.Request.Context(), msg)
	if err != nil {
		respondServerError(c, "Server error.", "create contact message", err)
		return
	}

	h.notify(c, stored)
	c.JSON(http.StatusCreated, gin.H{"message": "Message received! Thanks!"})
}

// notify queues the owner notification. Failures are logged only; the
// message is already stored.
func (h *RestContactHandler) notify(c *gin.Context, msg *models.ContactMessage) {
	if h.taskClient == nil || !h.cfg.NotificationsEnabled() {
		return
	}
	requestID := middleware.GetRequestID(c)

	task, err := tasks.NewContactNotificationTask(h.cfg, msg)
	if err != nil {
		log.Printf("[%s] failed to build notification for contact message %s: %v", requestID, msg.ID.Hex(), err)
		return
	}
	info, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	switch {
	case errors.Is(err, asynq.ErrTaskIDConflict):
		log.Printf("[%s] notification for contact message %s already queued", requestID, msg.ID.Hex())
	case err != nil:
		log.Printf("[%s] failed to enqueue notification for contact message %s: %v", requestID, msg.ID.Hex(), err)
	default:
		log.Printf("[%s] enqueued notification task %s for contact message %s", requestID, info.ID, msg.ID.Hex())
	}
}

// ListContact handles GET /api/contact
func (h *RestContactHandler) ListContact(c *gin.Context) {
	msgs, err := h.contactService.ListContactMessages(c.Request.Context())
	if err != nil {
		respondServerError(c, "Fetch error.", "list contact messages", err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
