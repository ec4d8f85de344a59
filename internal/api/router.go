package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"bookmarket/server/internal/api/handlers"
	"bookmarket/server/internal/api/middleware"
	"bookmarket/server/internal/config"
	"bookmarket/server/internal/email"
	"bookmarket/server/internal/services"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>%[1]s</title></head>
<body><h1>Server Running!</h1><p>%[1]s API is up.</p></body>
</html>`

// Services bundles what the public routes need.
type Services struct {
	Books     services.IBookService
	Purchases services.IPurchaseService
	Contacts  services.IContactService
}

// SetupRouter configures and returns the main Gin engine. taskClient may be
// nil, in which case contact notifications are not queued.
func SetupRouter(cfg *config.Config, svc Services, taskClient handlers.IAsynqClient) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.RequestIDMiddleware())

	bookHandler := handlers.NewRestBookHandler(svc.Books)
	purchaseHandler := handlers.NewRestPurchaseHandler(svc.Purchases)
	contactHandler := handlers.NewRestContactHandler(cfg, svc.Contacts, taskClient)

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(indexPage, cfg.AppName)))
	})
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	api := r.Group("/api")
	{
		api.POST("/books", bookHandler.SubmitBook)
		api.GET("/books", bookHandler.ListBooks)

		api.POST("/purchases", purchaseHandler.SubmitPurchase)
		api.GET("/purchases", purchaseHandler.ListPurchases)

		api.POST("/contact", contactHandler.SubmitContact)
		api.GET("/contact", contactHandler.ListContact)
	}

	return r
}

// SetupServiceRouter configures the internal service API. rdb may be nil, in
// which case getTestEmail is unavailable.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				log.Println("Shutdown already signaled.")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

const (
	testEmailPollAttempts = 10
	testEmailPollInterval = 200 * time.Millisecond
)

// getTestEmail returns and deletes the message the Redis sink captured for
// [templateID, email], polling briefly since delivery is asynchronous.
func getTestEmail(c *gin.Context, rdb *redis.Client, rawArgs json.RawMessage) {
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis is not configured"})
		return
	}
	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateID, email]"})
		return
	}
	redisKey := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var raw string
	found := false
	for i := 0; i < testEmailPollAttempts; i++ {
		val, err := rdb.GetDel(ctx, redisKey).Result()
		if err == nil {
			raw = val
			found = true
			break
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("Service API: error reading %s from Redis: %v", redisKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		select {
		case <-ctx.Done():
			i = testEmailPollAttempts
		case <-time.After(testEmailPollInterval):
		}
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
		return
	}

	var doc email.MockEmail
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		log.Printf("Service API: stored email at %s is not valid JSON: %v", redisKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": doc})
}
