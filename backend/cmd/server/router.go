package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storygraph/backend/internal/pipeline"
	"storygraph/backend/internal/stage"
	apperrors "storygraph/backend/pkg/errors"
)

type extractService interface {
	ExtractAndSave(ctx context.Context, in pipeline.ChunkInput) (*pipeline.ExtractResult, error)
}

type augmentService interface {
	AugmentContext(ctx context.Context, in pipeline.ChunkInput) (*pipeline.AugmentResult, error)
}

type fragmentRequest struct {
	Text    string   `json:"text"`
	Chapter int      `json:"chapter"`
	Stage   any      `json:"stage"`
	Tags    []string `json:"tags"`
}

// newRouter builds the HTTP surface. Both fragment endpoints sit behind
// bearer auth; only the health check is open.
func newRouter(log *zap.Logger, authToken string, maxTextLength int, extract extractService, augment augmentService) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := router.Group("/", bearerAuth(authToken))

	authed.POST("/extract-save", func(c *gin.Context) {
		in, ok := bindFragment(c, maxTextLength)
		if !ok {
			return
		}

		result, err := extract.ExtractAndSave(c.Request.Context(), in)
		if err != nil {
			respondError(c, log, "Extraction failed", err)
			return
		}
		if result.Relationships == nil {
			result.Relationships = []string{}
		}
		if result.Aliases == nil {
			result.Aliases = []string{}
		}
		c.JSON(http.StatusOK, result)
	})

	authed.POST("/augment-context", func(c *gin.Context) {
		in, ok := bindFragment(c, maxTextLength)
		if !ok {
			return
		}

		result, err := augment.AugmentContext(c.Request.Context(), in)
		if err != nil {
			respondError(c, log, "Augmentation failed", err)
			return
		}
		if result.Rows == nil {
			result.Rows = []map[string]any{}
		}
		c.JSON(http.StatusOK, gin.H{
			"context": result,
			"traceId": uuid.NewString(),
		})
	})

	return router
}

// bearerAuth rejects requests without the exact configured token.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// bindFragment parses and validates the shared request body. Malformed input
// is rejected with 422 before any external call happens.
func bindFragment(c *gin.Context, maxTextLength int) (pipeline.ChunkInput, bool) {
	var req fragmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return pipeline.ChunkInput{}, false
	}

	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "text is required"})
		return pipeline.ChunkInput{}, false
	}
	if len(req.Text) > maxTextLength {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "text exceeds maximum length"})
		return pipeline.ChunkInput{}, false
	}
	if req.Chapter < 1 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "chapter must be >= 1"})
		return pipeline.ChunkInput{}, false
	}

	s, err := stage.Parse(req.Stage)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return pipeline.ChunkInput{}, false
	}

	return pipeline.ChunkInput{
		Text:    req.Text,
		Chapter: req.Chapter,
		Stage:   s,
		Tags:    req.Tags,
	}, true
}

// respondError maps validation failures to 422 and everything else to a
// generic 500 that does not leak statement text.
func respondError(c *gin.Context, log *zap.Logger, msg string, err error) {
	if apperrors.IsValidation(err) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Info("HTTP Request",
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}
