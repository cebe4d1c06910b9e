package server

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"niftyfetcher/internal/marketdata"
)

const requestIDHeader = "X-Request-ID"

// FetchRequest is the body of both market data endpoints
type FetchRequest struct {
	Tickers []string `json:"tickers"`
}

// handleFetch dispatches the request's tickers to the fetch operation of
// kind. Individual failures are part of the 200 response body.
func (s *Server) handleFetch(kind marketdata.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FetchRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}

		s.logger.Info("dispatching batch",
			zap.String("kind", string(kind)),
			zap.Int("tickers", len(req.Tickers)),
			zap.String("request_id", c.GetString(requestIDHeader)))

		// the batch runs to completion even if the client goes away
		ctx := context.WithoutCancel(c.Request.Context())
		results := s.opts.Dispatcher.Run(ctx, string(kind), req.Tickers, s.opts.Fetchers.Func(kind))
		c.JSON(http.StatusOK, results)
	}
}

// requestID propagates or assigns a request ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}
