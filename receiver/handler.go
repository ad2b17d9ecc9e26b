// Package receiver is the HTTP boundary of the collector: it accepts
// raw submission uploads and maps ingestion outcomes to client-facing
// responses without leaking internals.
package receiver

import (
	"context"
	"errors"
	"io"
	"net/http"

	"gentoostats/ingest"
	"gentoostats/orm"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	successBody = "Success"

	// genericFailureBody is everything an unexpected internal error is
	// allowed to tell the client.
	genericFailureBody = "Error: something went wrong. The administrator " +
		"has been notified and will look into the problem."
)

// ingestor is what the receiver needs from the ingestion pipeline.
type ingestor interface {
	Process(ctx context.Context, body []byte, meta ingest.Meta) (*orm.Submission, error)
}

type Handler struct {
	ingestor ingestor
}

// NewHandler creates the HTTP handler around an ingestion pipeline.
func NewHandler(ing ingestor) *Handler {
	return &Handler{ingestor: ing}
}

// Router builds the gin engine with the upload route mounted.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/upload", h.handleUpload)
	router.POST("/upload/", h.handleUpload)

	return router
}

func (h *Handler) handleUpload(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Failed to read request body")
		c.String(http.StatusBadRequest, genericFailureBody)

		return
	}

	meta := ingest.Meta{
		ClientIP:     c.ClientIP(),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
	}

	_, err = h.ingestor.Process(c.Request.Context(), body, meta)
	if err != nil {
		var rejected *ingest.RejectError
		if errors.As(err, &rejected) {
			log.Info().
				Err(err).
				Str("client_ip", meta.ClientIP).
				Msg("Submission rejected")
			c.String(http.StatusBadRequest, rejected.Reason)

			return
		}

		log.Error().
			Err(err).
			Str("client_ip", meta.ClientIP).
			Msg("Submission processing failed")
		c.String(http.StatusBadRequest, genericFailureBody)

		return
	}

	c.String(http.StatusOK, successBody)
}
