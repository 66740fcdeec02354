package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/security"
	"github.com/kitgore/lyrictype-sub002/cmd/art-worker/worker"
	"github.com/kitgore/lyrictype-sub002/common/bootstrap"
	"github.com/kitgore/lyrictype-sub002/common/models"
)

// ProcessHandler exposes the processing pipeline over HTTP
type ProcessHandler struct {
	components *bootstrap.Components
	processor  *worker.Processor
	validator  *security.URLValidator
}

// NewProcessHandler creates a new process handler
func NewProcessHandler(components *bootstrap.Components, processor *worker.Processor, validator *security.URLValidator) *ProcessHandler {
	return &ProcessHandler{
		components: components,
		processor:  processor,
		validator:  validator,
	}
}

// ProcessImage fetches, transforms and packs one source image
// POST /api/v1/process
func (h *ProcessHandler) ProcessImage(c echo.Context) error {
	var req models.ProcessRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	if req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "url is required",
		})
	}
	if err := h.validator.Validate(req.URL); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": err.Error(),
		})
	}
	switch req.Mode {
	case "", models.ModeBinary, models.ModeGrayscale:
	default:
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("unknown mode %q", req.Mode),
		})
	}
	if req.Size < 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "size must not be negative",
		})
	}

	jobID := uuid.New().String()
	log := h.components.Logger.WithFields(map[string]any{
		"job_id": jobID,
		"key":    req.Key,
	})
	log.Info("processing request accepted", "url", req.URL, "mode", req.Mode, "size", req.Size)

	resp, err := h.processor.Process(c.Request().Context(), req)
	if err != nil {
		log.Error("processing failed", "error", err)

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, worker.ErrFetch):
			status = http.StatusBadGateway
		case errors.Is(err, worker.ErrDecode):
			status = http.StatusUnprocessableEntity
		}
		return c.JSON(status, map[string]interface{}{
			"error": err.Error(),
			"jobId": jobID,
		})
	}

	log.Info("processing request complete",
		"width", resp.Width,
		"height", resp.Height,
		"version", resp.ProcessingVersion)

	return c.JSON(http.StatusOK, resp)
}
