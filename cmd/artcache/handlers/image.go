package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kitgore/lyrictype-sub002/common/bootstrap"
	"github.com/kitgore/lyrictype-sub002/common/imagecache"
)

// ImageHandler serves cached artwork
type ImageHandler struct {
	components *bootstrap.Components
	images     *imagecache.Service
}

// NewImageHandler creates a new image handler
func NewImageHandler(components *bootstrap.Components, images *imagecache.Service) *ImageHandler {
	return &ImageHandler{
		components: components,
		images:     images,
	}
}

// GetArtistPortrait returns the processed portrait for an artist key
// GET /api/v1/artists/:key/portrait?source=<url>
func (h *ImageHandler) GetArtistPortrait(c echo.Context) error {
	key := c.Param("key")
	source := c.QueryParam("source")

	res, err := h.images.ArtistPortrait(c.Request().Context(), key, source)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, successBody(res))
}

// GetAlbumArt returns the processed album art for a source URL
// GET /api/v1/album-art?url=<url>
func (h *ImageHandler) GetAlbumArt(c echo.Context) error {
	url := c.QueryParam("url")
	if url == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "url query parameter is required",
		})
	}

	res, err := h.images.AlbumArt(c.Request().Context(), url)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, successBody(res))
}

// successBody shapes a retrieval result for the wire. The payload goes
// out exactly as stored; consumers decode it against the metadata's
// compression method and version tag.
func successBody(res *imagecache.Result) map[string]interface{} {
	return map[string]interface{}{
		"success":   true,
		"cached":    res.Cached,
		"imageData": res.ImageData,
		"metadata":  res.Metadata,
	}
}

// errorResponse maps boundary errors to statuses: missing data is 404,
// a processing failure is a bad gateway, anything else is internal.
func (h *ImageHandler) errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, imagecache.ErrNoImageData):
		status = http.StatusNotFound
	case errors.Is(err, imagecache.ErrProcessingFailed):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		h.components.Logger.Error("image retrieval failed", "error", err)
	}

	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}
