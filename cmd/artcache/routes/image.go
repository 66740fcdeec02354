package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/kitgore/lyrictype-sub002/cmd/artcache/container"
	"github.com/kitgore/lyrictype-sub002/cmd/artcache/handlers"
)

// RegisterImageRoutes registers all artwork retrieval routes
func RegisterImageRoutes(e *echo.Echo, c *container.Container) {
	// Create handler using services from container
	h := handlers.NewImageHandler(c.Components, c.Images)

	api := e.Group("/api/v1")
	{
		api.GET("/artists/:key/portrait", h.GetArtistPortrait) // GET /api/v1/artists/weird-al/portrait?source=...
		api.GET("/album-art", h.GetAlbumArt)                   // GET /api/v1/album-art?url=...
	}
}
