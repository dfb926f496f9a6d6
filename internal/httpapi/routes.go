package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/overlay-relay/internal/catalog"
	"github.com/DoyleJ11/overlay-relay/internal/hub"
	"github.com/DoyleJ11/overlay-relay/internal/ws"
)

// SetupRoutes builds the router with the hub and scanner injected.
// CORS is wide open: overlays load inside OBS browser sources and
// controllers are frequently opened straight from disk.
func SetupRoutes(h *hub.Hub, scanner *catalog.Scanner, log *zap.Logger, defaultChannel string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz(h))
	r.Get("/catalog/games", ListGames(scanner))
	r.Get("/catalog/manifest", GetManifest(scanner))
	r.Get("/trigger", Trigger(h, scanner, log, defaultChannel))
	r.Post("/trigger", Trigger(h, scanner, log, defaultChannel))
	r.Get("/ws", ws.Handler(h, log, defaultChannel))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(r)
}
