package middleware

import (
	"net/http"

	"github.com/angelmondragon/ims-backend/pkg/config"
	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the configured allowed origin policy.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "X-IMS-Env"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
