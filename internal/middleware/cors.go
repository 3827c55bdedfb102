package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// AllowedOrigins builds the CORS origin list from the comma-separated extra
// origins setting. Localhost dev origins are always included.
func AllowedOrigins(extraOrigins string) []string {
	origins := []string{"http://localhost:3000", "http://localhost:8080"}
	for _, origin := range strings.Split(extraOrigins, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		exists := false
		for _, existing := range origins {
			if existing == trimmed {
				exists = true
				break
			}
		}
		if !exists {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// CORS creates CORS middleware around rs/cors for the given origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		MaxAge:           86400,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	})
	return c.Handler
}
