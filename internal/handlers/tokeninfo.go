package handlers

import (
	"net/http"

	"github.com/benvon/idgate/internal/request"
)

// TokenInfo handles the /api/token_info endpoint. It returns the resolved
// identity of the caller: the verified claims plus either the user profile
// or the application identity. The auth middleware populates the context;
// the nil check guards against misregistered routes.
func TokenInfo(w http.ResponseWriter, r *http.Request) {
	identity := request.IdentityFromContext(r)
	if identity == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "No authenticated identity on request")
		return
	}
	respondJSON(w, http.StatusOK, identity)
}
