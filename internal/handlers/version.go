package handlers

import "net/http"

// VersionResponse describes the running API build.
type VersionResponse struct {
	APIName    string `json:"api_name"`
	APIVersion string `json:"api_version"`
}

// VersionHandler reports the API name and version.
type VersionHandler struct {
	name    string
	version string
}

// NewVersionHandler creates a version handler.
func NewVersionHandler(name, version string) *VersionHandler {
	return &VersionHandler{name: name, version: version}
}

// Version handles the /api/version endpoint
func (h *VersionHandler) Version(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, VersionResponse{
		APIName:    h.name,
		APIVersion: h.version,
	})
}
