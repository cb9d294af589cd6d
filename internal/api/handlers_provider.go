package api

import "net/http"

// handleListProviders returns every known provider with whether it is wired
// and its pacing.
// GET /api/v1/providers
func (r *Router) handleListProviders(w http.ResponseWriter, req *http.Request) {
	if r.providerRegistry == nil {
		writeJSON(w, http.StatusOK, map[string]any{"providers": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": r.providerRegistry.Statuses()})
}
