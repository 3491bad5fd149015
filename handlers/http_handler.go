// Package handlers provides the JSON endpoints of the drug interactions API:
// drug lookup, interaction search, catalog statistics, health and the
// administrative write endpoints.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/interfaces"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/store"
	"github.com/go-chi/chi/v5"
)

// HTTPHandlerImpl serves the API routes
type HTTPHandlerImpl struct {
	store     interfaces.Store
	stats     interfaces.StatsProvider
	validator interfaces.InputValidator
	health    interfaces.HealthChecker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies
func NewHTTPHandler(db interfaces.Store, stats interfaces.StatsProvider, validator interfaces.InputValidator, health interfaces.HealthChecker) *HTTPHandlerImpl {
	return &HTTPHandlerImpl{
		store:     db,
		stats:     stats,
		validator: validator,
		health:    health,
	}
}

// HealthResponse keeps a stable key order in the /health body
type HealthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime,omitempty"`
	Data   map[string]any `json:"data"`
}

// RespondWithJSON writes a JSON response
func (h *HTTPHandlerImpl) RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// readCacheControl lets clients reuse a response briefly and then revalidate
// it with If-None-Match, since admin writes can change any record
const readCacheControl = "public, max-age=300"

// GenerateETag returns a quoted strong ETag derived from the response body
func GenerateETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// RespondWithJSONAndETag writes a JSON response with an ETag, answering 304
// when the client already holds the same representation
func (h *HTTPHandlerImpl) RespondWithJSONAndETag(w http.ResponseWriter, r *http.Request, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := GenerateETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", readCacheControl)

	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(data)
}

// matchesETag handles lists and the weak prefix in If-None-Match
func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// RespondWithError writes a JSON error response
func (h *HTTPHandlerImpl) RespondWithError(w http.ResponseWriter, code int, message string) {
	errorResponse := map[string]any{
		"error":   http.StatusText(code),
		"message": message,
		"code":    code,
	}
	h.RespondWithJSON(w, code, errorResponse)
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// ListDrugs returns every drug, or those whose name, active ingredient or
// group contains ?q=
func (h *HTTPHandlerImpl) ListDrugs(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if err := h.validator.ValidateSearchQuery(q); err != nil {
		logging.Warn("Unusual user input", "q", q, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drugs, err := h.store.ListDrugs(r.Context(), q)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.RespondWithJSONAndETag(w, r, http.StatusOK, drugs)
}

// GetDrug returns one drug by id
func (h *HTTPHandlerImpl) GetDrug(w http.ResponseWriter, r *http.Request) {
	drug, ok := h.lookupDrug(w, r)
	if !ok {
		return
	}
	h.RespondWithJSONAndETag(w, r, http.StatusOK, drug)
}

// DrugInteractions returns every interaction of one drug, newest first
func (h *HTTPHandlerImpl) DrugInteractions(w http.ResponseWriter, r *http.Request) {
	drug, ok := h.lookupDrug(w, r)
	if !ok {
		return
	}

	interactions, err := h.store.ListForDrug(r.Context(), drug.ID)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.RespondWithJSONAndETag(w, r, http.StatusOK, entities.NewInteractionViews(interactions))
}

// SearchInteractions filters interactions by free text (?q=) and exact
// severity (?severity=). At most store.SearchLimit rows are returned.
func (h *HTTPHandlerImpl) SearchInteractions(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := store.InteractionQuery{
		Query:    strings.TrimSpace(params.Get("q")),
		Severity: strings.TrimSpace(params.Get("severity")),
	}

	if err := h.validator.ValidateSearchQuery(query.Query); err != nil {
		logging.Warn("Unusual user input", "q", query.Query, "error", err)
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	interactions, err := h.store.Search(r.Context(), query)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.RespondWithJSONAndETag(w, r, http.StatusOK, entities.NewInteractionViews(interactions))
}

// GetInteraction returns one interaction with its drug names and severity label
func (h *HTTPHandlerImpl) GetInteraction(w http.ResponseWriter, r *http.Request) {
	interaction, ok := h.lookupInteraction(w, r)
	if !ok {
		return
	}
	h.RespondWithJSONAndETag(w, r, http.StatusOK, entities.NewInteractionView(*interaction))
}

// Stats returns the catalog totals and the severity breakdown
func (h *HTTPHandlerImpl) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	if stats.SeverityBreakdown == nil {
		stats.SeverityBreakdown = []entities.SeverityCount{}
	}
	h.RespondWithJSON(w, http.StatusOK, stats)
}

// HealthCheck reports database reachability and catalog counts
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status, data, httpStatus := h.health.HealthCheck(r.Context())

	response := HealthResponse{Status: status, Data: data}
	if start := h.stats.GetServerStartTime(); !start.IsZero() {
		response.Uptime = formatUptimeHuman(time.Since(start))
	}
	h.RespondWithJSON(w, httpStatus, response)
}

// lookupDrug loads the drug named by the {id} URL parameter. Ids that cannot
// exist answer 404 like unknown ones.
func (h *HTTPHandlerImpl) lookupDrug(w http.ResponseWriter, r *http.Request) (*entities.Drug, bool) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateDrugID(id); err != nil {
		logging.Debug("Rejected drug id", "id", id, "error", err)
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return nil, false
	}

	drug, err := h.store.GetDrug(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.RespondWithError(w, http.StatusNotFound, "Drug not found")
			return nil, false
		}
		h.respondStoreError(w, err)
		return nil, false
	}
	return drug, true
}

// lookupInteraction loads the interaction named by the {id} URL parameter
func (h *HTTPHandlerImpl) lookupInteraction(w http.ResponseWriter, r *http.Request) (*entities.DrugInteraction, bool) {
	raw := chi.URLParam(r, "id")
	id, err := h.validator.ParseInteractionID(raw)
	if err != nil {
		logging.Debug("Rejected interaction id", "id", raw, "error", err)
		h.RespondWithError(w, http.StatusNotFound, "Interaction not found")
		return nil, false
	}

	interaction, err := h.store.GetInteraction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.RespondWithError(w, http.StatusNotFound, "Interaction not found")
			return nil, false
		}
		h.respondStoreError(w, err)
		return nil, false
	}
	return interaction, true
}

// respondStoreError maps store errors to HTTP statuses. Unexpected errors are
// logged and hidden behind a generic message.
func (h *HTTPHandlerImpl) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.RespondWithError(w, http.StatusNotFound, "Resource not found")
	case store.IsValidation(err),
		errors.Is(err, store.ErrSelfInteraction),
		errors.Is(err, store.ErrInvalidSeverity):
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateDrug),
		errors.Is(err, store.ErrDuplicatePair):
		h.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDrugNotFound):
		h.RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logging.Error("Store operation failed", "error", err)
		h.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
