package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/go-chi/chi/v5"
)

// DrugRequest is the body of the drug write endpoints
type DrugRequest struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	ActiveIngredient   string `json:"active_ingredient"`
	Classification     string `json:"classification"`
	DrugGroup          string `json:"drug_group"`
	RegisteringCountry string `json:"registering_country"`
	SourceURL          string `json:"source_url"`
	SourcePDF          string `json:"source_pdf"`
	Metadata           string `json:"metadata"`
	Tags               string `json:"tags"`
	// Author is recorded as created_by on create and updated_by on every write
	Author string `json:"author"`
}

func (req DrugRequest) toDrug() *entities.Drug {
	return &entities.Drug{
		ID:                 strings.TrimSpace(req.ID),
		Name:               strings.TrimSpace(req.Name),
		ActiveIngredient:   req.ActiveIngredient,
		Classification:     req.Classification,
		DrugGroup:          req.DrugGroup,
		RegisteringCountry: req.RegisteringCountry,
		SourceURL:          req.SourceURL,
		SourcePDF:          req.SourcePDF,
		Metadata:           req.Metadata,
		Tags:               req.Tags,
		CreatedBy:          req.Author,
		UpdatedBy:          req.Author,
	}
}

// InteractionRequest is the body of the interaction write endpoints.
// Severity may be empty, in which case the default applies.
type InteractionRequest struct {
	FirstID     string `json:"first_id"`
	SecondID    string `json:"second_id"`
	Mechanism   string `json:"mechanism"`
	Consequence string `json:"consequence"`
	Management  string `json:"management"`
	Severity    string `json:"severity"`
}

func (req InteractionRequest) toInteraction() *entities.DrugInteraction {
	return &entities.DrugInteraction{
		FirstID:     req.FirstID,
		SecondID:    req.SecondID,
		Mechanism:   req.Mechanism,
		Consequence: req.Consequence,
		Management:  req.Management,
		Severity:    entities.Severity(strings.TrimSpace(req.Severity)),
	}
}

// CreateDrug adds a drug to the catalog
func (h *HTTPHandlerImpl) CreateDrug(w http.ResponseWriter, r *http.Request) {
	var req DrugRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	drug := req.toDrug()
	if drug.ID != "" {
		if err := h.validator.ValidateDrugID(drug.ID); err != nil {
			h.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if err := h.store.CreateDrug(r.Context(), drug); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Drug created", "id", drug.ID, "author", req.Author)
	h.RespondWithJSON(w, http.StatusCreated, drug)
}

// UpdateDrug replaces the mutable fields of the drug named in the URL
func (h *HTTPHandlerImpl) UpdateDrug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateDrugID(id); err != nil {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	var req DrugRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if bodyID := strings.TrimSpace(req.ID); bodyID != "" && bodyID != id {
		h.RespondWithError(w, http.StatusBadRequest, "drug id cannot be changed")
		return
	}

	drug := req.toDrug()
	drug.ID = id
	if err := h.store.UpdateDrug(r.Context(), drug); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Drug updated", "id", drug.ID, "mod_count", drug.ModCount, "author", req.Author)
	h.RespondWithJSON(w, http.StatusOK, drug)
}

// DeleteDrug removes a drug and every interaction it takes part in
func (h *HTTPHandlerImpl) DeleteDrug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.validator.ValidateDrugID(id); err != nil {
		h.RespondWithError(w, http.StatusNotFound, "Drug not found")
		return
	}

	if err := h.store.DeleteDrug(r.Context(), id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Drug deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// CreateInteraction records an interaction between two existing drugs
func (h *HTTPHandlerImpl) CreateInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	interaction := req.toInteraction()
	if err := h.store.CreateInteraction(r.Context(), interaction); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Interaction created",
		"id", interaction.ID,
		"first_id", interaction.FirstID,
		"second_id", interaction.SecondID,
		"severity", interaction.Severity,
	)
	h.RespondWithJSON(w, http.StatusCreated, entities.NewInteractionView(*interaction))
}

// UpdateInteraction replaces the content of the interaction named in the URL
func (h *HTTPHandlerImpl) UpdateInteraction(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := h.validator.ParseInteractionID(raw)
	if err != nil {
		h.RespondWithError(w, http.StatusNotFound, "Interaction not found")
		return
	}

	var req InteractionRequest
	if err := decodeBody(r, &req); err != nil {
		h.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	interaction := req.toInteraction()
	interaction.ID = id
	if err := h.store.UpdateInteraction(r.Context(), interaction); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Interaction updated", "id", interaction.ID)
	h.RespondWithJSON(w, http.StatusOK, entities.NewInteractionView(*interaction))
}

// DeleteInteraction removes one interaction
func (h *HTTPHandlerImpl) DeleteInteraction(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := h.validator.ParseInteractionID(raw)
	if err != nil {
		h.RespondWithError(w, http.StatusNotFound, "Interaction not found")
		return
	}

	if err := h.store.DeleteInteraction(r.Context(), id); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.stats.Invalidate()

	logging.Info("Interaction deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads one JSON object, rejecting unknown fields and trailing data
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body too large: maximum %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
