// Package web renders the browsable HTML pages: home with the catalog
// summary, interaction search, drug detail and interaction detail.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/druginteractions-api/entities"
	"github.com/giygas/druginteractions-api/interfaces"
	"github.com/giygas/druginteractions-api/logging"
	"github.com/giygas/druginteractions-api/store"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "search", "drug", "interaction", "notfound", "error"}

var funcs = template.FuncMap{
	"severityLabel": func(s entities.Severity) string { return s.Label() },
	"severityColor": func(s entities.Severity) string { return s.Color() },
	"formatTime":    func(t time.Time) string { return t.Local().Format("02/01/2006 15:04") },
}

// SeverityOption is one entry of the severity filter
type SeverityOption struct {
	Value    entities.Severity
	Label    string
	Selected bool
}

func severityOptions(selected string) []SeverityOption {
	options := make([]SeverityOption, 0, 4)
	for _, sev := range entities.Severities() {
		options = append(options, SeverityOption{
			Value:    sev,
			Label:    sev.Label(),
			Selected: string(sev) == selected,
		})
	}
	return options
}

type homePage struct {
	Stats      entities.Stats
	Severities []SeverityOption
}

type searchPage struct {
	Query        string
	Severity     string
	Severities   []SeverityOption
	Interactions []entities.InteractionView
	Limit        int
	Truncated    bool
	Error        string
}

type drugPage struct {
	Drug         *entities.Drug
	Interactions []entities.InteractionView
}

type notFoundPage struct {
	Message string
}

// Pages serves the HTML interface
type Pages struct {
	store     interfaces.Store
	stats     interfaces.StatsProvider
	validator interfaces.InputValidator
	templates map[string]*template.Template
}

// NewPages parses the embedded templates
func NewPages(db interfaces.Store, stats interfaces.StatsProvider, validator interfaces.InputValidator) (*Pages, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &Pages{
		store:     db,
		stats:     stats,
		validator: validator,
		templates: templates,
	}, nil
}

// Home shows the totals, the severity breakdown and the search form
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	stats, err := p.stats.Stats(r.Context())
	if err != nil {
		p.serverError(w, err)
		return
	}
	p.render(w, http.StatusOK, "home", homePage{Stats: stats, Severities: severityOptions("")})
}

// Search lists at most store.SearchLimit interactions matching ?q= and ?severity=
func (p *Pages) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page := searchPage{
		Query:        strings.TrimSpace(params.Get("q")),
		Severity:     strings.TrimSpace(params.Get("severity")),
		Limit:        store.SearchLimit,
		Interactions: []entities.InteractionView{},
	}
	page.Severities = severityOptions(page.Severity)

	if err := p.validator.ValidateSearchQuery(page.Query); err != nil {
		logging.Warn("Unusual user input", "q", page.Query, "error", err)
		page.Error = "Từ khóa tìm kiếm không hợp lệ."
		p.render(w, http.StatusBadRequest, "search", page)
		return
	}

	interactions, err := p.store.Search(r.Context(), store.InteractionQuery{Query: page.Query, Severity: page.Severity})
	if err != nil {
		p.serverError(w, err)
		return
	}
	page.Interactions = entities.NewInteractionViews(interactions)
	page.Truncated = len(interactions) >= store.SearchLimit

	p.render(w, http.StatusOK, "search", page)
}

// Drug shows one drug and every interaction it takes part in
func (p *Pages) Drug(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := p.validator.ValidateDrugID(id); err != nil {
		p.NotFound(w, r)
		return
	}

	drug, err := p.store.GetDrug(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		p.NotFound(w, r)
		return
	}
	if err != nil {
		p.serverError(w, err)
		return
	}

	interactions, err := p.store.ListForDrug(r.Context(), id)
	if err != nil {
		p.serverError(w, err)
		return
	}

	p.render(w, http.StatusOK, "drug", drugPage{
		Drug:         drug,
		Interactions: entities.NewInteractionViews(interactions),
	})
}

// Interaction shows the mechanism, consequence and management of one interaction
func (p *Pages) Interaction(w http.ResponseWriter, r *http.Request) {
	id, err := p.validator.ParseInteractionID(chi.URLParam(r, "id"))
	if err != nil {
		p.NotFound(w, r)
		return
	}

	interaction, err := p.store.GetInteraction(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		p.NotFound(w, r)
		return
	}
	if err != nil {
		p.serverError(w, err)
		return
	}

	p.render(w, http.StatusOK, "interaction", entities.NewInteractionView(*interaction))
}

// NotFound renders the 404 page
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.render(w, http.StatusNotFound, "notfound", notFoundPage{
		Message: "Trang hoặc dữ liệu bạn tìm không tồn tại.",
	})
}

func (p *Pages) serverError(w http.ResponseWriter, err error) {
	logging.Error("Failed to build page", "error", err)
	p.render(w, http.StatusInternalServerError, "error", nil)
}

// render executes into a buffer first so a template error never leaves a
// half written page behind
func (p *Pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.templates[name].ExecuteTemplate(&buf, "base", data); err != nil {
		logging.Error("Failed to render template", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
