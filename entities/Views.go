package entities

import (
	"sort"
	"time"
)

// InteractionView is the API shape of an interaction: the stored record plus
// both drug display names and the severity presentation
type InteractionView struct {
	DrugInteraction
	FirstName       string `json:"first_name"`
	SecondName      string `json:"second_name"`
	SeverityDisplay string `json:"severity_display"`
	SeverityColor   string `json:"severity_color"`
}

// NewInteractionView builds the view of an interaction whose drugs are loaded
func NewInteractionView(i DrugInteraction) InteractionView {
	return InteractionView{
		DrugInteraction: i,
		FirstName:       i.FirstName(),
		SecondName:      i.SecondName(),
		SeverityDisplay: i.Severity.Label(),
		SeverityColor:   i.Severity.Color(),
	}
}

// NewInteractionViews maps NewInteractionView over a slice, never returning nil
func NewInteractionViews(interactions []DrugInteraction) []InteractionView {
	views := make([]InteractionView, 0, len(interactions))
	for _, i := range interactions {
		views = append(views, NewInteractionView(i))
	}
	return views
}

// SeverityCount is one bucket of the severity breakdown
type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
	Label    string   `json:"label"`
}

// Stats summarises the catalog
type Stats struct {
	TotalDrugs        int             `json:"total_drugs"`
	TotalInteractions int             `json:"total_interactions"`
	SeverityBreakdown []SeverityCount `json:"severity_breakdown"`
	LastUpdated       *time.Time      `json:"last_updated,omitempty"`
}

// BreakdownEntries converts a severity count map into entries ordered from
// most to least serious. Severities without interactions are left out.
func BreakdownEntries(counts map[Severity]int) []SeverityCount {
	entries := make([]SeverityCount, 0, len(counts))
	for sev, count := range counts {
		if count == 0 {
			continue
		}
		entries = append(entries, SeverityCount{
			Severity: sev,
			Count:    count,
			Label:    sev.Label(),
		})
	}
	sort.Slice(entries, func(a, b int) bool {
		ra, rb := entries[a].Severity.Rank(), entries[b].Severity.Rank()
		if ra != rb {
			return ra < rb
		}
		return entries[a].Severity < entries[b].Severity
	})
	return entries
}
