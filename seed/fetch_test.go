package seed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

const remoteFixture = `drugs:
  - id: VN-900-001
    name: Paracétamol 500mg
    active_ingredient: Paracétamol
interactions: []
`

func TestFetch(t *testing.T) {
	latin, err := charmap.Windows1252.NewEncoder().String(remoteFixture)
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/utf8.yaml":
			w.Write([]byte(remoteFixture))
		case "/cp1252.yaml":
			w.Write([]byte(latin))
		case "/broken.yaml":
			w.Write([]byte("drugs: [unclosed"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name        string
		path        string
		expectError bool
	}{
		{"utf-8 fixture", "/utf8.yaml", false},
		{"windows-1252 fixture", "/cp1252.yaml", false},
		{"invalid yaml", "/broken.yaml", true},
		{"missing fixture", "/missing.yaml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture, err := Fetch(context.Background(), srv.URL+tt.path)

			if tt.expectError {
				if err == nil {
					t.Error("Expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(fixture.Drugs) != 1 {
				t.Fatalf("Expected 1 drug, got %d", len(fixture.Drugs))
			}
			if fixture.Drugs[0].Name != "Paracétamol 500mg" {
				t.Errorf("Expected 'Paracétamol 500mg', got %q", fixture.Drugs[0].Name)
			}
		})
	}
}

func TestFetchRejectsNonHTTPURL(t *testing.T) {
	for _, raw := range []string{"file:///etc/passwd", "ftp://example.org/x.yaml", "not a url", "http://"} {
		_, err := Fetch(context.Background(), raw)
		if err == nil || !strings.Contains(err.Error(), "invalid fixture url") {
			t.Errorf("Expected invalid url error for %q, got %v", raw, err)
		}
	}
}
