package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkrenek/adwatch/internal/logger"
)

const resultsPage = `<!DOCTYPE html>
<html><body>
<div class="inzeraty inzeratyflex">
  <span>Zobrazeno 1-20 inzeratu z 54</span>
</div>
<div class="inzeraty inzeratyflex">
  <h2 class="nadpis"><a href="/inzerat/123456789/prodam-kolo.php">Prodam kolo</a></h2>
  <div class="popis">Horske kolo, malo jete, super stav.</div>
  <div class="inzeratycena">2 500 Kč</div>
  <div class="inzeratylok">Praha</div>
  <span class="velikost10">-TOP- [8.7. 2025]</span>
  <img src="/img/123456789.jpg">
</div>
<div class="inzeraty inzeratyflex">
  <h2 class="nadpis"><a href="https://bazos.example/inzerat/987654321/stul.php">Stul</a></h2>
  <div class="inzeratycena">Dohodou</div>
  <span class="velikost10">12.11.2024</span>
</div>
</body></html>`

func newTestFetcher(srvURL string) *BazosFetcher {
	return NewBazosFetcher(Options{
		BaseURL:  srvURL,
		Timeout:  2 * time.Second,
		MaxPages: 3,
	}, logger.New("error", false))
}

func TestFetchParsesListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("crz") != "0" {
			fmt.Fprint(w, "<html><body></body></html>")
			return
		}
		if got := r.URL.Query().Get("hledat"); got != "kolo" {
			t.Errorf("hledat = %q, want kolo", got)
		}
		fmt.Fprint(w, resultsPage)
	}))
	defer srv.Close()

	listings, err := newTestFetcher(srv.URL).Fetch(context.Background(), "kolo")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2 (header container must be skipped)", len(listings))
	}

	first := listings[0]
	if first.ExternalID != "123456789" {
		t.Errorf("ExternalID = %q, want 123456789", first.ExternalID)
	}
	if first.Title != "Prodam kolo" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Link != srv.URL+"/inzerat/123456789/prodam-kolo.php" {
		t.Errorf("Link = %q", first.Link)
	}
	if first.Price != "2 500 Kč" {
		t.Errorf("Price = %q", first.Price)
	}
	if first.Location != "Praha" {
		t.Errorf("Location = %q", first.Location)
	}
	if first.PostedAtRaw != "8.7. 2025" {
		t.Errorf("PostedAtRaw = %q, want bracketed date", first.PostedAtRaw)
	}
	if first.PostedAt == nil {
		t.Error("PostedAt = nil, want parsed date")
	}
	if first.ImageURL != srv.URL+"/img/123456789.jpg" {
		t.Errorf("ImageURL = %q", first.ImageURL)
	}

	second := listings[1]
	if second.ExternalID != "987654321" {
		t.Errorf("second ExternalID = %q", second.ExternalID)
	}
	if second.Link != "https://bazos.example/inzerat/987654321/stul.php" {
		t.Errorf("absolute link rewritten: %q", second.Link)
	}
	if second.PostedAtRaw != "12.11.2024" {
		t.Errorf("second PostedAtRaw = %q, want bare date fallback", second.PostedAtRaw)
	}
	if second.Description != "Stul" {
		t.Errorf("Description = %q, want title fallback", second.Description)
	}
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		crz := r.URL.Query().Get("crz")
		pagesServed = append(pagesServed, crz)
		if crz == "0" {
			fmt.Fprint(w, resultsPage)
			return
		}
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	listings, err := newTestFetcher(srv.URL).Fetch(context.Background(), "kolo")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if len(pagesServed) != 2 {
		t.Errorf("pages requested = %v, want exactly [0 20]", pagesServed)
	}
}

func TestFetchErrorsOnServerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := newTestFetcher(srv.URL).Fetch(context.Background(), "kolo"); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestExtractAdID(t *testing.T) {
	tests := []struct {
		href, want string
	}{
		{"/inzerat/123456789/prodam-kolo.php", "123456789"},
		{"https://bazos.example/inzerat/42/x.php", "42"},
		{"/inzerat/no-id/x.php", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractAdID(tt.href); got != tt.want {
			t.Errorf("extractAdID(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
