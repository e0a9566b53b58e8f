package polymarket

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abelbrown/feedterm/internal/model"
)

func TestFetchItemsWithOffset(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[
			{"id":"501","question":"Will it rain?","description":"Resolves YES if it rains.","slug":"rain","volume24hr":125000,
			 "outcomePrices":"[\"0.65\", \"0.35\"]","createdAt":"2024-02-01T00:00:00Z","category":"Weather"},
			{"id":"502","question":"","slug":"blank"},
			{"id":"503","question":"Numeric prices?","slug":"num","outcomePrices":"[0.2, 0.8]","createdAt":"2024-02-02T00:00:00Z"}
		]`)
	}))
	defer server.Close()

	p := New(Options{BaseURL: server.URL})
	items, err := p.FetchItemsWithOffset(context.Background(), 20, 10)
	if err != nil {
		t.Fatalf("FetchItemsWithOffset: %v", err)
	}
	if !strings.Contains(gotQuery, "offset=20") || !strings.Contains(gotQuery, "limit=10") {
		t.Errorf("query = %q", gotQuery)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	rain := items[0]
	if rain.ID != "poly-501" || rain.URL != "https://polymarket.com/event/rain" || rain.Source != "Polymarket" {
		t.Errorf("unexpected item %+v", rain)
	}
	if !strings.HasPrefix(rain.Summary, "65% YES · $125K 24h volume\n") {
		t.Errorf("summary = %q", rain.Summary)
	}
	if s := rain.Metadata.Sentiment; s == nil || s.Label != model.SentimentPositive {
		t.Errorf("sentiment = %+v", s)
	}
	if !strings.HasPrefix(items[1].Summary, "20% YES") {
		t.Errorf("numeric prices summary = %q", items[1].Summary)
	}
}

func TestFirstPrice(t *testing.T) {
	tests := map[string]float64{
		`["0.65","0.35"]`: 0.65,
		`[0.1, 0.9]`:      0.1,
		``:                0.5,
		`[]`:              0.5,
		`["abc"]`:         0.5,
	}
	for in, want := range tests {
		if got := firstPrice(in); math.Abs(got-want) > 1e-9 {
			t.Errorf("firstPrice(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCapabilities(t *testing.T) {
	p := New(Options{})
	if !p.SupportsOffset() || p.SupportsSearch() {
		t.Error("polymarket pages but does not search")
	}
	items, err := p.FetchItems(context.Background(), 0)
	if err != nil || items != nil {
		t.Errorf("zero limit should be a no-op, got %v %v", items, err)
	}
}
