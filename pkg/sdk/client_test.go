package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req SearchRequest
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "wireless mouse" || req.TopK != 5 {
			t.Errorf("request = %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Query: req.Query,
			Total: 1,
			Results: []SearchItem{
				{ID: "p-1", Title: "Wireless Mouse", Score: 2.8, Source: "products", Strategies: []string{"keyword", "vector"}},
			},
			Metadata: SearchMetadata{SourcesQueried: []string{"products"}},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Search(context.Background(), SearchRequest{Query: "wireless mouse", TopK: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].ID != "p-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestSearch_UnknownSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "unknown_source",
			"message": "unknown source",
		})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "x", Source: "nope"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "retrieval_unavailable",
			"message": "retrieval unavailable",
		})
	}))
	defer server.Close()

	c := New(server.URL)
	_, err := c.Search(context.Background(), SearchRequest{Query: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != "retrieval_unavailable" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestRebuild_All(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/rebuild" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		// rebuild-all sends no body
		body, _ := io.ReadAll(r.Body)
		if len(body) != 0 {
			t.Errorf("expected empty body, got %s", body)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RebuildResponse{
			SourcesRebuilt: []string{"products", "faq"},
			RecordsIndexed: map[string]int{"products": 10, "faq": 3},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Rebuild(context.Background(), "")
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if len(resp.SourcesRebuilt) != 2 || resp.RecordsIndexed["products"] != 10 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRebuild_Named(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["source"] != "products" {
			t.Errorf("source = %q", req["source"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RebuildResponse{SourcesRebuilt: []string{"products"}})
	}))
	defer server.Close()

	c := New(server.URL)
	if _, err := c.Rebuild(context.Background(), "products"); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
}

func TestStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/status" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(StatusResponse{
			Sources: []SourceStatus{
				{Name: "products", CollectionName: "products_vector", IndexedCount: 42},
			},
		})
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].IndexedCount != 42 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthy(t *testing.T) {
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	c := New(server.URL)
	ok, err := c.Healthy(context.Background())
	if err != nil || !ok {
		t.Fatalf("Healthy = (%v, %v), want (true, nil)", ok, err)
	}

	healthy = false
	ok, err = c.Healthy(context.Background())
	if err != nil || ok {
		t.Fatalf("Healthy = (%v, %v), want (false, nil)", ok, err)
	}
}
