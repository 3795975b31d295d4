// Package testutil provides testing utilities for the openFDA client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
)

// MockFDA is a configurable mock openFDA server for testing.
type MockFDA struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount   int
	OffsetRequests int
	CursorRequests int
	LastQuery      url.Values
}

// NewMockFDA creates a new mock openFDA server.
func NewMockFDA() *MockFDA {
	mock := &MockFDA{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = q
		if q.Has("search_after") {
			mock.CursorRequests++
		} else {
			mock.OffsetRequests++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		// Default: an empty dataset
		WritePage(w, 0, nil)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockFDA) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockFDA) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFDA) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.OffsetRequests = 0
	m.CursorRequests = 0
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific endpoint path.
func (m *MockFDA) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// Counts returns the tracked request counts (total, offset, cursor).
func (m *MockFDA) Counts() (total, offset, cursor int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount, m.OffsetRequests, m.CursorRequests
}

// WritePage writes a well-formed openFDA page envelope.
func WritePage(w http.ResponseWriter, total int, records []map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	envelope := map[string]any{
		"meta": map[string]any{
			"results": map[string]any{
				"total": total,
			},
		},
		"results": records,
	}
	_ = json.NewEncoder(w).Encode(envelope)
}

// ErrorHandler returns a handler serving the openFDA error envelope with
// the given status.
func ErrorHandler(status int, code, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		})
	}
}

// Dataset serves a deterministic ordered dataset for one endpoint,
// supporting both skip/limit and search_after paging the way api.fda.gov
// does. Records carry a sortable SortField value and a record_id.
type Dataset struct {
	SortField string
	Records   []map[string]any

	// ReportedTotal overrides the total in the envelope when > 0;
	// otherwise len(Records) is reported.
	ReportedTotal int
}

// NewOrderedDataset builds n records with zero-padded ascending values of
// sortField, so string comparison equals numeric ordering.
func NewOrderedDataset(n int, sortField string) *Dataset {
	records := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		records[i] = map[string]any{
			"record_id": strconv.Itoa(i),
			sortField:   fmt.Sprintf("%08d", i),
		}
	}
	return &Dataset{
		SortField: sortField,
		Records:   records,
	}
}

// Handler serves pages of the dataset.
func (d *Dataset) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := 1000
		if v := q.Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}

		start := 0
		if v := q.Get("skip"); v != "" {
			start, _ = strconv.Atoi(v)
		}
		if token := q.Get("search_after"); token != "" {
			// First record strictly after the token in sort order.
			start = sort.Search(len(d.Records), func(i int) bool {
				return fmt.Sprint(d.Records[i][d.SortField]) > token
			})
		}

		end := start + limit
		if start > len(d.Records) {
			start = len(d.Records)
		}
		if end > len(d.Records) {
			end = len(d.Records)
		}

		total := len(d.Records)
		if d.ReportedTotal > 0 {
			total = d.ReportedTotal
		}

		WritePage(w, total, d.Records[start:end])
	}
}
