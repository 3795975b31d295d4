package client

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/openfda-go/openfda-client/internal/testutil"
	"github.com/openfda-go/openfda-client/pkg/query"
	"github.com/redis/go-redis/v9"
)

// newTestClient creates a client pointed at the mock server.
func newTestClient(t *testing.T, mock *testutil.MockFDA, mutate ...func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	for _, m := range mutate {
		m(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "missing user-agent",
			cfg:     Config{BaseURL: DefaultBaseURL},
			wantErr: true,
		},
		{
			name: "redis without cache ttl",
			cfg: Config{
				UserAgent: "test/1.0",
				Redis:     redis.NewClient(&redis.Options{}),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("New() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			c.Close()
		})
	}
}

func TestNew_FillsBaseURL(t *testing.T) {
	c, err := New(Config{UserAgent: "test/1.0"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if c.config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", c.config.BaseURL, DefaultBaseURL)
	}
}

func TestSearch_SinglePage(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	dataset := testutil.NewOrderedDataset(500, "receivedate")
	mock.SetHandler("/drug/ndc.json", dataset.Handler())

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugNDC,
		query.WithSearch(`brand_name:"tylenol"`),
		query.WithLimit(10),
	)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	result, err := c.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if result.Returned() != 10 {
		t.Errorf("Returned() = %d, want 10", result.Returned())
	}
	if result.TotalResults != 500 {
		t.Errorf("TotalResults = %d, want 500", result.TotalResults)
	}
	if mock.RequestCount != 1 {
		t.Errorf("server saw %d requests, want 1", mock.RequestCount)
	}

	if got := mock.LastQuery.Get("search"); got != `brand_name:"tylenol"` {
		t.Errorf("search param = %q", got)
	}
	if got := mock.LastQuery.Get("limit"); got != "10" {
		t.Errorf("limit param = %q, want 10", got)
	}
	if mock.LastQuery.Has("skip") {
		t.Error("skip param sent for first page at offset 0")
	}
	if mock.LastQuery.Has("api_key") {
		t.Error("api_key param sent without a configured key")
	}
}

func TestSearch_PassesSortAndSkip(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	dataset := testutil.NewOrderedDataset(1000, "receivedate")
	mock.SetHandler("/drug/event.json", dataset.Handler())

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugEvent,
		query.WithSort("receivedate:asc"),
		query.WithSkip(100),
		query.WithLimit(50),
	)
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	if _, err := c.Search(context.Background(), q); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := mock.LastQuery.Get("sort"); got != "receivedate:asc" {
		t.Errorf("sort param = %q", got)
	}
	if got := mock.LastQuery.Get("skip"); got != "100" {
		t.Errorf("skip param = %q, want 100", got)
	}
}

func TestSearch_APIKeySent(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	dataset := testutil.NewOrderedDataset(10, "receivedate")
	mock.SetHandler("/drug/ndc.json", dataset.Handler())

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.APIKey = "test-key-123"
	})

	q, err := query.New(query.DrugNDC, query.WithLimit(5))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	if _, err := c.Search(context.Background(), q); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if got := mock.LastQuery.Get("api_key"); got != "test-key-123" {
		t.Errorf("api_key param = %q", got)
	}
}

func TestSearch_MultiPageThroughClient(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	dataset := testutil.NewOrderedDataset(2500, "receivedate")
	mock.SetHandler("/drug/event.json", dataset.Handler())

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugEvent, query.WithLimit(query.LimitUnlimited))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	result, err := c.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if result.Returned() != 2500 {
		t.Errorf("Returned() = %d, want 2500", result.Returned())
	}
	if _, offset, cursor := mock.Counts(); offset != 3 || cursor != 0 {
		t.Errorf("offset/cursor requests = %d/%d, want 3/0", offset, cursor)
	}

	// Records survive the trip with their fields intact.
	if got := result.Records[0].String("record_id"); got != "0" {
		t.Errorf("first record_id = %q, want 0", got)
	}
	if got := result.Records[2499].String("record_id"); got != "2499" {
		t.Errorf("last record_id = %q, want 2499", got)
	}
}

func TestFetchPage_HTTPError_Client(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	mock.SetHandler("/drug/ndc.json", testutil.ErrorHandler(
		http.StatusNotFound, "NOT_FOUND", "No matches found!"))

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugNDC, query.WithLimit(10))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	_, err = c.Search(context.Background(), q)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Search() error = %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
	}
	if httpErr.Class() != ErrorClassClient {
		t.Errorf("Class() = %q, want client", httpErr.Class())
	}
	if httpErr.Retryable() {
		t.Error("Retryable() = true for a 4xx error")
	}
	if httpErr.Message != "No matches found!" {
		t.Errorf("Message = %q, want API error message", httpErr.Message)
	}
}

func TestFetchPage_HTTPError_Server(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	mock.SetHandler("/drug/ndc.json", testutil.ErrorHandler(
		http.StatusInternalServerError, "SERVER_ERROR", "Internal server error"))

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugNDC, query.WithLimit(10))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	_, err = c.Search(context.Background(), q)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Search() error = %v, want *HTTPError", err)
	}
	if httpErr.Class() != ErrorClassServer {
		t.Errorf("Class() = %q, want server", httpErr.Class())
	}
	if !httpErr.Retryable() {
		t.Error("Retryable() = false for a 5xx error")
	}
}

func TestFetchPage_DecodeError(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	mock.SetHandler("/drug/ndc.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("this is not json"))
	})

	c := newTestClient(t, mock)

	q, err := query.New(query.DrugNDC, query.WithLimit(10))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	_, err = c.Search(context.Background(), q)

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Search() error = %v, want *DecodeError", err)
	}
}

func TestFetchPage_TransportError(t *testing.T) {
	mock := testutil.NewMockFDA()
	c := newTestClient(t, mock)
	mock.Close() // nothing is listening anymore

	q, err := query.New(query.DrugNDC, query.WithLimit(10))
	if err != nil {
		t.Fatalf("query.New() error = %v", err)
	}

	_, err = c.Search(context.Background(), q)

	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("Search() error = %v, want *TransportError", err)
	}
}

func TestSearch_InvalidQueryNoNetwork(t *testing.T) {
	mock := testutil.NewMockFDA()
	defer mock.Close()

	c := newTestClient(t, mock)

	_, err := c.Search(context.Background(), query.Query{
		Endpoint: query.DrugNDC,
		Limit:    -7,
	})

	var vErr *query.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Search() error = %v, want *query.ValidationError", err)
	}
	if mock.RequestCount != 0 {
		t.Errorf("server saw %d requests for an invalid query", mock.RequestCount)
	}
}
