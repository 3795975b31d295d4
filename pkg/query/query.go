// Package query defines the search parameters accepted by the openFDA API
// and the result types returned by the client. Queries are validated at
// construction, not at call time.
package query

import (
	"fmt"
	"strings"
)

// Endpoint identifies an openFDA dataset path.
type Endpoint string

// Endpoints supported by api.fda.gov.
const (
	DrugNDC               Endpoint = "/drug/ndc.json"
	DrugEvent             Endpoint = "/drug/event.json"
	DrugLabel             Endpoint = "/drug/label.json"
	DrugEnforcement       Endpoint = "/drug/enforcement.json"
	DrugsFDA              Endpoint = "/drug/drugsfda.json"
	DeviceEvent           Endpoint = "/device/event.json"
	Device510k            Endpoint = "/device/510k.json"
	DeviceClassification  Endpoint = "/device/classification.json"
	DeviceRecall          Endpoint = "/device/recall.json"
	DeviceEnforcement     Endpoint = "/device/enforcement.json"
	DevicePMA             Endpoint = "/device/pma.json"
	DeviceRegistration    Endpoint = "/device/registrationlisting.json"
	DeviceUDI             Endpoint = "/device/udi.json"
	DeviceCovid19Serology Endpoint = "/device/covid19serology.json"
	FoodEvent             Endpoint = "/food/event.json"
	FoodEnforcement       Endpoint = "/food/enforcement.json"
	AnimalVetEvent        Endpoint = "/animalandveterinary/event.json"
	CosmeticEvent         Endpoint = "/cosmetic/event.json"
	TobaccoProblem        Endpoint = "/tobacco/problem.json"
	OtherHistorical       Endpoint = "/other/historicaldocument.json"
	OtherNSDE             Endpoint = "/other/nsde.json"
	OtherSubstance        Endpoint = "/other/substance.json"
)

const (
	// LimitUnlimited requests every matching record regardless of count.
	LimitUnlimited = -1

	// DefaultLimit is applied when a query does not specify a limit.
	DefaultLimit = 1000

	// MaxSkip is the deepest offset the API accepts for skip-based paging.
	MaxSkip = 25000
)

// Query holds validated search parameters for one openFDA endpoint.
//
// Limit is the total number of records wanted across all pages, not the
// page size; use LimitUnlimited to fetch everything available. Sort is
// required for result sets that paginate past MaxSkip.
type Query struct {
	Endpoint Endpoint

	// Search is the openFDA search expression, e.g. `brand_name:"tylenol"`.
	Search string

	// Sort is "field:asc" or "field:desc".
	Sort string

	// Count asks the API to count unique values of a field instead of
	// returning records.
	Count string

	Limit int
	Skip  int
}

// ValidationError reports a query parameter that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query: %s %s", e.Field, e.Reason)
}

// New builds a validated Query for the given endpoint.
// A zero limit is replaced by DefaultLimit before validation.
func New(endpoint Endpoint, opts ...Option) (Query, error) {
	q := Query{
		Endpoint: endpoint,
		Limit:    DefaultLimit,
	}
	for _, opt := range opts {
		opt(&q)
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Option configures a Query during construction.
type Option func(*Query)

// WithSearch sets the search expression.
func WithSearch(search string) Option {
	return func(q *Query) { q.Search = search }
}

// WithSort sets the sort order ("field:asc" or "field:desc").
func WithSort(sort string) Option {
	return func(q *Query) { q.Sort = sort }
}

// WithCount sets the count field.
func WithCount(count string) Option {
	return func(q *Query) { q.Count = count }
}

// WithLimit sets the total record limit. Use LimitUnlimited for all records.
func WithLimit(limit int) Option {
	return func(q *Query) { q.Limit = limit }
}

// WithSkip sets the initial record offset.
func WithSkip(skip int) Option {
	return func(q *Query) { q.Skip = skip }
}

// Validate checks all query parameters and returns a *ValidationError on
// the first violation.
func (q Query) Validate() error {
	if q.Endpoint == "" {
		return &ValidationError{Field: "endpoint", Reason: "must not be empty"}
	}

	if q.Limit == 0 {
		return &ValidationError{Field: "limit", Reason: "cannot be 0, use LimitUnlimited or a positive number"}
	}
	if q.Limit < LimitUnlimited {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be positive or LimitUnlimited, got %d", q.Limit)}
	}

	if q.Skip < 0 || q.Skip > MaxSkip {
		return &ValidationError{Field: "skip", Reason: fmt.Sprintf("must be in [0, %d], got %d", MaxSkip, q.Skip)}
	}

	if q.Sort != "" {
		if _, _, err := splitSort(q.Sort); err != nil {
			return err
		}
	}

	return nil
}

// Unlimited reports whether the query asks for every matching record.
func (q Query) Unlimited() bool {
	return q.Limit == LimitUnlimited
}

// SortField returns the field part of the sort parameter, or "" if the
// query has no sort.
func (q Query) SortField() string {
	if q.Sort == "" {
		return ""
	}
	field, _, _ := splitSort(q.Sort)
	return field
}

// splitSort parses "field:direction" and validates the direction.
func splitSort(sort string) (field, direction string, err error) {
	field, direction, found := strings.Cut(sort, ":")
	if !found || field == "" {
		return "", "", &ValidationError{Field: "sort", Reason: fmt.Sprintf("must be \"field:asc\" or \"field:desc\", got %q", sort)}
	}
	if direction != "asc" && direction != "desc" {
		return "", "", &ValidationError{Field: "sort", Reason: fmt.Sprintf("direction must be asc or desc, got %q", direction)}
	}
	return field, direction, nil
}
