package pagination

import (
	"context"
	"fmt"

	"github.com/openfda-go/openfda-client/pkg/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for pagination runs.
var (
	fdaPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fda_pagination_pages_total",
		Help: "Total pages fetched by pagination mode",
	}, []string{"mode"})

	fdaModeSwitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fda_pagination_mode_switches_total",
		Help: "Total offset-to-cursor strategy switches at the window ceiling",
	})
)

// Server limits of api.fda.gov.
const (
	// MaxPageSize is the largest page the API serves per request.
	MaxPageSize = 1000

	// OffsetCeiling is the deepest offset reachable with skip-based
	// paging; results beyond it require search_after.
	OffsetCeiling = query.MaxSkip
)

// PageRequest describes one bounded page retrieval. Exactly one of Skip
// or SearchAfter is sent, selected by Cursor.
type PageRequest struct {
	Endpoint query.Endpoint
	Search   string
	Sort     string
	Count    string

	PageSize int

	// Skip is the record offset, used when Cursor is false.
	Skip int

	// SearchAfter is the continuation token, used when Cursor is true.
	// Empty means "first cursor page".
	SearchAfter string
	Cursor      bool
}

// Page is one fetched page plus the server-reported total match count.
type Page struct {
	Records []query.Record
	Total   int
}

// Fetcher performs one bounded page retrieval. It must not retry.
type Fetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// Limiter gates each outbound page fetch.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// state of the pagination machine.
type state int

const (
	stateOffset state = iota
	stateCursor
	stateDone
)

func (s state) String() string {
	switch s {
	case stateOffset:
		return "offset"
	case stateCursor:
		return "cursor"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Error reports a pagination run that cannot proceed safely. Transport
// and HTTP failures are not wrapped in Error; they surface from the
// Fetcher annotated with the page position they occurred at.
type Error struct {
	State  string
	Page   int
	Skip   int
	Cursor string
	Reason string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("pagination failed in %s state at page %d (skip=%d, cursor=%q): %s",
		e.State, e.Page, e.Skip, e.Cursor, e.Reason)
}

// Engine orchestrates repeated page fetches under rate limiter control.
// One Run drives one result accumulation; the engine itself holds no
// state between runs and may be shared.
type Engine struct {
	fetcher Fetcher
	limiter Limiter
	logger  zerolog.Logger
}

// NewEngine creates a pagination engine.
func NewEngine(fetcher Fetcher, limiter Limiter, logger zerolog.Logger) *Engine {
	return &Engine{
		fetcher: fetcher,
		limiter: limiter,
		logger:  logger,
	}
}

// Run fetches the complete result set for q, switching from offset to
// cursor paging when the window ceiling is reached. On any page failure
// the whole run fails; no truncated result is ever returned.
func (e *Engine) Run(ctx context.Context, q query.Query) (*query.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		st      = stateOffset
		skip    = q.Skip
		cursor  string
		total   = -1 // unknown until the probe page
		fetched = 0
		pageNum = 0
		records []query.Record
	)

	for st != stateDone {
		remaining := q.Limit - fetched
		if q.Unlimited() {
			remaining = MaxPageSize
		}
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > MaxPageSize {
			pageSize = MaxPageSize
		}

		// Never request past the known end of the dataset.
		if total >= 0 {
			left := total - fetched
			if left <= 0 {
				break
			}
			if left < pageSize {
				pageSize = left
			}
		}

		if st == stateOffset {
			// Clamp the page so offset fetches stop exactly at the
			// ceiling, then switch strategy for everything beyond it.
			if room := OffsetCeiling - skip; room <= 0 {
				if q.Sort == "" {
					return nil, &Error{
						State:  st.String(),
						Page:   pageNum,
						Skip:   skip,
						Reason: "sort required beyond window ceiling",
					}
				}
				if len(records) == 0 {
					return nil, &Error{
						State:  st.String(),
						Page:   pageNum,
						Skip:   skip,
						Reason: "cannot resume cursor pagination without a previously fetched page",
					}
				}
				cursor = records[len(records)-1].String(q.SortField())
				if cursor == "" {
					return nil, &Error{
						State:  st.String(),
						Page:   pageNum,
						Skip:   skip,
						Reason: fmt.Sprintf("sort field %q missing from last record", q.SortField()),
					}
				}
				st = stateCursor
				fdaModeSwitchesTotal.Inc()
				e.logger.Info().
					Int("fetched", fetched).
					Str("cursor", cursor).
					Msg("Window ceiling reached, switching to cursor pagination")
			} else if pageSize > room {
				pageSize = room
			}
		}

		req := PageRequest{
			Endpoint: q.Endpoint,
			Search:   q.Search,
			Sort:     q.Sort,
			Count:    q.Count,
			PageSize: pageSize,
		}
		if st == stateCursor {
			req.Cursor = true
			req.SearchAfter = cursor
		} else {
			req.Skip = skip
		}

		// Every fetch is gated by exactly one limiter acquisition,
		// including the probe page.
		if err := e.limiter.Acquire(ctx); err != nil {
			return nil, fmt.Errorf("acquire request slot for page %d (%s state): %w", pageNum, st, err)
		}

		page, err := e.fetcher.FetchPage(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d (%s state, skip=%d, cursor=%q): %w",
				pageNum, st, skip, cursor, err)
		}
		fdaPagesTotal.WithLabelValues(st.String()).Inc()
		pageNum++

		// The total is a snapshot from the very first page. Later pages
		// may report different totals while the dataset mutates, so it
		// is never recomputed.
		if total < 0 {
			total = page.Total
		}

		if len(page.Records) == 0 {
			break
		}

		records = append(records, page.Records...)
		fetched += len(page.Records)
		skip += len(page.Records)

		e.logger.Debug().
			Str("mode", st.String()).
			Int("page", pageNum).
			Int("fetched", fetched).
			Int("total", total).
			Msg("Page fetched")

		// A short page signals server exhaustion.
		if len(page.Records) < pageSize {
			break
		}

		// Advance the cursor only when another page is actually needed;
		// a record without the sort field cannot anchor a continuation.
		moreNeeded := (q.Unlimited() || fetched < q.Limit) && fetched < total
		if st == stateCursor && moreNeeded {
			cursor = page.Records[len(page.Records)-1].String(q.SortField())
			if cursor == "" {
				return nil, &Error{
					State:  st.String(),
					Page:   pageNum,
					Skip:   skip,
					Reason: fmt.Sprintf("sort field %q missing from last record", q.SortField()),
				}
			}
		}
	}

	if total < 0 {
		total = 0
	}

	e.logger.Info().
		Int("records", len(records)).
		Int("total", total).
		Int("pages", pageNum).
		Msg("Pagination run complete")

	return &query.Result{
		Records:      records,
		TotalResults: total,
	}, nil
}
