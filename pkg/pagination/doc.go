// Package pagination stitches a complete openFDA result set together from
// bounded page fetches, hiding the API's 25,000-record offset ceiling.
//
// The engine runs a three-state machine:
//
//	Offset: skip/limit paging from the requested offset. Cheap and
//	        order-free, but the API rejects skips beyond 25,000.
//	Cursor: search_after paging, resumed from the sort-field value of the
//	        last record of the previous page. Requires an explicit sort;
//	        without one, cursor order is not stable and records could be
//	        duplicated or dropped while the dataset mutates server-side.
//	Done:   terminal; the accumulated records are returned.
//
// Every page fetch is gated by exactly one rate limiter acquisition,
// including the first probe page used to learn the total count. Errors
// are never swallowed and partial results are never returned: a failing
// page fails the whole run, annotated with the state it failed in.
package pagination
