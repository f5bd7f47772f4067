// Package httpapi exposes the assistant as a JSON API over HTTP using chi.
//
// Routes:
//
//	POST   /api/chat                  handle one turn
//	GET    /api/lookup/{itemID}       look up a historical record
//	GET    /api/sessions/stats        live session statistics
//	GET    /api/sessions/{id}         session state
//	DELETE /api/sessions/{id}         delete a session
//	POST   /api/sessions/{id}/reset   replace a session with a fresh one
//	POST   /api/autocomplete          input suggestions
//	GET    /api/vocabulary/{category} standard terms of a category
//	POST   /api/work-details          draft work details for a record
//	GET    /api/work-orders           list work orders
//	POST   /api/work-orders           finalize a work order
//	GET    /api/work-orders/{id}      fetch a work order
//	GET    /healthz                   liveness
//	GET    /metrics                   Prometheus metrics, when configured
package httpapi
