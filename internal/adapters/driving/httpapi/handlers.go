package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/workorder-assistant/internal/core/domain"
	"github.com/custodia-labs/workorder-assistant/internal/logger"
)

const maxBodyBytes = 64 << 10

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// AutocompleteRequest is the body of POST /api/autocomplete.
type AutocompleteRequest struct {
	Input string `json:"input"`
}

// AutocompleteResponse lists suggestions for partial input.
type AutocompleteResponse struct {
	Suggestions []string `json:"suggestions"`
}

// WorkDetailsRequest is the body of POST /api/work-details.
type WorkDetailsRequest struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
}

// FinalizeRequest is the body of POST /api/work-orders.
type FinalizeRequest struct {
	SessionID   string `json:"session_id"`
	ItemID      string `json:"item_id"`
	WorkTitle   string `json:"work_title"`
	WorkDetails string `json:"work_details"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.ports.Assistant.HandleTurn(r.Context(), req.Message, req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	record, err := s.ports.Assistant.LookupByIdentifier(r.Context(), pathParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	var req AutocompleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	suggestions, err := s.ports.Assistant.Suggest(r.Context(), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, AutocompleteResponse{Suggestions: suggestions})
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	terms, err := s.ports.Assistant.Vocabulary(r.Context(), domain.Category(pathParam(r, "category")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, terms)
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ports.Assistant.SessionStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.ports.Assistant.GetSession(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.ports.Assistant.DeleteSession(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.ports.Assistant.ResetSession(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleWorkDetails(w http.ResponseWriter, r *http.Request) {
	if !s.workOrdersEnabled(w) {
		return
	}
	var req WorkDetailsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	details, err := s.ports.WorkOrders.GenerateDetails(r.Context(), req.SessionID, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	if !s.workOrdersEnabled(w) {
		return
	}
	var req FinalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	order, err := s.ports.WorkOrders.Finalize(r.Context(), req.SessionID, req.ItemID, req.WorkTitle, req.WorkDetails)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleListWorkOrders(w http.ResponseWriter, r *http.Request) {
	if !s.workOrdersEnabled(w) {
		return
	}
	orders, err := s.ports.WorkOrders.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.WorkOrder{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetWorkOrder(w http.ResponseWriter, r *http.Request) {
	if !s.workOrdersEnabled(w) {
		return
	}
	order, err := s.ports.WorkOrders.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) workOrdersEnabled(w http.ResponseWriter) bool {
	if s.ports.WorkOrders != nil {
		return true
	}
	writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "work orders are not enabled"})
	return false
}

// pathParam returns a decoded URL parameter. Item IDs may contain
// characters such as '"' that arrive percent-encoded.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(err, "request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response: %v", err)
	}
}
