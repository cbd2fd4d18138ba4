package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleGetOrder exposes a submitted order for status polling.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	o, err := s.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		s.log.Error().Str("orderId", orderID).Err(err).Msg("order lookup failed")
		s.writeError(w, http.StatusInternalServerError, "order lookup failed")
		return
	}
	if o == nil {
		s.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

// handleReset discards a conversation's history and cart.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "conversationID")
	s.history.Reset(cid)
	if err := s.orders.ResetCart(r.Context(), cid); err != nil {
		s.log.Warn().Str("conversationId", cid).Err(err).Msg("cart reset failed")
	}
	ClearConversationCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
