package api

import (
	"net/http"

	"labbook/internal/metrics"
	"labbook/internal/validator"
)

// GET /api/bookings
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_list")
	writeJSON(w, http.StatusOK, map[string]any{"bookings": s.svc.GetBookings(r.Context())})
}

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_create")

	var req validator.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	b, err := req.ToBooking(s.svc.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.Book(r.Context(), b); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}
