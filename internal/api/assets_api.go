package api

import (
	"net/http"

	"labbook/internal/metrics"
	"labbook/internal/models"
	"labbook/internal/slots"
	"labbook/internal/timerange"
	"labbook/internal/validator"
)

// GET /api/assets
func (s *HTTPServer) handleListAssets(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("assets_list")
	writeJSON(w, http.StatusOK, map[string]any{"assets": s.svc.GetAssets(r.Context())})
}

// GET /api/assets/{id}
func (s *HTTPServer) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("asset_get")

	asset, err := s.svc.GetAsset(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// PUT /api/assets
func (s *HTTPServer) handleSaveAsset(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("assets_save")

	var req validator.AssetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.writeDomainError(w, err)
		return
	}

	saved, err := s.svc.SaveAsset(r.Context(), req.ToAsset())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// GET /api/assets/{id}/status
func (s *HTTPServer) handleAssetStatus(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("asset_status")

	status, err := s.svc.AssetStatusAt(r.Context(), r.PathValue("id"), s.now())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// SlotsResponse is the body of GET /api/assets/{id}/slots.
type SlotsResponse struct {
	AssetID   string           `json:"assetId"`
	Date      string           `json:"date"`
	Available bool             `json:"available"`
	Slots     []slots.SlotInfo `json:"slots"`
	FreeRuns  []slots.FreeRun  `json:"freeRuns"`
}

// GET /api/assets/{id}/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("asset_slots")

	date, err := s.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assetID := r.PathValue("id")
	day, err := s.svc.TimeSlots(r.Context(), assetID, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{
		AssetID:   assetID,
		Date:      timerange.DayKey(date),
		Available: models.AnyAvailable(day),
		Slots:     slots.ToSlotInfo(day),
		FreeRuns:  slots.FreeRuns(day),
	})
}

// GET /api/assets/{id}/calendar?start=YYYY-MM-DD
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("asset_calendar")

	start, err := s.dateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assetID := r.PathValue("id")
	days, err := s.svc.Calendar(r.Context(), assetID, start)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assetId": assetID, "days": days})
}

// AvailabilityResponse is the body of GET /api/assets/{id}/availability.
type AvailabilityResponse struct {
	AssetID   string              `json:"assetId"`
	Date      string              `json:"date"`
	Start     string              `json:"start"`
	End       string              `json:"end"`
	Status    models.Availability `json:"status"`
	Available bool                `json:"available"`
}

// GET /api/assets/{id}/availability?date=YYYY-MM-DD&start=HH:MM&end=HH:MM
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("asset_availability")

	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("start") == "" || q.Get("end") == "" {
		writeError(w, http.StatusBadRequest, "date, start and end are required")
		return
	}
	date, err := s.dateParam(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assetID := r.PathValue("id")
	status, err := s.svc.CheckAvailability(r.Context(), assetID, date, q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		AssetID:   assetID,
		Date:      timerange.DayKey(date),
		Start:     q.Get("start"),
		End:       q.Get("end"),
		Status:    status,
		Available: status.IsAvailable(),
	})
}
