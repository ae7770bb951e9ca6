package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"iptvctl/internal/schedule"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status(r.Context()))
}

func (s *Server) handleOn(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.TurnOn(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": "up"})
}

func (s *Server) handleOff(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.TurnOff(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": "down"})
}

func (s *Server) handleArmTimer(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(chi.URLParam(r, "minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "minutes must be an integer")
		return
	}
	if err := s.backend.ArmTimer(r.Context(), minutes); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"armed":   true,
		"minutes": minutes,
	})
}

func (s *Server) handleCancelTimer(w http.ResponseWriter, r *http.Request) {
	canceled := s.backend.CancelTimer(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}

type historyResponse struct {
	Entries    []historyEntry `json:"entries"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Total      int            `json:"total"`

	Count        int `json:"count"`
	TotalMinutes int `json:"total_minutes"`
}

type historyEntry struct {
	At      time.Time `json:"at"`
	Minutes int       `json:"minutes"`
	Note    string    `json:"note"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = &d
	}
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		page = p
	}

	pg, agg, err := s.backend.History(r.Context(), date, page)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := historyResponse{
		Entries:      make([]historyEntry, 0, len(pg.Entries)),
		Page:         pg.Page,
		TotalPages:   pg.TotalPages,
		Total:        pg.Total,
		Count:        agg.Count,
		TotalMinutes: agg.TotalMinutes,
	}
	for _, e := range pg.Entries {
		resp.Entries = append(resp.Entries, historyEntry{At: e.At, Minutes: e.Minutes, Note: e.Note})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Schedules())
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var in schedule.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed schedule body")
		return
	}
	sc, err := s.backend.CreateSchedule(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var in schedule.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed schedule body")
		return
	}
	sc, err := s.backend.UpdateSchedule(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteSchedule(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	sc, err := s.backend.ToggleSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}
