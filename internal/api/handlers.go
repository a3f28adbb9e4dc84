package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/julianstephens/streaklit/internal/errors"
	"github.com/julianstephens/streaklit/internal/models"
	"github.com/julianstephens/streaklit/internal/render"
	"github.com/julianstephens/streaklit/internal/storage"
	"github.com/julianstephens/streaklit/internal/tracker"
	"github.com/julianstephens/streaklit/internal/utils"
)

type addHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type markRequest struct {
	// Date is YYYY-MM-DD; empty means today.
	Date string `json:"date"`
}

type chartResponse struct {
	Title  string              `json:"title"`
	Points []models.ChartPoint `json:"points"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrDuplicateName):
		return http.StatusConflict
	case errors.Is(err, errors.ErrUnknownHabit):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func habitID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Invalid("invalid habit id %q", raw)
	}
	return id, nil
}

// decodeBody decodes JSON into dst. An empty body leaves dst untouched.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.Invalid("malformed request body: %v", err)
	}
	return nil
}

func wantsText(r *http.Request) bool {
	return r.URL.Query().Get("format") == "text"
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body+"\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.GetDashboardSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"habits": summaries})
}

func (s *Server) handleAddHabit(w http.ResponseWriter, r *http.Request) {
	var req addHabitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	h, err := s.svc.AddHabit(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/habits/%d", h.ID))
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.svc.DeleteHabit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !result.Found {
		writeError(w, r, fmt.Errorf("%w: id %d", errors.ErrUnknownHabit, id))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	s.handleMarkChange(w, r, s.svc.MarkDone)
}

func (s *Server) handleUnmark(w http.ResponseWriter, r *http.Request) {
	s.handleMarkChange(w, r, s.svc.Unmark)
}

func (s *Server) handleMarkChange(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id int64, day time.Time) error) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req markRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	var day time.Time
	if req.Date != "" {
		if day, err = utils.ParseDay(req.Date); err != nil {
			writeError(w, r, errors.Invalid("%v", err))
			return
		}
	}
	if err := apply(r.Context(), id, day); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	id, err := habitID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tl, err := s.svc.GetHabitTimeline(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wantsText(r) {
		writeText(w, render.Heatmap(tl))
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.GetDashboardSummary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	points := tracker.BarSeries(summaries)
	if wantsText(r) {
		writeText(w, render.BarChart(render.ChartTitle, points, render.DefaultBarWidth))
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{Title: render.ChartTitle, Points: points})
}
