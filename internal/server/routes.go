package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/charmlink/internal/engine"
	"github.com/lazypower/charmlink/internal/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var kindStatus = map[string]int{
	engine.KindNotFound:        http.StatusNotFound,
	engine.KindUnauthorized:    http.StatusForbidden,
	engine.KindInvalidArgument: http.StatusBadRequest,
	engine.KindConflict:        http.StatusConflict,
	engine.KindStorage:         http.StatusInternalServerError,
}

// writeError maps an engine error kind to its HTTP status. Storage failures
// are logged and reported without detail.
func writeError(w http.ResponseWriter, err error) {
	kind := engine.KindOf(err)
	status := kindStatus[kind]
	msg := err.Error()
	if kind == engine.KindStorage {
		logger.Error("storage failure", "err", err)
		msg = "storage failure"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", engine.ErrInvalidArgument, err)
	}
	return nil
}

func (s *Server) handleCreateCharm(w http.ResponseWriter, r *http.Request) {
	var req CreateCharmRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := s.engine.CreateCharm(r.Context(), access(r), req.ProductType, req.Label)
	s.metrics.observeOp("create_charm", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCharms(w http.ResponseWriter, r *http.Request) {
	charms, err := s.engine.Charms(r.Context(), access(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CharmsResponse{Charms: charms})
}

func (s *Server) handleGetCharm(w http.ResponseWriter, r *http.Request) {
	c, err := s.engine.Charm(r.Context(), chi.URLParam(r, "charmID"), access(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateHabits(w http.ResponseWriter, r *http.Request) {
	var req CreateHabitsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	habits, err := s.engine.CreateHabits(r.Context(), chi.URLParam(r, "charmID"), access(r), req.Habits, s.now())
	s.metrics.observeOp("create_habits", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HabitsResponse{Habits: habits})
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r)
	if err != nil {
		writeError(w, err)
		return
	}
	habits, err := s.engine.Habits(r.Context(), chi.URLParam(r, "charmID"), access(r), today)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HabitsResponse{Habits: habits})
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habitID := chi.URLParam(r, "habitID")
	today, err := s.today(r)
	if err != nil {
		writeError(w, err)
		return
	}

	h, err := s.engine.Habit(r.Context(), habitID, access(r), today)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := HabitResponse{Habit: *h}

	if v, _ := strconv.ParseBool(r.URL.Query().Get("verify")); v {
		drift, err := s.engine.Verify(r.Context(), habitID, access(r), today)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Verify = drift
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	err := s.engine.DeleteHabit(r.Context(), chi.URLParam(r, "habitID"), access(r))
	s.metrics.observeOp("delete_habit", err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogToday(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.LogToday(r.Context(), chi.URLParam(r, "habitID"), access(r), today)
	s.metrics.observeOp("log_today", err)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, LogResponse{Habit: res.Habit, Day: res.Day, Created: res.Created})
}

func (s *Server) handleToggleDate(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := engine.ParseDay(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}
	today, err := s.today(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.ToggleDate(r.Context(), chi.URLParam(r, "habitID"), access(r), date, today)
	s.metrics.observeOp("toggle_date", err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Habit: res.Habit, Day: res.Day, Marked: res.Marked})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: days must be an integer", engine.ErrInvalidArgument))
			return
		}
		if n == 0 {
			writeError(w, fmt.Errorf("%w: days must not be zero", engine.ErrInvalidArgument))
			return
		}
		days = n
	}
	today, err := s.today(r)
	if err != nil {
		writeError(w, err)
		return
	}

	hist, err := s.engine.History(r.Context(), chi.URLParam(r, "habitID"), access(r), days, today)
	s.metrics.observeOp("history", err)
	if err != nil {
		writeError(w, err)
		return
	}

	win := hist.Window
	writeJSON(w, http.StatusOK, GraphResponse{
		Habit:     hist.Habit,
		Start:     engine.FormatDay(win.Start),
		End:       engine.FormatDay(win.End),
		Today:     engine.FormatDay(win.Today),
		Days:      win.Days,
		Cells:     win.Len(),
		Completed: win.Completed(),
		Weeks:     win.Weeks(),
	})
}
