package web

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ingest/internal/core"
	"github.com/JonMunkholm/ingest/internal/ledger"
	"github.com/JonMunkholm/ingest/internal/logging"
	"github.com/JonMunkholm/ingest/internal/pipeline"
	"github.com/JonMunkholm/ingest/internal/summary"
)

const defaultListLimit = 50

// runRow is one entity outcome as shown by the API and the status page.
type runRow struct {
	RunDate           string    `json:"run_date"`
	Entity            string    `json:"entity"`
	Status            string    `json:"status"`
	Total             int       `json:"total"`
	Valid             int       `json:"valid"`
	Invalid           int       `json:"invalid"`
	ValidatedLocator  string    `json:"validated_locator,omitempty"`
	QuarantineLocator string    `json:"quarantine_locator,omitempty"`
	Error             string    `json:"error,omitempty"`
	FinishedAt        time.Time `json:"finished_at"`
}

// TriggerResponse is the body of POST /api/runs/{date}.
type TriggerResponse struct {
	Summary summary.RunSummary `json:"summary"`
	Errors  []ErrorResponse    `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"entities": core.Names(),
	})
}

func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Limiter.Status())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rows, err := s.recentRows(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": rows})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runDate, err := core.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rows, err := s.rowsForDate(r.Context(), runDate)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if len(rows) == 0 {
		respondError(w, r, errRunNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_date": runDate.String(),
		"runs":     rows,
	})
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	runDate, err := core.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.opts.Limiter.Acquire(r.Context(), runDate); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, pipeline.ErrRunInProgress) {
			status = http.StatusConflict
		}
		respondError(w, r, err, status)
		return
	}
	defer s.opts.Limiter.Release(runDate)

	// A client disconnect must not abort a run halfway.
	ctx := context.WithoutCancel(r.Context())
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	sum, runErr := s.opts.Runner.Run(ctx, runDate)

	rec := runRecord{Summary: sum, Failed: failedEntities(runErr), Finished: time.Now()}
	resp := TriggerResponse{Summary: sum}
	for _, msg := range core.MapErrors(runErr) {
		rec.Errors = append(rec.Errors, msg)
		resp.Errors = append(resp.Errors, ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code})
	}
	s.mu.Lock()
	s.last[runDate] = rec
	s.mu.Unlock()

	status := http.StatusOK
	if runErr != nil {
		logging.FromContext(r.Context()).Error("run finished with failures",
			"run_date", runDate.String(),
			"error", runErr,
		)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// recentRows reads the ledger when configured, else the runs triggered here.
func (s *Server) recentRows(ctx context.Context, limit int) ([]runRow, error) {
	if s.opts.History != nil {
		runs, err := s.opts.History.ListRecent(ctx, limit)
		if err != nil {
			return nil, err
		}
		return ledgerRows(runs), nil
	}

	s.mu.RLock()
	var rows []runRow
	for _, rec := range s.last {
		rows = append(rows, summaryRows(rec)...)
	}
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].FinishedAt.Equal(rows[j].FinishedAt) {
			return rows[i].FinishedAt.After(rows[j].FinishedAt)
		}
		return rows[i].Entity < rows[j].Entity
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Server) rowsForDate(ctx context.Context, runDate core.Date) ([]runRow, error) {
	if s.opts.History != nil {
		runs, err := s.opts.History.ForDate(ctx, runDate)
		if err != nil {
			return nil, err
		}
		return ledgerRows(runs), nil
	}

	s.mu.RLock()
	rec, ok := s.last[runDate]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return summaryRows(rec), nil
}

func ledgerRows(runs []ledger.Run) []runRow {
	rows := make([]runRow, len(runs))
	for i, r := range runs {
		rows[i] = runRow{
			RunDate:           r.RunDate.String(),
			Entity:            r.Entity,
			Status:            r.Status,
			Total:             r.Total,
			Valid:             r.Valid,
			Invalid:           r.Invalid,
			ValidatedLocator:  r.ValidatedLocator,
			QuarantineLocator: r.QuarantineLocator,
			Error:             r.Error,
			FinishedAt:        r.FinishedAt,
		}
	}
	return rows
}

// summaryRows lists the entities of an in-memory run record, failed ones last.
func summaryRows(rec runRecord) []runRow {
	rows := make([]runRow, 0, len(rec.Summary.Entities)+len(rec.Failed))
	for _, name := range rec.Summary.Names() {
		es := rec.Summary.Entities[name]
		rows = append(rows, runRow{
			RunDate:           rec.Summary.RunDate,
			Entity:            es.Entity,
			Status:            ledger.StatusSucceeded,
			Total:             es.Total,
			Valid:             es.Valid,
			Invalid:           es.Invalid,
			ValidatedLocator:  es.ValidatedLocator,
			QuarantineLocator: es.QuarantineLocator,
			FinishedAt:        rec.Finished,
		})
	}
	for _, f := range rec.Failed {
		rows = append(rows, runRow{
			RunDate:    rec.Summary.RunDate,
			Entity:     f.Entity,
			Status:     ledger.StatusFailed,
			Error:      f.Error,
			FinishedAt: rec.Finished,
		})
	}
	return rows
}

// failedEntities lists the entities named by the FatalErrors joined in err.
func failedEntities(err error) []failedEntity {
	if err == nil {
		return nil
	}
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}

	var out []failedEntity
	for _, e := range errs {
		var fe *core.FatalError
		if errors.As(e, &fe) && fe.Entity != "" {
			out = append(out, failedEntity{Entity: fe.Entity, Error: e.Error()})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}
