package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/goodtune/focustime/internal/activity"
	"github.com/goodtune/focustime/internal/codec"
	"github.com/goodtune/focustime/internal/format"
	"github.com/goodtune/focustime/internal/recorder"
	"github.com/goodtune/focustime/internal/report"
	"github.com/gorilla/mux"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// EntryResponse is one row of a breakdown.
type EntryResponse struct {
	report.Entry
	Duration string `json:"duration"`
	Percent  string `json:"percent"`
}

// BreakdownResponse is the body of the breakdown endpoints.
type BreakdownResponse struct {
	Range       string          `json:"range"`
	Application string          `json:"application,omitempty"`
	Revision    uint64          `json:"revision"`
	Total       int64           `json:"total"`
	Duration    string          `json:"duration"`
	Entries     []EntryResponse `json:"entries"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tl, rev := s.tracker.Snapshot()
	resp := map[string]interface{}{
		"status":       "ok",
		"revision":     rev,
		"applications": len(tl),
		"records":      tl.RecordCount(),
	}
	if open := s.tracker.State().Open; open != nil {
		resp["focused"] = map[string]string{
			"application": open.Application,
			"title":       open.Title,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTiming(w http.ResponseWriter, r *http.Request) {
	tl, _ := s.tracker.Snapshot()
	payload, err := codec.Encode(tl)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode timeline")
		writeError(w, http.StatusInternalServerError, "Failed to encode timeline")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	rng, err := report.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tl, rev := s.tracker.Snapshot()
	key := s.key(rev, "", false, rng)
	b, hit := s.cache.getOrCompute(key, func() report.Breakdown {
		return s.engine.Applications(tl, rng)
	})
	s.logger.Debug().Bool("cache_hit", hit).Str("range", rng.String()).Msg("Application breakdown")

	writeJSON(w, http.StatusOK, breakdownResponse(b, "", rev))
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	application := mux.Vars(r)["application"]
	rng, err := report.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tl, rev := s.tracker.Snapshot()
	titles, ok := tl[application]
	if !ok {
		writeError(w, http.StatusNotFound, "Application not found")
		return
	}

	key := s.key(rev, application, true, rng)
	b, hit := s.cache.getOrCompute(key, func() report.Breakdown {
		return s.engine.Titles(titles, rng)
	})
	s.logger.Debug().Bool("cache_hit", hit).Str("application", application).
		Str("range", rng.String()).Msg("Title breakdown")

	writeJSON(w, http.StatusOK, breakdownResponse(b, application, rev))
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	err := s.clearer.Clear(r.Context())
	switch {
	case errors.Is(err, recorder.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "Recorder is not running")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to clear timeline")
		writeError(w, http.StatusInternalServerError, "Failed to clear timeline")
		return
	}

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Timeline cleared via API")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "cleared",
		"revision": s.tracker.Revision(),
	})
}

func (s *Server) key(rev uint64, application string, scoped bool, rng report.Range) cacheKey {
	return cacheKey{
		revision:    rev,
		today:       activity.DateKeyOf(s.tracker.Clock().Now(), s.tracker.Location()),
		application: application,
		scoped:      scoped,
		rng:         rng,
	}
}

func breakdownResponse(b report.Breakdown, application string, rev uint64) BreakdownResponse {
	resp := BreakdownResponse{
		Range:       b.Range.String(),
		Application: application,
		Revision:    rev,
		Total:       b.Total,
		Duration:    format.Short(b.Total),
		Entries:     make([]EntryResponse, 0, len(b.Entries)),
	}
	for _, e := range b.Entries {
		resp.Entries = append(resp.Entries, EntryResponse{
			Entry:    e,
			Duration: format.Short(e.Millis),
			Percent:  format.Percent(e.Millis, b.Total),
		})
	}
	return resp
}

func isLocal(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// unix socket peers have no host:port
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}
