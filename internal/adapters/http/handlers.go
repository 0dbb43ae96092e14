package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
)

const (
	maxBodyBytes     = 1 << 20
	defaultPageLimit = 200
	maxPageLimit     = 10000
)

// openSessionRequest is the body of POST /sessions.
type openSessionRequest struct {
	Path string `json:"path"`
}

// queryRequest is the body of POST /sessions/{id}/query.
type queryRequest struct {
	Query           string `json:"query"`
	Dialect         string `json:"dialect,omitempty"`
	IncludeGeometry *bool  `json:"include_geometry,omitempty"`
}

// copyRequest is the body of POST /sessions/{id}/copy.
type copyRequest struct {
	Ranges []domain.CellRange `json:"ranges"`
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	details := s.health.GetHealthDetails(r.Context())

	status := http.StatusOK
	if !details.Healthy {
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]interface{}{
		"status":        boolToStatus(details.Healthy),
		"ready":         details.Ready,
		"sessions_open": details.SessionsOpen,
		"components":    details.Components,
	})
}

// handleLiveness returns liveness status.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsHealthy(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
}

// handleReadiness returns readiness status.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.health.IsReady(r.Context()) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	} else {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
	}
}

// handleFormats lists the export formats.
func (s *Server) handleFormats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats": s.workbench.Formats(),
	})
}

// handleSources lists the geodatabases available in remote storage.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	objects, err := s.workbench.Sources(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}

	response := make([]map[string]interface{}, len(objects))
	for i, obj := range objects {
		response[i] = map[string]interface{}{
			"key":           obj.Key,
			"size":          obj.Size,
			"last_modified": time.Unix(obj.LastModified, 0).UTC(),
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sources": response,
		"count":   len(objects),
	})
}

// handleListSessions returns all open sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.workbench.ListSessions(r.Context())

	response := make([]map[string]interface{}, len(sessions))
	for i, info := range sessions {
		response[i] = formatSession(info)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": response,
		"count":    len(sessions),
	})
}

// handleOpenSession connects a new session to a geodatabase.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Path == "" {
		s.writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	info, err := s.workbench.OpenSession(r.Context(), req.Path)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, formatSession(info))
}

// handleGetSession returns one session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	for _, info := range s.workbench.ListSessions(r.Context()) {
		if info.ID == id {
			s.writeJSON(w, http.StatusOK, formatSession(info))
			return
		}
	}
	s.handleError(w, domain.ErrSessionNotFound)
}

// handleCloseSession closes a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.workbench.CloseSession(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCatalog returns the tables and feature classes of the session's geodatabase.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	catalog, err := s.workbench.Catalog(r.Context(), id)
	if err != nil {
		s.handleError(w, err)
		return
	}

	items := make([]map[string]interface{}, len(catalog.Items))
	for i, item := range catalog.Items {
		columns := make([]map[string]string, len(item.Columns))
		for j, col := range item.Columns {
			columns[j] = map[string]string{"name": col.Name, "type": col.Type}
		}
		items[i] = map[string]interface{}{
			"name":            item.Name,
			"kind":            item.Kind,
			"geometry_column": item.GeometryColumn,
			"geometry_type":   item.GeometryType,
			"srid":            item.SRID,
			"columns":         columns,
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": id,
		"items":      items,
		"count":      len(items),
	})
}

// handleQuery executes a statement and returns its summary with the first chunk.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req queryRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.workbench.Run(r.Context(), id, input.RunRequest{
		Query:           req.Query,
		Dialect:         req.Dialect,
		IncludeGeometry: req.IncludeGeometry,
	})
	if err != nil {
		s.handleError(w, err)
		return
	}

	page, err := s.workbench.Page(r.Context(), id, 0, summary.TotalRows)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"summary": formatSummary(summary),
		"page":    formatPage(page),
	})
}

// handleRows returns materialized rows.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		s.writeError(w, http.StatusBadRequest, "invalid offset parameter")
		return
	}
	limit, err := intParam(q.Get("limit"), defaultPageLimit)
	if err != nil || limit < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}
	limit = min(limit, maxPageLimit)

	page, err := s.workbench.Page(r.Context(), mux.Vars(r)["id"], offset, limit)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatPage(page))
}

// handleFetch materializes the next chunk, or every remaining row with all=true.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	all, err := boolParam(r.URL.Query().Get("all"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid all parameter")
		return
	}

	var page input.ResultPage
	if all {
		page, err = s.workbench.LoadAll(r.Context(), id)
	} else {
		page, err = s.workbench.FetchMore(r.Context(), id)
	}
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, formatPage(page))
}

// handleCopy renders selected cells as clipboard text.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var req copyRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := s.workbench.Copy(r.Context(), mux.Vars(r)["id"], domain.Selection(req.Ranges))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleExport renders the full result as plain text.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	out, err := s.workbench.Export(r.Context(), vars["id"], vars["format"])
	if err != nil {
		s.handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="gdbee-%s.txt"`, vars["format"]))
	_, _ = w.Write([]byte(out))
}

// handleOpenAPI returns the OpenAPI specification.
func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	spec, err := getOpenAPIJSON()
	if err != nil {
		s.logger.Error("failed to get OpenAPI spec", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(spec)
}

func formatSession(info input.SessionInfo) map[string]interface{} {
	m := map[string]interface{}{
		"id":         info.ID,
		"path":       info.Path,
		"items":      info.Items,
		"dialect":    info.Dialect,
		"opened_at":  info.OpenedAt,
		"has_result": info.HasResult,
	}
	if info.LastQuery != "" {
		m["last_query"] = info.LastQuery
		m["last_run_at"] = info.LastRunTime
	}
	return m
}

func formatSummary(summary domain.RunSummary) map[string]interface{} {
	return map[string]interface{}{
		"query":        summary.Query,
		"dialect":      summary.Dialect,
		"elapsed_ms":   summary.Elapsed.Milliseconds(),
		"total_rows":   summary.TotalRows,
		"columns":      summary.Columns,
		"has_geometry": summary.HasGeometry,
		"status":       summary.Status(),
	}
}

func formatPage(page input.ResultPage) map[string]interface{} {
	rows := page.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return map[string]interface{}{
		"headers":        page.Headers,
		"offset":         page.Offset,
		"rows":           rows,
		"materialized":   page.Materialized,
		"total":          page.Total,
		"can_fetch_more": page.CanFetchMore,
	}
}

// handleError maps domain errors to HTTP status codes.
func (s *Server) handleError(w http.ResponseWriter, err error) {
	var queryErr *domain.QueryError
	if errors.As(err, &queryErr) {
		s.writeError(w, http.StatusBadRequest, queryErr.Error())
		return
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		s.writeError(w, http.StatusBadRequest, validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotConnected):
		s.writeError(w, http.StatusConflict, "Not connected to any geodatabase")
	case errors.Is(err, domain.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupported):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

// decodeBody decodes a JSON request body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func boolParam(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func boolToStatus(b bool) string {
	if b {
		return "ok"
	}
	return "unhealthy"
}
