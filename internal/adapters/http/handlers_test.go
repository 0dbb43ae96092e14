package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
	"github.com/jobrunner/gdbee/internal/ports/input"
	"github.com/jobrunner/gdbee/internal/ports/output"
)

func serve(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		healthy    bool
		ready      bool
		wantStatus int
		wantBody   string
	}{
		{"health ok", "/health", true, true, http.StatusOK, "ok"},
		{"health unhealthy", "/health", false, false, http.StatusServiceUnavailable, "unhealthy"},
		{"live ok", "/health/live", true, false, http.StatusOK, "ok"},
		{"live unhealthy", "/health/live", false, false, http.StatusServiceUnavailable, "unhealthy"},
		{"ready ok", "/health/ready", true, true, http.StatusOK, "ok"},
		{"not ready", "/health/ready", true, false, http.StatusServiceUnavailable, "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: tt.healthy, ready: tt.ready})

			rr := serve(srv, http.MethodGet, tt.path, "")

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			resp := decode(t, rr)
			if resp["status"] != tt.wantBody {
				t.Errorf("status = %v, want %q", resp["status"], tt.wantBody)
			}
		})
	}
}

func TestHandleHealthDetails(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true, ready: true})

	resp := decode(t, serve(srv, http.MethodGet, "/health", ""))

	if resp["sessions_open"] != float64(1) {
		t.Errorf("sessions_open = %v, want 1", resp["sessions_open"])
	}
	components, ok := resp["components"].(map[string]interface{})
	if !ok || components["sqlite"] != "ok" {
		t.Errorf("components = %v, want sqlite ok", resp["components"])
	}
}

func TestHandleFormats(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodGet, "/api/v1/formats", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	formats, _ := decode(t, rr)["formats"].([]interface{})
	if len(formats) != 4 || formats[0] != "wkt" {
		t.Errorf("formats = %v, want [wkt arcpy dataframe markdown]", formats)
	}
}

func TestHandleOpenSession(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"opened", `{"path":"roads.gpkg"}`, nil, http.StatusCreated},
		{"missing path", `{}`, nil, http.StatusBadRequest},
		{"malformed body", `{"path":`, nil, http.StatusBadRequest},
		{"unknown field", `{"file":"roads.gpkg"}`, nil, http.StatusBadRequest},
		{"missing file", `{"path":"nope.gpkg"}`, fmt.Errorf("nope.gpkg: %w", domain.ErrSourceNotFound), http.StatusNotFound},
		{"not a geodatabase", `{"path":"readme.txt"}`, domain.ErrInvalidGeodatabase, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := &mockWorkbench{err: tt.err}
			srv := newTestServer(wb, &mockHealth{healthy: true})

			rr := serve(srv, http.MethodPost, "/api/v1/sessions", tt.body)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if tt.wantStatus == http.StatusCreated {
				resp := decode(t, rr)
				if resp["id"] != "3f1c" || resp["path"] != "roads.gpkg" {
					t.Errorf("response = %v, want id 3f1c and path roads.gpkg", resp)
				}
				if _, ok := resp["last_query"]; ok {
					t.Error("last_query present for a session without a result")
				}
			}
		})
	}
}

func TestHandleListAndGetSession(t *testing.T) {
	wb := &mockWorkbench{sessions: []input.SessionInfo{
		{ID: "a", Path: "roads.gpkg"},
		{ID: "b", Path: "rivers.gpkg", HasResult: true, LastQuery: "SELECT 1", LastRunTime: time.Now()},
	}}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	resp := decode(t, serve(srv, http.MethodGet, "/api/v1/sessions", ""))
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}

	rr := serve(srv, http.MethodGet, "/api/v1/sessions/b", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	got := decode(t, rr)
	if got["last_query"] != "SELECT 1" {
		t.Errorf("last_query = %v, want %q", got["last_query"], "SELECT 1")
	}

	rr = serve(srv, http.MethodGet, "/api/v1/sessions/c", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleCloseSession(t *testing.T) {
	wb := &mockWorkbench{}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodDelete, "/api/v1/sessions/a", "")

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
	if len(wb.closed) != 1 || wb.closed[0] != "a" {
		t.Errorf("closed = %v, want [a]", wb.closed)
	}

	wb.err = domain.ErrSessionNotFound
	rr = serve(srv, http.MethodDelete, "/api/v1/sessions/a", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestHandleCatalog(t *testing.T) {
	wb := &mockWorkbench{catalog: domain.Catalog{Items: []domain.Item{
		{
			Name:           "roads",
			Kind:           domain.ItemFeatures,
			GeometryColumn: "geom",
			GeometryType:   "LINESTRING",
			SRID:           4326,
			Columns:        []domain.Column{{Name: "fid", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}},
		},
		{Name: "owners", Kind: domain.ItemAttributes},
	}}}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodGet, "/api/v1/sessions/a/catalog", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decode(t, rr)
	if resp["count"] != float64(2) {
		t.Errorf("count = %v, want 2", resp["count"])
	}
	items := resp["items"].([]interface{})
	roads := items[0].(map[string]interface{})
	if roads["kind"] != "features" || roads["srid"] != float64(4326) {
		t.Errorf("roads = %v, want features with srid 4326", roads)
	}
	if cols := roads["columns"].([]interface{}); len(cols) != 2 {
		t.Errorf("len(columns) = %d, want 2", len(cols))
	}
}

func TestHandleQuery(t *testing.T) {
	wb := &mockWorkbench{
		summary: domain.RunSummary{
			Query:       "SELECT * FROM roads",
			Dialect:     domain.DialectSQLite,
			Elapsed:     300 * time.Millisecond,
			TotalRows:   1200,
			Columns:     3,
			HasGeometry: true,
		},
		page: input.ResultPage{
			Headers:      []string{"fid", "name", "geom"},
			Rows:         [][]string{{"1", "A1", "LINESTRING (0 0, 1 1)"}},
			Materialized: 200,
			Total:        1200,
			CanFetchMore: true,
		},
	}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodPost, "/api/v1/sessions/a/query",
		`{"query":"SELECT * FROM roads","dialect":"OGRSQL","include_geometry":false}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(wb.runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(wb.runs))
	}
	run := wb.runs[0]
	if run.Dialect != "OGRSQL" || run.IncludeGeometry == nil || *run.IncludeGeometry {
		t.Errorf("run = %+v, want OGRSQL without geometry", run)
	}
	if wb.pageArgs[0] != [2]int{0, 1200} {
		t.Errorf("Page(offset, limit) = %v, want [0 1200]", wb.pageArgs[0])
	}

	resp := decode(t, rr)
	summary := resp["summary"].(map[string]interface{})
	if summary["status"] != "Executed in 0.3 secs | 1200 rows" {
		t.Errorf("status = %v, want %q", summary["status"], "Executed in 0.3 secs | 1200 rows")
	}
	if summary["elapsed_ms"] != float64(300) {
		t.Errorf("elapsed_ms = %v, want 300", summary["elapsed_ms"])
	}
	page := resp["page"].(map[string]interface{})
	if page["can_fetch_more"] != true {
		t.Errorf("can_fetch_more = %v, want true", page["can_fetch_more"])
	}
}

func TestHandleQueryOmittedGeometryFlag(t *testing.T) {
	wb := &mockWorkbench{}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	serve(srv, http.MethodPost, "/api/v1/sessions/a/query", `{"query":"SELECT 1"}`)

	if len(wb.runs) != 1 || wb.runs[0].IncludeGeometry != nil {
		t.Errorf("runs = %+v, want one run with nil IncludeGeometry", wb.runs)
	}
}

func TestHandleQueryErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			"engine error verbatim",
			&domain.QueryError{Query: "SELEC 1", Err: errors.New(`near "SELEC": syntax error`)},
			http.StatusBadRequest,
			`near "SELEC": syntax error`,
		},
		{"empty query", domain.ErrEmptyQuery, http.StatusBadRequest, ""},
		{"unsupported dialect", domain.ErrUnsupportedDialect, http.StatusBadRequest, ""},
		{"unknown session", domain.ErrSessionNotFound, http.StatusNotFound, ""},
		{"not connected", domain.ErrNotConnected, http.StatusConflict, "Not connected to any geodatabase"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "Request timed out"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&mockWorkbench{err: tt.err}, &mockHealth{healthy: true})

			rr := serve(srv, http.MethodPost, "/api/v1/sessions/a/query", `{"query":"SELEC 1"}`)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantMessage != "" {
				if got := decode(t, rr)["message"]; got != tt.wantMessage {
					t.Errorf("message = %v, want %q", got, tt.wantMessage)
				}
			}
		})
	}
}

func TestHandleRows(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantArgs   [2]int
	}{
		{"defaults", "", http.StatusOK, [2]int{0, 200}},
		{"window", "?offset=200&limit=50", http.StatusOK, [2]int{200, 50}},
		{"limit capped", "?offset=1&limit=9223372036854775807", http.StatusOK, [2]int{1, maxPageLimit}},
		{"negative offset", "?offset=-1", http.StatusBadRequest, [2]int{}},
		{"zero limit", "?limit=0", http.StatusBadRequest, [2]int{}},
		{"bad limit", "?limit=ten", http.StatusBadRequest, [2]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := &mockWorkbench{page: input.ResultPage{Headers: []string{"fid"}}}
			srv := newTestServer(wb, &mockHealth{healthy: true})

			rr := serve(srv, http.MethodGet, "/api/v1/sessions/a/rows"+tt.query, "")

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if wb.pageArgs[0] != tt.wantArgs {
				t.Errorf("Page(offset, limit) = %v, want %v", wb.pageArgs[0], tt.wantArgs)
			}
			rows, ok := decode(t, rr)["rows"].([]interface{})
			if !ok || len(rows) != 0 {
				t.Errorf("rows = %v, want empty array", rows)
			}
		})
	}
}

func TestHandleFetch(t *testing.T) {
	wb := &mockWorkbench{page: input.ResultPage{Materialized: 400, Total: 1200, CanFetchMore: true}}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodPost, "/api/v1/sessions/a/fetch", "")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	serve(srv, http.MethodPost, "/api/v1/sessions/a/fetch?all=true", "")

	if wb.fetchMore != 1 || wb.fetchAll != 1 {
		t.Errorf("fetchMore = %d, fetchAll = %d, want 1 and 1", wb.fetchMore, wb.fetchAll)
	}

	rr = serve(srv, http.MethodPost, "/api/v1/sessions/a/fetch?all=maybe", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleCopy(t *testing.T) {
	wb := &mockWorkbench{copyText: "name\tlength\nA1\t12.5\n"}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodPost, "/api/v1/sessions/a/copy",
		`{"ranges":[{"top_row":0,"bottom_row":0,"left_column":1,"right_column":2}]}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := decode(t, rr)["text"]; got != wb.copyText {
		t.Errorf("text = %q, want %q", got, wb.copyText)
	}
	want := domain.CellRange{TopRow: 0, BottomRow: 0, LeftColumn: 1, RightColumn: 2}
	if len(wb.selections) != 1 || len(wb.selections[0]) != 1 || wb.selections[0][0] != want {
		t.Errorf("selections = %v, want [[%v]]", wb.selections, want)
	}

	wb.err = domain.ErrEmptySelection
	rr = serve(srv, http.MethodPost, "/api/v1/sessions/a/copy", `{"ranges":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleExport(t *testing.T) {
	wb := &mockWorkbench{exportOut: "POINT (1 2)\nPOINT (3 4)"}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodGet, "/api/v1/sessions/a/export/wkt", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if rr.Body.String() != wb.exportOut {
		t.Errorf("body = %q, want %q", rr.Body.String(), wb.exportOut)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `inline; filename="gdbee-wkt.txt"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if len(wb.exports) != 1 || wb.exports[0] != "wkt" {
		t.Errorf("exports = %v, want [wkt]", wb.exports)
	}

	wb.err = fmt.Errorf("%q: %w", "geojson", domain.ErrUnknownFormat)
	rr = serve(srv, http.MethodGet, "/api/v1/sessions/a/export/geojson", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestHandleOpenAPI(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodGet, "/openapi.json", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decode(t, rr)
	if resp["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want %q", resp["openapi"], "3.0.3")
	}
	paths := resp["paths"].(map[string]interface{})
	if _, ok := paths["/api/v1/sessions/{id}/query"]; !ok {
		t.Error("paths missing /api/v1/sessions/{id}/query")
	}
}

func TestHandleHTMLPages(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true})

	for _, path := range []string{"/", "/docs"} {
		rr := serve(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rr.Code, http.StatusOK)
		}
		if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
			t.Errorf("GET %s Content-Type = %q, want text/html", path, got)
		}
	}
}

func TestFrontendDisabled(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true})
	srv.config.FrontendEnabled = false
	srv.router = srv.setupRoutes()

	rr := serve(srv, http.MethodGet, "/", "")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv := newTestServer(&mockWorkbench{}, &mockHealth{healthy: true})
	handler := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestBoolToStatus(t *testing.T) {
	if got := boolToStatus(true); got != "ok" {
		t.Errorf("boolToStatus(true) = %q, want %q", got, "ok")
	}
	if got := boolToStatus(false); got != "unhealthy" {
		t.Errorf("boolToStatus(false) = %q, want %q", got, "unhealthy")
	}
}

func TestHandleSources(t *testing.T) {
	wb := &mockWorkbench{sources: []output.StorageObject{
		{Key: "regions/roads.gpkg", Size: 2048, LastModified: 1767225600},
	}}
	srv := newTestServer(wb, &mockHealth{healthy: true})

	rr := serve(srv, http.MethodGet, "/api/v1/sources", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decode(t, rr)
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
	src := resp["sources"].([]interface{})[0].(map[string]interface{})
	if src["key"] != "regions/roads.gpkg" || src["last_modified"] != "2026-01-01T00:00:00Z" {
		t.Errorf("source = %v, want regions/roads.gpkg modified 2026-01-01", src)
	}
}
