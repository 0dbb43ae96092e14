// Package input defines the primary/driving ports of the application.
package input

import (
	"context"
	"time"

	"github.com/jobrunner/gdbee/internal/domain"
)

// Workbench defines the primary port for query sessions.
type Workbench interface {
	// OpenSession connects a new session to the geodatabase at path.
	OpenSession(ctx context.Context, path string) (SessionInfo, error)

	// CloseSession releases a session and its result set.
	CloseSession(ctx context.Context, id string) error

	// ListSessions returns all open sessions.
	ListSessions(ctx context.Context) []SessionInfo

	// Catalog returns the catalog of the session's geodatabase.
	Catalog(ctx context.Context, id string) (domain.Catalog, error)

	// Run executes a statement in the session, replacing its previous result.
	Run(ctx context.Context, id string, req RunRequest) (domain.RunSummary, error)

	// Page returns materialized rows of the current result.
	Page(ctx context.Context, id string, offset, limit int) (ResultPage, error)

	// FetchMore materializes the next chunk of the current result.
	FetchMore(ctx context.Context, id string) (ResultPage, error)

	// LoadAll materializes the whole current result.
	LoadAll(ctx context.Context, id string) (ResultPage, error)

	// Copy renders the selected cells as clipboard text.
	Copy(ctx context.Context, id string, sel domain.Selection) (string, error)

	// Export renders the full current result in the given format.
	Export(ctx context.Context, id string, format string) (string, error)
}

// RunRequest holds the parameters of a statement execution.
type RunRequest struct {
	Query           string // Statement text, comments allowed
	Dialect         string // Optional dialect override
	IncludeGeometry *bool  // Optional include-geometry override
}

// SessionInfo describes an open session.
type SessionInfo struct {
	ID          string    // Session identifier
	Path        string    // Connected geodatabase file
	Items       int       // Catalog item count
	Dialect     string    // Current dialect
	OpenedAt    time.Time // Creation timestamp
	HasResult   bool      // A result set is open
	LastQuery   string    // Last executed statement
	LastRunTime time.Time // Time of the last execution
}

// ResultPage is a window over the materialized rows of a result set.
type ResultPage struct {
	Headers      []string   // Visible column names
	Offset       int        // Index of the first row in Rows
	Rows         [][]string // Display values
	Materialized int        // Rows materialized so far
	Total        int        // Total rows reported by the cursor
	CanFetchMore bool       // More rows can be materialized
}

// HealthChecker defines the primary port for health checks.
type HealthChecker interface {
	// IsHealthy returns true if the service is healthy.
	IsHealthy(ctx context.Context) bool

	// IsReady returns true if the service is ready to accept requests.
	IsReady(ctx context.Context) bool

	// GetHealthDetails returns detailed health information.
	GetHealthDetails(ctx context.Context) HealthDetails
}

// HealthDetails contains detailed health information.
type HealthDetails struct {
	Healthy      bool              // Overall health status
	Ready        bool              // Ready to accept requests
	SessionsOpen int               // Number of open sessions
	Components   map[string]string // Component statuses
}
