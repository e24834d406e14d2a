package provider

import (
	"context"
	"fmt"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
	"github.com/jackc/pgx/v5"
)

// SQLDescriptor lists the SqlRequest provider's parameters. Grounded on
// original_source's DatabaseRequest.py, narrowed to PostgreSQL (via
// jackc/pgx/v5) since that is the SQL driver the example pack actually
// carries; database_type is kept as a parameter for forward parity with
// the original's multi-engine design but only "postgresql" is accepted.
var SQLDescriptor = Descriptor{
	Mandatory: []string{"machine_addr", "database_name", "user_database", "password_database", "request"},
	Optional:  []string{"database_type"},
}

// SQLChecker runs a single query against a PostgreSQL database per
// check and reports whether it returned at least one row, mirroring
// original_source's OK/NOK sentinel result.
type SQLChecker struct {
	connString string
	query      string
}

func NewSQLChecker(cfg map[string]any) (Checker, error) {
	dbType, _ := cfg["database_type"].(string)
	if dbType != "" && dbType != "postgresql" {
		return nil, fmt.Errorf("database_type %q is not supported, only \"postgresql\" is", dbType)
	}

	host, _ := cfg["machine_addr"].(string)
	name, _ := cfg["database_name"].(string)
	user, _ := cfg["user_database"].(string)
	password, _ := cfg["password_database"].(string)
	query, _ := cfg["request"].(string)
	if host == "" || name == "" || user == "" || query == "" {
		return nil, fmt.Errorf("machine_addr, database_name, user_database and request must all be non-empty strings")
	}

	connString := fmt.Sprintf("postgres://%s:%s@%s/%s", user, password, host, name)
	return &SQLChecker{connString: connString, query: query}, nil
}

func (s *SQLChecker) Type() string { return "SqlRequest" }

func (s *SQLChecker) Process(ctx context.Context) (any, error) {
	conn, err := pgx.Connect(ctx, s.connString)
	if err != nil {
		return "NOK", nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "connecting to database")
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, s.query)
	if err != nil {
		return "NOK", nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "running query")
	}
	defer rows.Close()

	if rows.Next() {
		return "OK", nil
	}
	return "NOK", rows.Err()
}
