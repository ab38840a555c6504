package transport

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/NetCenter-Dev/Fetcher/internal/ports"
	"github.com/google/uuid"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQL inserts each frame as a row. Rows are keyed by (sender_id, agent,
// ts, frame) so a retried insert after a lost acknowledgement is a no-op.
type SQL struct {
	db     *sql.DB
	table  string
	sender uuid.UUID
}

func NewSQL(db *sql.DB, table string, sender uuid.UUID) (*SQL, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("sql transport: invalid table name %q", table)
	}
	return &SQL{db: db, table: table, sender: sender}, nil
}

func (t *SQL) Name() string { return "postgres" }

func (t *SQL) Send(ctx context.Context, f ports.Frame) error {
	query := "INSERT INTO " + t.table +
		" (sender_id, agent, class, class_code, ts, frame) VALUES ($1,$2,$3,$4,$5,$6)" +
		" ON CONFLICT DO NOTHING"

	_, err := t.db.ExecContext(ctx, query,
		t.sender.String(),
		f.Agent,
		f.Class.String(),
		int(f.Class.WireCode()),
		time.UnixMilli(int64(f.TimestampMs)).UTC(),
		f.Data,
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

var _ ports.Transport = (*SQL)(nil)
