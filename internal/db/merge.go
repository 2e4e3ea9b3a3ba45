package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Merge folds a batch of rows into Table. Rows are COPYed into a staging
// table that lives for one transaction, then inserted with ON CONFLICT (Key)
// so rows that already exist are updated in place.
type Merge struct {
	Table   string
	Columns []string
	// Key names the columns of the unique constraint rows are matched on.
	Key []string
	// Update lists the columns overwritten on a match. Empty leaves
	// matched rows untouched.
	Update []string
}

// Apply runs the merge in a single transaction and returns the rows written.
func (m Merge) Apply(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := m.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: begin", m.Table)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stage := m.stagingTable()
	if _, err := tx.Exec(ctx, m.stageSQL(stage)); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: create %s", m.Table, stage)
	}
	if _, err := CopyFrom(ctx, tx, stage, m.Columns, rows); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s", m.Table)
	}

	tag, err := tx.Exec(ctx, m.insertSQL(stage))
	if err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: insert", m.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrapf(err, "db: merge %s: commit", m.Table)
	}
	return tag.RowsAffected(), nil
}

func (m Merge) validate() error {
	switch {
	case m.Table == "":
		return eris.New("db: merge: table is required")
	case len(m.Columns) == 0:
		return eris.Errorf("db: merge %s: no columns", m.Table)
	case len(m.Key) == 0:
		return eris.Errorf("db: merge %s: no key columns", m.Table)
	}
	return nil
}

// stagingTable is unqualified; temp tables always live in pg_temp.
func (m Merge) stagingTable() string {
	name := m.Table
	if _, after, ok := strings.Cut(name, "."); ok {
		name = after
	}
	return name + "_incoming"
}

func (m Merge) stageSQL(stage string) string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", ident(stage), ident(m.Table))
}

func (m Merge) insertSQL(stage string) string {
	cols := identList(m.Columns)

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) ",
		ident(m.Table), cols, cols, ident(stage), identList(m.Key))
	if len(m.Update) == 0 {
		b.WriteString("DO NOTHING")
		return b.String()
	}
	b.WriteString("DO UPDATE SET ")
	for i, col := range m.Update {
		if i > 0 {
			b.WriteString(", ")
		}
		q := ident(col)
		b.WriteString(q + " = EXCLUDED." + q)
	}
	return b.String()
}

// ident quotes a name, splitting an optional schema qualifier.
func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
