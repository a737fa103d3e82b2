package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// checkConstraint is a named CHECK rule on one table.
type checkConstraint struct {
	Table string
	Name  string
	Expr  string
}

// addCheckConstraints installs the rules on PostgreSQL. SQLite cannot add a
// constraint to an existing table, so it keeps relying on request validation
// and the rules are skipped there.
func addCheckConstraints(ctx context.Context, db *bun.DB, checks ...checkConstraint) error {
	if db.Dialect().Name() != dialect.PG {
		return nil
	}
	for _, c := range checks {
		q := fmt.Sprintf("ALTER TABLE %q ADD CONSTRAINT %q CHECK (%s)", c.Table, c.Name, c.Expr)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("add constraint %s: %w", c.Name, err)
		}
	}
	return nil
}
