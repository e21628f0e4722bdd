package postgresql

import (
	"context"
	"fmt"
	"strings"
)

// Index describes a secondary index on a table.
type Index struct {
	// Name is the index name.
	Name string

	// Table is the table the index covers.
	Table string

	// Keys are the indexed columns or expressions.
	Keys []string

	// Method is the index method (btree when empty, or gin, gist, hash, ...).
	Method string

	// Unique makes the index enforce uniqueness.
	Unique bool
}

// Create creates the index. Requires a transaction context.
func (ix Index) Create(ctx context.Context, db *Database) error {
	if ix.Name == "" || ix.Table == "" || len(ix.Keys) == 0 {
		return fmt.Errorf("postgresql: index requires name, table and keys")
	}
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	fmt.Fprintf(&b, "INDEX %s ON %s", ix.Name, ix.Table)
	if ix.Method != "" {
		fmt.Fprintf(&b, " USING %s", ix.Method)
	}
	fmt.Fprintf(&b, " (%s)", strings.Join(ix.Keys, ", "))
	_, err := db.Exec(ctx, b.String())
	return err
}

// Drop drops the index. Requires a transaction context.
func (ix Index) Drop(ctx context.Context, db *Database) error {
	_, err := db.Exec(ctx, fmt.Sprintf("DROP INDEX %s", ix.Name))
	return err
}
