package draft

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// use the sqlite db driver.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed base.sql
var baseSQL string

// Database is a Store backed by a sqlite file. Each Database holds one slot.
type Database struct {
	conn *sql.DB
	slot string
}

// NewDatabase connects to the sqlite database at the given filename and creates the
// draft table if not present. The parent directory is created when missing.
func NewDatabase(ctx context.Context, filename string) (*Database, error) {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating draft directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("error connecting to sqlite db at %s: %w", filename, err)
	}

	database := Database{
		conn: conn,
		slot: Slot,
	}

	err = database.initialize(ctx)
	if err != nil {
		conn.Close()

		return nil, err
	}

	log.Debug().Str("file", filename).Msg("opened draft database")

	return &database, nil
}

func (d *Database) initialize(ctx context.Context) error {
	// run idempotent setup sql to create empty tables if they don't exist
	if _, err := d.conn.ExecContext(ctx, baseSQL); err != nil {
		return fmt.Errorf("error running base sql: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	if err := d.conn.Close(); err != nil {
		return fmt.Errorf("error closing draft db: %w", err)
	}

	return nil
}

// Load returns the saved draft or ErrNoDraft.
func (d *Database) Load(ctx context.Context) ([]byte, error) {
	var payload []byte

	err := d.conn.QueryRowContext(ctx, `SELECT payload FROM draft WHERE slot = $1`, d.slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoDraft
	}

	if err != nil {
		return nil, fmt.Errorf("error loading draft '%s': %w", d.slot, err)
	}

	return payload, nil
}

// Save replaces the draft.
func (d *Database) Save(ctx context.Context, payload []byte) error {
	_, err := d.conn.ExecContext(ctx,
		`INSERT INTO draft (slot, payload, updated_datetime) VALUES ($1, $2, $3)
		     ON CONFLICT (slot) DO UPDATE SET payload = excluded.payload, updated_datetime = excluded.updated_datetime`,
		d.slot, payload, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("error saving draft '%s': %w", d.slot, err)
	}

	return nil
}

// Remove deletes the draft. Removing a missing draft is not an error.
func (d *Database) Remove(ctx context.Context) error {
	if _, err := d.conn.ExecContext(ctx, `DELETE FROM draft WHERE slot = $1`, d.slot); err != nil {
		return fmt.Errorf("error removing draft '%s': %w", d.slot, err)
	}

	return nil
}
