package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/rl1809/guild-bag/internal/core/domain"
	"github.com/rl1809/guild-bag/internal/errors"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS bag_items (
		name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL PRIMARY KEY,
		quantity BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bag_wishlist (
		position INT NOT NULL PRIMARY KEY,
		name VARCHAR(255) COLLATE utf8mb4_bin NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bag_currency (
		denomination VARCHAR(2) NOT NULL PRIMARY KEY,
		amount BIGINT NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS bag_items (
		name TEXT NOT NULL PRIMARY KEY,
		quantity INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bag_wishlist (
		position INTEGER NOT NULL PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bag_currency (
		denomination TEXT NOT NULL PRIMARY KEY,
		amount INTEGER NOT NULL
	)`,
}

// SQLAdapter stores the state in three tables. MySQL and SQLite share the
// queries and differ only in DDL.
type SQLAdapter struct {
	db     *sql.DB
	schema []string
}

func NewMySQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, schema: mysqlSchema}
}

func NewSQLiteAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, schema: sqliteSchema}
}

// OpenSQLite opens (creating if needed) a SQLite database file.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

// EnsureSchema creates the tables if they do not exist.
func (m *SQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range m.schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return errors.Storage("migrate", err)
		}
	}
	return nil
}

func (m *SQLAdapter) Load(ctx context.Context) (domain.State, error) {
	s := domain.NewState()

	rows, err := m.db.QueryContext(ctx, `SELECT name, quantity FROM bag_items`)
	if err != nil {
		return domain.State{}, errors.Storage("load", fmt.Errorf("query items: %w", err))
	}
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			rows.Close()
			return domain.State{}, errors.Storage("load", fmt.Errorf("scan item: %w", err))
		}
		if qty > 0 {
			s.Inventory[name] = qty
		}
	}
	if err := closeRows(rows); err != nil {
		return domain.State{}, errors.Storage("load", err)
	}

	rows, err = m.db.QueryContext(ctx, `SELECT name FROM bag_wishlist ORDER BY position`)
	if err != nil {
		return domain.State{}, errors.Storage("load", fmt.Errorf("query wishlist: %w", err))
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return domain.State{}, errors.Storage("load", fmt.Errorf("scan wish: %w", err))
		}
		s.Wishlist, _ = s.Wishlist.Add(name)
	}
	if err := closeRows(rows); err != nil {
		return domain.State{}, errors.Storage("load", err)
	}

	rows, err = m.db.QueryContext(ctx, `SELECT denomination, amount FROM bag_currency`)
	if err != nil {
		return domain.State{}, errors.Storage("load", fmt.Errorf("query currency: %w", err))
	}
	for rows.Next() {
		var code string
		var amount int
		if err := rows.Scan(&code, &amount); err != nil {
			rows.Close()
			return domain.State{}, errors.Storage("load", fmt.Errorf("scan currency: %w", err))
		}
		if d, err := domain.ParseDenomination(code); err == nil {
			s.Currency[d] = max(0, amount)
		}
	}
	if err := closeRows(rows); err != nil {
		return domain.State{}, errors.Storage("load", err)
	}

	return s, nil
}

// Save replaces every row in a single transaction.
func (m *SQLAdapter) Save(ctx context.Context, s domain.State) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Storage("save", fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	for _, table := range []string{"bag_items", "bag_wishlist", "bag_currency"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return errors.Storage("save", fmt.Errorf("clear %s: %w", table, err))
		}
	}

	for _, line := range s.Inventory.Lines() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bag_items (name, quantity) VALUES (?, ?)`,
			line.Name, line.Quantity,
		); err != nil {
			return errors.Storage("save", fmt.Errorf("insert item %q: %w", line.Name, err))
		}
	}

	for i, name := range s.Wishlist {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bag_wishlist (position, name) VALUES (?, ?)`,
			i, name,
		); err != nil {
			return errors.Storage("save", fmt.Errorf("insert wish %q: %w", name, err))
		}
	}

	for _, d := range domain.Denominations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bag_currency (denomination, amount) VALUES (?, ?)`,
			string(d), s.Currency[d],
		); err != nil {
			return errors.Storage("save", fmt.Errorf("insert currency %s: %w", d, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Storage("save", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
