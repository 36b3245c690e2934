// Package sqlstore implements the read model on database/sql, backed by
// PostgreSQL (pgx) or SQLite (modernc, pure Go).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/bobmcallan/navboard/internal/common"
	"github.com/bobmcallan/navboard/internal/interfaces"
	"github.com/bobmcallan/navboard/internal/models"
	"github.com/bobmcallan/navboard/internal/storage/rowparse"
)

// Dialect selects placeholder syntax and driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driver() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) serialKey() string {
	if d == DialectPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// schema is the minimal read model. Values are stored as text so that both
// dialects round-trip exact decimals and malformed imports stay visible.
// valuations.seq records insertion order, which decides duplicate dates.
func schema(d Dialect) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS entities (
		entity_id    TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		scheme_id    TEXT NOT NULL DEFAULT ''
	)`,
		`CREATE TABLE IF NOT EXISTS valuations (
		seq       ` + d.serialKey() + `,
		entity_id TEXT NOT NULL,
		nav_date  TEXT NOT NULL,
		nav       TEXT,
		benchmark TEXT
	)`,
		`CREATE TABLE IF NOT EXISTS cash_flows (
		id        TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		scheme_id TEXT NOT NULL DEFAULT '',
		flow_date TEXT NOT NULL,
		amount    TEXT NOT NULL
	)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_user ON entities (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_valuations_entity ON valuations (entity_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cash_flows_entity ON cash_flows (entity_id)`,
	}
}

// Store implements interfaces.SeriesStore over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *common.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, logger *common.Logger, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}
	return NewStore(db, dialect, logger), nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB, dialect Dialect, logger *common.Logger) *Store {
	return &Store{db: db, dialect: dialect, logger: logger}
}

// DB exposes the underlying pool (used by tests and fixtures).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the read-model tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Rebind rewrites ? placeholders as $n for PostgreSQL.
func (s *Store) Rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) GetValuationSeries(ctx context.Context, entityID string) (*models.EntitySeries, error) {
	series := &models.EntitySeries{EntityID: entityID}
	row := s.db.QueryRowContext(ctx, s.Rebind(`SELECT display_name, scheme_id FROM entities WHERE entity_id = ?`), entityID)
	if err := row.Scan(&series.DisplayName, &series.SchemeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", entityID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read entity %s: %w", entityID, err)
	}

	rows, err := s.db.QueryContext(ctx, s.Rebind(`SELECT nav_date, nav, benchmark FROM valuations WHERE entity_id = ? ORDER BY seq`), entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query valuations for %s: %w", entityID, err)
	}
	defer rows.Close()

	malformed := 0
	for rows.Next() {
		var rawDate string
		var nav, bench sql.NullString
		if err := rows.Scan(&rawDate, &nav, &bench); err != nil {
			return nil, fmt.Errorf("failed to scan valuation for %s: %w", entityID, err)
		}
		date, err := rowparse.Date(rawDate)
		if err != nil {
			s.logger.Warn().Str("entity", entityID).Str("date", rawDate).Msg("Skipping valuation row with invalid date")
			continue
		}

		value, err := rowparse.Value(nullable(nav))
		if err != nil {
			malformed++
		}
		series.Points = append(series.Points, models.ValuationPoint{Date: date, Value: value})

		if bench.Valid {
			b, err := rowparse.Value(bench.String)
			if err != nil {
				malformed++
			}
			series.BenchmarkPoints = append(series.BenchmarkPoints, models.ValuationPoint{Date: date, Value: b})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read valuations for %s: %w", entityID, err)
	}

	if malformed > 0 {
		s.logger.Warn().Str("entity", entityID).Int("malformed", malformed).Msg("Valuation rows with unparseable values")
	}
	return series, nil
}

func (s *Store) GetCashFlows(ctx context.Context, entityIDs []string) ([]models.CashFlowRecord, error) {
	if len(entityIDs) == 0 {
		return []models.CashFlowRecord{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(entityIDs)), ",")
	query := s.Rebind(`SELECT id, entity_id, scheme_id, flow_date, amount FROM cash_flows WHERE entity_id IN (` + placeholders + `) ORDER BY flow_date`)
	args := make([]any, len(entityIDs))
	for i, id := range entityIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flows: %w", err)
	}
	defer rows.Close()

	flows := make([]models.CashFlowRecord, 0)
	for rows.Next() {
		var rec models.CashFlowRecord
		var rawDate, rawAmount string
		if err := rows.Scan(&rec.ID, &rec.EntityID, &rec.SchemeID, &rawDate, &rawAmount); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow: %w", err)
		}
		if rec.Date, err = rowparse.Date(rawDate); err != nil {
			s.logger.Warn().Str("id", rec.ID).Str("date", rawDate).Msg("Skipping cash flow with invalid date")
			continue
		}
		if rec.Amount, err = rowparse.Decimal(rawAmount); err != nil {
			s.logger.Warn().Str("id", rec.ID).Str("amount", rawAmount).Msg("Skipping cash flow with invalid amount")
			continue
		}
		flows = append(flows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read cash flows: %w", err)
	}
	return flows, nil
}

func (s *Store) GetEntityMetadata(ctx context.Context, userID string) (*models.EntityMetadata, error) {
	rows, err := s.db.QueryContext(ctx, s.Rebind(`SELECT entity_id, display_name, scheme_id FROM entities WHERE user_id = ? ORDER BY entity_id`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities for user %s: %w", userID, err)
	}
	defer rows.Close()

	meta := &models.EntityMetadata{UserID: userID, Entities: []models.Entity{}}
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.EntityID, &e.DisplayName, &e.SchemeID); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		meta.Entities = append(meta.Entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entities: %w", err)
	}
	return meta, nil
}

// --- Writers (fixtures and imports) ---

// SaveEntity inserts or replaces an entity owned by userID.
func (s *Store) SaveEntity(ctx context.Context, userID string, e models.Entity) error {
	if _, err := s.db.ExecContext(ctx, s.Rebind(`DELETE FROM entities WHERE entity_id = ?`), e.EntityID); err != nil {
		return fmt.Errorf("failed to replace entity %s: %w", e.EntityID, err)
	}
	_, err := s.db.ExecContext(ctx, s.Rebind(`INSERT INTO entities (entity_id, user_id, display_name, scheme_id) VALUES (?, ?, ?, ?)`),
		e.EntityID, userID, e.DisplayName, e.SchemeID)
	if err != nil {
		return fmt.Errorf("failed to save entity %s: %w", e.EntityID, err)
	}
	return nil
}

// SaveValuations replaces the valuation rows of one entity. benchmark is
// keyed by date; dates absent from it store no benchmark value.
func (s *Store) SaveValuations(ctx context.Context, entityID string, points []models.ValuationPoint, benchmark map[string]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.Rebind(`DELETE FROM valuations WHERE entity_id = ?`), entityID); err != nil {
		return fmt.Errorf("failed to clear valuations for %s: %w", entityID, err)
	}

	insert := s.Rebind(`INSERT INTO valuations (entity_id, nav_date, nav, benchmark) VALUES (?, ?, ?, ?)`)
	for _, p := range points {
		date := p.Date.UTC().Format(models.DateLayout)
		var bench any
		if b, ok := benchmark[date]; ok {
			bench = strconv.FormatFloat(b, 'f', -1, 64)
		}
		if _, err := tx.ExecContext(ctx, insert, entityID, date, strconv.FormatFloat(p.Value, 'f', -1, 64), bench); err != nil {
			return fmt.Errorf("failed to insert valuation for %s: %w", entityID, err)
		}
	}
	return tx.Commit()
}

// SaveCashFlow inserts or replaces one cash-flow record keyed by its id.
func (s *Store) SaveCashFlow(ctx context.Context, rec models.CashFlowRecord) error {
	if _, err := s.db.ExecContext(ctx, s.Rebind(`DELETE FROM cash_flows WHERE id = ?`), rec.ID); err != nil {
		return fmt.Errorf("failed to replace cash flow %s: %w", rec.ID, err)
	}
	_, err := s.db.ExecContext(ctx, s.Rebind(`INSERT INTO cash_flows (id, entity_id, scheme_id, flow_date, amount) VALUES (?, ?, ?, ?, ?)`),
		rec.ID, rec.EntityID, rec.SchemeID, rec.Date.UTC().Format(models.DateLayout), rec.Amount.String())
	if err != nil {
		return fmt.Errorf("failed to save cash flow %s: %w", rec.ID, err)
	}
	return nil
}

func nullable(ns sql.NullString) any {
	if !ns.Valid {
		return nil
	}
	return ns.String
}

// Compile-time check
var _ interfaces.SeriesStore = (*Store)(nil)
