// Package history keeps cycle reports across runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/autotrack/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const dbFile = "history.db"

// Store persists CycleReports
type Store struct {
	db *sqlx.DB
}

// Open opens (or creates) the history database in dataDir and migrates it
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", filepath.Join(dataDir, dbFile)+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db := sqlx.NewDb(sqlDB, "sqlite3")
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type cycleRow struct {
	ID                 string `db:"id"`
	StartedAt          int64  `db:"started_at"`
	FinishedAt         int64  `db:"finished_at"`
	Genre              string `db:"genre"`
	TotalGenerated     int    `db:"total_generated"`
	AccountsUsed       int    `db:"accounts_used"`
	ExpectedPerAccount int    `db:"expected_per_account"`
	FailureCount       int    `db:"failure_count"`
}

type resultRow struct {
	CycleID           string `db:"cycle_id"`
	Platform          string `db:"platform"`
	Account           string `db:"account"`
	UploadCount       int    `db:"upload_count"`
	MonetizationCount int    `db:"monetization_count"`
}

// Summary is a stored cycle. Failure details are not kept, only their count.
type Summary struct {
	domain.CycleReport
	FailureCount int `json:"failure_count"`
}

// SaveCycle stores a report, replacing any earlier copy with the same ID
func (s *Store) SaveCycle(ctx context.Context, report *domain.CycleReport) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM account_results WHERE cycle_id = ?`, report.ID); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO cycles
			(id, started_at, finished_at, genre, total_generated, accounts_used, expected_per_account, failure_count)
		VALUES
			(:id, :started_at, :finished_at, :genre, :total_generated, :accounts_used, :expected_per_account, :failure_count)
	`, cycleRow{
		ID:                 report.ID,
		StartedAt:          report.StartedAt.Unix(),
		FinishedAt:         report.FinishedAt.Unix(),
		Genre:              report.Genre,
		TotalGenerated:     report.TotalGenerated,
		AccountsUsed:       report.AccountsUsed,
		ExpectedPerAccount: report.ExpectedPerAccount,
		FailureCount:       len(report.Failures),
	})
	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}

	if len(report.Results) > 0 {
		rows := make([]resultRow, len(report.Results))
		for i, r := range report.Results {
			rows[i] = resultRow{
				CycleID:           report.ID,
				Platform:          string(r.Platform),
				Account:           r.Account,
				UploadCount:       r.UploadCount,
				MonetizationCount: r.MonetizationCount,
			}
		}
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO account_results (cycle_id, platform, account, upload_count, monetization_count)
			VALUES (:cycle_id, :platform, :account, :upload_count, :monetization_count)
		`, rows)
		if err != nil {
			return fmt.Errorf("insert results: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the last n cycles, newest first, with their account results
func (s *Store) Recent(ctx context.Context, n int) ([]Summary, error) {
	var cycles []cycleRow
	if err := s.db.SelectContext(ctx, &cycles,
		`SELECT * FROM cycles ORDER BY started_at DESC, id DESC LIMIT ?`, n); err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	if len(cycles) == 0 {
		return nil, nil
	}

	ids := make([]string, len(cycles))
	for i, c := range cycles {
		ids[i] = c.ID
	}
	query, args, err := sqlx.In(`
		SELECT * FROM account_results WHERE cycle_id IN (?) ORDER BY platform, account
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("build results query: %w", err)
	}
	var results []resultRow
	if err := s.db.SelectContext(ctx, &results, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}

	byCycle := make(map[string][]domain.AccountResult, len(cycles))
	for _, r := range results {
		byCycle[r.CycleID] = append(byCycle[r.CycleID], r.toDomain())
	}

	out := make([]Summary, len(cycles))
	for i, c := range cycles {
		out[i] = Summary{
			CycleReport: domain.CycleReport{
				ID:                 c.ID,
				StartedAt:          time.Unix(c.StartedAt, 0),
				FinishedAt:         time.Unix(c.FinishedAt, 0),
				Genre:              c.Genre,
				TotalGenerated:     c.TotalGenerated,
				AccountsUsed:       c.AccountsUsed,
				ExpectedPerAccount: c.ExpectedPerAccount,
				Results:            byCycle[c.ID],
			},
			FailureCount: c.FailureCount,
		}
	}
	return out, nil
}

// AccountTotals sums the counters of every account over cycles started at or after since
func (s *Store) AccountTotals(ctx context.Context, since time.Time) ([]domain.AccountResult, error) {
	var rows []resultRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.platform, r.account,
		       SUM(r.upload_count) AS upload_count,
		       SUM(r.monetization_count) AS monetization_count
		FROM account_results r
		JOIN cycles c ON c.id = r.cycle_id
		WHERE c.started_at >= ?
		GROUP BY r.platform, r.account
		ORDER BY r.platform, r.account
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("sum results: %w", err)
	}

	out := make([]domain.AccountResult, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (r resultRow) toDomain() domain.AccountResult {
	return domain.AccountResult{
		Platform:          domain.Platform(r.Platform),
		Account:           r.Account,
		UploadCount:       r.UploadCount,
		MonetizationCount: r.MonetizationCount,
	}
}
