package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/models"
	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// PostgresStore persists analyses to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// connections, runs schema migrations, and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 2 * time.Second, Logger: logger}
	if err := ping.Do(ctx, "postgres ping", func(ctx context.Context) error {
		return db.PingContext(ctx)
	}); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	ps := NewPostgresStoreFromDB(db, logger)
	if err := ps.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "postgres: migrate")
	}
	return ps, nil
}

// NewPostgresStoreFromDB wraps an already open handle without migrating.
func NewPostgresStoreFromDB(db *sql.DB, logger *utils.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const schema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id           SERIAL PRIMARY KEY,
		user_id      BIGINT       NOT NULL DEFAULT 0,
		filename     VARCHAR(255) NOT NULL DEFAULT '',
		title        VARCHAR(255) NOT NULL DEFAULT '',
		property_url VARCHAR(500) NOT NULL DEFAULT '',
		content      TEXT         NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS kohteet (
		id            SERIAL PRIMARY KEY,
		analysis_id   INTEGER REFERENCES analyses(id) ON DELETE CASCADE,
		user_id       BIGINT       NOT NULL DEFAULT 0,
		osoite        VARCHAR(255) NOT NULL,
		tyyppi        VARCHAR(50),
		hinta         NUMERIC,
		rakennusvuosi INTEGER,
		risk_level    NUMERIC(3,1),
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS risk_analyses (
		id          SERIAL PRIMARY KEY,
		analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		user_id     BIGINT  NOT NULL DEFAULT 0,
		risk_data   JSONB   NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_user     ON analyses(user_id);
	CREATE INDEX IF NOT EXISTS idx_kohteet_analysis  ON kohteet(analysis_id);
	CREATE INDEX IF NOT EXISTS idx_risk_analysis     ON risk_analyses(analysis_id);
`

func (ps *PostgresStore) Migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, schema)
	return err
}

// SaveAnalysis writes the analysis row, its kohde row and the optional risk
// row in one transaction.
func (ps *PostgresStore) SaveAnalysis(ctx context.Context, a *models.Analysis) (int64, error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin")
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO analyses (user_id, filename, title, property_url, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, a.UserID, archiveName(a.ArchivePath), a.Title, a.URL, a.Content, createdAt).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert analysis")
	}

	var riskLevel decimal.NullDecimal
	if a.Risk != nil {
		riskLevel = decimal.NewNullDecimal(decimal.NewFromFloat(a.Risk.Overall).Round(1))
	}
	var year sql.NullInt64
	if a.Property.ConstructionYear != nil {
		year = sql.NullInt64{Int64: int64(*a.Property.ConstructionYear), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO kohteet (analysis_id, user_id, osoite, tyyppi, hinta, rakennusvuosi, risk_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, a.UserID, a.Property.Address, a.Property.BuildingType.FinnishName(),
		a.Property.Price, year, riskLevel); err != nil {
		return 0, eris.Wrap(err, "postgres: insert kohde")
	}

	if a.Risk != nil {
		data, err := json.Marshal(a.Risk)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: encode risk")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO risk_analyses (analysis_id, user_id, risk_data)
			VALUES ($1, $2, $3)
		`, id, a.UserID, string(data)); err != nil {
			return 0, eris.Wrap(err, "postgres: insert risk")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "postgres: commit")
	}
	ps.logger.Info("[storage] Saved analysis %d for %s", id, a.URL)
	return id, nil
}

// ListAnalyses returns the newest analyses of a user with their property
// records and risk reports.
func (ps *PostgresStore) ListAnalyses(ctx context.Context, userID int64, limit int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := ps.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.title, a.property_url, a.content, a.filename, a.created_at,
		       k.osoite, k.tyyppi, k.hinta, k.rakennusvuosi, r.risk_data
		FROM analyses a
		LEFT JOIN kohteet k ON k.analysis_id = a.id
		LEFT JOIN risk_analyses r ON r.analysis_id = a.id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var out []*models.Analysis
	for rows.Next() {
		a := &models.Analysis{}
		var (
			address, kind sql.NullString
			year          sql.NullInt64
			risk          []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Title, &a.URL, &a.Content, &a.ArchivePath, &a.CreatedAt,
			&address, &kind, &a.Property.Price, &year, &risk); err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		a.Property.Address = address.String
		a.Property.BuildingType = buildingTypeFromFinnish(kind.String)
		if year.Valid {
			y := int(year.Int64)
			a.Property.ConstructionYear = &y
		}
		if len(risk) > 0 {
			var report models.RiskReport
			if err := json.Unmarshal(risk, &report); err != nil {
				ps.logger.Warn("[storage] Skipping unreadable risk data of analysis %d: %v", a.ID, err)
			} else {
				a.Risk = &report
			}
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate analyses")
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func archiveName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func buildingTypeFromFinnish(name string) models.BuildingType {
	for _, bt := range []models.BuildingType{
		models.BuildingDetached, models.BuildingApartment, models.BuildingTerraced, models.BuildingSemiDetached,
	} {
		if bt.FinnishName() == name {
			return bt
		}
	}
	return models.BuildingUnknown
}
