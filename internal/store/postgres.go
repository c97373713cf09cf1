package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/cvalentine99/flowlens/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS flow_features (
	id                    BIGSERIAL PRIMARY KEY,
	interval_mean         DOUBLE PRECISION NOT NULL,
	interval_var          DOUBLE PRECISION NOT NULL,
	size_mean             DOUBLE PRECISION NOT NULL,
	size_std              DOUBLE PRECISION NOT NULL,
	size_entropy          DOUBLE PRECISION NOT NULL,
	unique_src_count      DOUBLE PRECISION NOT NULL,
	unique_dst_count      DOUBLE PRECISION NOT NULL,
	protocol_entropy      DOUBLE PRECISION NOT NULL,
	transition_complexity DOUBLE PRECISION NOT NULL,
	vantage_point         TEXT NOT NULL,
	timestamp             TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	id             BIGSERIAL PRIMARY KEY,
	dbscan_label   INTEGER NOT NULL,
	spectral_label INTEGER NOT NULL,
	refined_label  INTEGER NOT NULL,
	anomaly        BOOLEAN NOT NULL,
	recon_error    DOUBLE PRECISION NOT NULL,
	vantage_point  TEXT NOT NULL,
	timestamp      TIMESTAMPTZ NOT NULL
);
`

// Postgres is the PostgreSQL-backed store.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to PostgreSQL and ensures the append-only
// schema exists.
func OpenPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "ping", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &PersistenceError{Op: "create schema", Err: err}
	}
	return &Postgres{db: db}, nil
}

// SaveRun writes all rows of one run inside a single transaction.
// Any failure rolls the whole run back; nothing partial is retained.
func (p *Postgres) SaveRun(ctx context.Context, features []models.FeatureRow, results []models.ResultRow) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	for _, f := range features {
		v := f.Vector
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flow_features (
				interval_mean, interval_var, size_mean, size_std,
				size_entropy, unique_src_count, unique_dst_count,
				protocol_entropy, transition_complexity,
				vantage_point, timestamp
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			v.IntervalMean, v.IntervalVar, v.SizeMean, v.SizeStd,
			v.SizeEntropy, v.UniqueSrcCount, v.UniqueDstCount,
			v.ProtocolEntropy, v.TransitionComplexity,
			f.VantagePoint, f.Timestamp,
		)
		if err != nil {
			return &PersistenceError{Op: "insert feature row", Err: err}
		}
	}

	for _, r := range results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results (
				dbscan_label, spectral_label, refined_label,
				anomaly, recon_error, vantage_point, timestamp
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			r.Result.DBSCANLabel, r.Result.SpectralLabel, r.Result.RefinedLabel,
			r.Result.Anomaly, r.Result.ReconError, r.VantagePoint, r.Timestamp,
		)
		if err != nil {
			return &PersistenceError{Op: "insert result row", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}

// Features returns all persisted feature rows ordered by id.
func (p *Postgres) Features(ctx context.Context) ([]models.FeatureRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, interval_mean, interval_var, size_mean, size_std,
		       size_entropy, unique_src_count, unique_dst_count,
		       protocol_entropy, transition_complexity,
		       vantage_point, timestamp
		FROM flow_features ORDER BY id
	`)
	if err != nil {
		return nil, &PersistenceError{Op: "query features", Err: err}
	}
	defer rows.Close()

	var out []models.FeatureRow
	for rows.Next() {
		var f models.FeatureRow
		v := &f.Vector
		err := rows.Scan(&f.ID,
			&v.IntervalMean, &v.IntervalVar, &v.SizeMean, &v.SizeStd,
			&v.SizeEntropy, &v.UniqueSrcCount, &v.UniqueDstCount,
			&v.ProtocolEntropy, &v.TransitionComplexity,
			&f.VantagePoint, &f.Timestamp,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "scan feature row", Err: err}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate features", Err: err}
	}
	return out, nil
}

// Results returns all persisted result rows ordered by id.
func (p *Postgres) Results(ctx context.Context) ([]models.ResultRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, dbscan_label, spectral_label, refined_label,
		       anomaly, recon_error, vantage_point, timestamp
		FROM results ORDER BY id
	`)
	if err != nil {
		return nil, &PersistenceError{Op: "query results", Err: err}
	}
	defer rows.Close()

	var out []models.ResultRow
	for rows.Next() {
		var r models.ResultRow
		err := rows.Scan(&r.ID,
			&r.Result.DBSCANLabel, &r.Result.SpectralLabel, &r.Result.RefinedLabel,
			&r.Result.Anomaly, &r.Result.ReconError,
			&r.VantagePoint, &r.Timestamp,
		)
		if err != nil {
			return nil, &PersistenceError{Op: "scan result row", Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "iterate results", Err: err}
	}
	return out, nil
}

// Close closes the database connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}
