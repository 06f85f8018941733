package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/medassist/claim-processor/internal/core/domain"
)

// ClaimRepository persists the audit trail of asynchronously submitted claims.
type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	documents JSONB NOT NULL DEFAULT '[]'::jsonb,
	result JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_status ON claims(status);
CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ClaimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	manifest, err := claim.MarshalDocuments()
	if err != nil {
		return fmt.Errorf("marshal document manifest: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO claims (id, status, documents, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6)
`,
		claim.ID, string(claim.Status), manifest, claim.Error, claim.CreatedAt, claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, documents, result, error_message, created_at, updated_at
FROM claims
WHERE id = $1
`, id)

	var claim domain.Claim
	var status string
	var manifest []byte
	var result []byte

	err := row.Scan(&claim.ID, &status, &manifest, &result, &claim.Error, &claim.CreatedAt, &claim.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", err)
		}
		return nil, fmt.Errorf("select claim: %w", err)
	}

	claim.Status = domain.ClaimStatus(status)
	if err := json.Unmarshal(manifest, &claim.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal document manifest: %w", err)
	}
	if len(result) > 0 {
		var stored domain.ClaimResult
		if err := json.Unmarshal(result, &stored); err != nil {
			return nil, fmt.Errorf("unmarshal claim result: %w", err)
		}
		claim.Result = &stored
	}
	return &claim, nil
}

func (r *ClaimRepository) UpdateStatus(ctx context.Context, id string, status domain.ClaimStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE claims SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update claim status: %w", err)
	}
	return requireRow(res, id)
}

// SaveResult stores the final pipeline output and marks the claim processed
// in one statement.
func (r *ClaimRepository) SaveResult(ctx context.Context, id string, result domain.ClaimResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal claim result: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE claims SET status = $2, result = $3, error_message = '', updated_at = $4 WHERE id = $1
`, id, string(domain.ClaimProcessed), payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save claim result: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrClaimNotFound, "update claim", fmt.Errorf("no claim with id %s", id))
	}
	return nil
}
