package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Suryateja-byte/Roomshare-sub011/internal/domain/idempotency"
)

type idempotencyRow struct {
	ID                 string         `db:"id"`
	Key                string         `db:"key"`
	CallerID           string         `db:"caller_id"`
	Operation          string         `db:"operation"`
	RequestFingerprint string         `db:"request_fingerprint"`
	Status             string         `db:"status"`
	ResultPayload      []byte         `db:"result_payload"`
	ErrorDetail        sql.NullString `db:"error_detail"`
	CreatedAt          time.Time      `db:"created_at"`
	ExpiresAt          time.Time      `db:"expires_at"`
}

func (r *idempotencyRow) toEntity() *idempotency.Record {
	return &idempotency.Record{
		ID: r.ID, Key: r.Key, CallerID: r.CallerID, Operation: r.Operation,
		RequestFingerprint: r.RequestFingerprint,
		Status:             idempotency.Status(r.Status),
		ResultPayload:      r.ResultPayload,
		ErrorDetail:        r.ErrorDetail.String,
		CreatedAt:          r.CreatedAt, ExpiresAt: r.ExpiresAt,
	}
}

const idempotencyColumns = `id, key, caller_id, operation, request_fingerprint, status, result_payload, error_detail, created_at, expires_at`

type IdempotencyRepository struct{ db *sqlx.DB }

func NewIdempotencyRepository(db *sqlx.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

func (r *IdempotencyRepository) Insert(ctx context.Context, rec *idempotency.Record) error {
	query := `INSERT INTO idempotency_records (key, caller_id, operation, request_fingerprint, status, created_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, rec.Key, rec.CallerID, rec.Operation, rec.RequestFingerprint, string(rec.Status), rec.CreatedAt, rec.ExpiresAt).Scan(&rec.ID); err != nil {
		if IsUniqueViolation(err) {
			return idempotency.ErrDuplicateKey
		}
		return fmt.Errorf("冪等性レコード作成に失敗: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) Get(ctx context.Context, key, callerID, operation string) (*idempotency.Record, error) {
	var row idempotencyRow
	query := `SELECT ` + idempotencyColumns + ` FROM idempotency_records WHERE key = $1 AND caller_id = $2 AND operation = $3`
	if err := r.db.GetContext(ctx, &row, query, key, callerID, operation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, idempotency.ErrRecordNotFound
		}
		return nil, fmt.Errorf("冪等性レコード取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *IdempotencyRepository) MarkCompleted(ctx context.Context, id string, payload []byte, expiresAt time.Time) error {
	query := `UPDATE idempotency_records SET status = 'completed', result_payload = $1, expires_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, payload, expiresAt, id); err != nil {
		return fmt.Errorf("冪等性レコード完了更新に失敗: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) MarkFailed(ctx context.Context, id string, detail string, expiresAt time.Time) error {
	query := `UPDATE idempotency_records SET status = 'failed', error_detail = $1, expires_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, detail, expiresAt, id); err != nil {
		return fmt.Errorf("冪等性レコード失敗更新に失敗: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("冪等性レコード削除に失敗: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	query := `DELETE FROM idempotency_records WHERE id IN (SELECT id FROM idempotency_records WHERE expires_at < $1 LIMIT $2)`
	result, err := r.db.ExecContext(ctx, query, now, limit)
	if err != nil {
		return 0, fmt.Errorf("期限切れ冪等性レコード削除に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

var _ idempotency.Repository = (*IdempotencyRepository)(nil)
