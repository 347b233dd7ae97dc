package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Repo struct{ DB *pgxpool.Pool }

// SaveRecord is idempotent on record id: a second save of the same id reports existed=true
// and leaves the stored row untouched.
func (r *Repo) SaveRecord(ctx context.Context, rec CustomerRecord) (existed bool, err error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	var total int64
	if rec.Shipping != nil {
		total = rec.Shipping.TotalPrice
	}
	ct, err := r.DB.Exec(ctx, `
		INSERT INTO customer_records(id, variant, total_price, body, status, attempts)
		VALUES ($1, $2, $3, $4, $5, 0)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, string(rec.Variant), total, body, string(StatusSubmitted))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 0, nil
}

func (r *Repo) GetRecord(ctx context.Context, id string) (CustomerRecord, error) {
	var body []byte
	err := r.DB.QueryRow(ctx, `SELECT body FROM customer_records WHERE id=$1`, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomerRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return CustomerRecord{}, err
	}
	var rec CustomerRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return CustomerRecord{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// BeginSync moves the record into SYNCING. Only one sync per record can hold this
// state, which keeps a second concurrent send for the same record out.
func (r *Repo) BeginSync(ctx context.Context, id string) error {
	return r.transition(ctx, id, StatusSyncing, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE customer_records SET status=$2, updated_at=now() WHERE id=$1`,
			id, string(StatusSyncing))
		return err
	})
}

func (r *Repo) FinishSync(ctx context.Context, st SyncStatus) error {
	return r.transition(ctx, st.RecordID, st.Status, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE customer_records
			SET status=$2, outcome=$3, attempts=attempts+$4, notice=$5, updated_at=now()
			WHERE id=$1`,
			st.RecordID, string(st.Status), st.Outcome, st.Attempts, st.Notice)
		return err
	})
}

func (r *Repo) GetSyncStatus(ctx context.Context, id string) (SyncStatus, error) {
	var (
		st      SyncStatus
		status  string
		outcome *string
		notice  *string
		updated time.Time
	)
	err := r.DB.QueryRow(ctx, `
		SELECT status, outcome, attempts, notice, updated_at
		FROM customer_records WHERE id=$1`, id).Scan(&status, &outcome, &st.Attempts, &notice, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncStatus{}, ErrRecordNotFound
	}
	if err != nil {
		return SyncStatus{}, err
	}
	st.RecordID = id
	st.Status = Status(status)
	if outcome != nil {
		st.Outcome = *outcome
	}
	if notice != nil {
		st.Notice = *notice
	}
	st.UpdatedAt = updated
	return st, nil
}

// transition locks the row, checks the status table and runs apply inside one tx.
func (r *Repo) transition(ctx context.Context, id string, to Status, apply func(pgx.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var from string
	err = tx.QueryRow(ctx, `SELECT status FROM customer_records WHERE id=$1 FOR UPDATE`, id).Scan(&from)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return err
	}
	if !CanTransition(Status(from), to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if err := apply(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
