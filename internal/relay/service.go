// Package relay moves submitted records from the event stream to the ledger.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/bracelet-orders/internal/kafka"
	"github.com/ariefcatur/bracelet-orders/internal/ledger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
)

type RecordStore interface {
	GetRecord(ctx context.Context, id string) (orders.CustomerRecord, error)
	BeginSync(ctx context.Context, id string) error
	FinishSync(ctx context.Context, st orders.SyncStatus) error
}

type Sender interface {
	Send(ctx context.Context, rec orders.CustomerRecord) ledger.Result
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// finishRetries bounds how often a failed FinishSync is retried before the
// result is parked for the next delivery of the event.
const finishRetries = 3

type Service struct {
	Repo          RecordStore
	Ledger        Sender
	Redis         *redis.Client
	Producer      Publisher // order.synced
	ServiceName   string
	Logger        *zap.Logger
	Now           func() time.Time
	FinishBackoff time.Duration // first FinishSync retry delay, default 200ms
}

// HandleOrderSubmitted is the consumer handler for order.submitted. A record is
// sent at most once per event; redelivered events and records that are already
// syncing are acknowledged without a second send.
func (s *Service) HandleOrderSubmitted(ctx context.Context, m kafkago.Message) error {
	log := s.logger()

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Warn("dropping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderSubmitted {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "relay", env.EventID)
	claimed, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		// the row status still guards against double sends
		log.Warn("dedup unavailable", zap.String("event_id", env.EventID), zap.Error(err))
		claimed = true
	}
	if !claimed {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.OrderSubmittedPayload](env.Payload)
	if err != nil {
		log.Warn("dropping event with bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	log = log.With(zap.String("record_id", p.RecordID), zap.String("trace_id", env.TraceID))

	switch err := s.Repo.BeginSync(ctx, p.RecordID); {
	case errors.Is(err, orders.ErrRecordNotFound):
		log.Warn("submitted record not found")
		return nil
	case errors.Is(err, orders.ErrInvalidTransition):
		if st, ok := s.parked(ctx, p.RecordID); ok {
			log.Info("resuming parked delivery result", zap.String("outcome", st.Outcome))
			return s.finish(context.WithoutCancel(ctx), dkey, env.TraceID, st)
		}
		log.Info("record already synced or syncing, skipping", zap.Error(err))
		return nil
	case err != nil:
		_ = s.Redis.Del(ctx, dkey).Err()
		return fmt.Errorf("begin sync %s: %w", p.RecordID, err)
	}

	// From here on the record is SYNCING and must reach a final status even if
	// the consumer is shutting down.
	ctx = context.WithoutCancel(ctx)

	rec, err := s.Repo.GetRecord(ctx, p.RecordID)
	if err != nil {
		log.Error("record unreadable after claiming it", zap.Error(err))
		return s.finish(ctx, dkey, env.TraceID, orders.SyncStatus{
			RecordID: p.RecordID,
			Status:   orders.StatusNeedsReview,
			Notice:   "record could not be loaded for delivery",
		})
	}

	res := s.Ledger.Send(ctx, rec)

	st := orders.SyncStatus{
		RecordID: p.RecordID,
		Status:   orders.StatusSent,
		Outcome:  string(res.Outcome),
		Attempts: res.Attempts,
		Notice:   res.Warning,
	}
	if res.NeedsManualCheck() {
		st.Status = orders.StatusNeedsReview
	}
	return s.finish(ctx, dkey, env.TraceID, st)
}

// finish stores the final status, then caches and announces it. When the store
// keeps failing the result is parked in Redis and the dedup claim released, so a
// redelivered event completes the record without sending it again.
func (s *Service) finish(ctx context.Context, dkey, trace string, st orders.SyncStatus) error {
	log := s.logger().With(zap.String("record_id", st.RecordID))
	pkey := fmt.Sprintf(redisx.KeyPendingSync, st.RecordID)

	st.UpdatedAt = s.now()
	err := s.storeFinal(ctx, st)
	switch {
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrRecordNotFound):
		log.Warn("record left SYNCING elsewhere, dropping result", zap.Error(err))
		_ = s.Redis.Del(ctx, pkey).Err()
		return nil
	case err != nil:
		s.park(ctx, log, pkey, dkey, st)
		return fmt.Errorf("finish sync %s: %w", st.RecordID, err)
	}
	if err := s.Redis.Del(ctx, pkey).Err(); err != nil {
		log.Warn("parked result not removed", zap.Error(err))
	}

	if b, err := json.Marshal(st); err == nil {
		key := fmt.Sprintf(redisx.KeyRecordStatus, st.RecordID)
		if err := s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err(); err != nil {
			log.Warn("status cache write failed", zap.Error(err))
		}
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderSynced,
		EventVersion:  1,
		OccurredAt:    st.UpdatedAt.UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: st.RecordID,
		Payload: kafkax.MustMarshal(orders.OrderSyncedPayload{
			RecordID: st.RecordID,
			Outcome:  st.Outcome,
			Attempts: st.Attempts,
			Notice:   st.Notice,
		}),
	}
	s.Producer.Publish(orders.PartitionKey(st.RecordID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventOrderSynced, 1)...)
	return nil
}

func (s *Service) storeFinal(ctx context.Context, st orders.SyncStatus) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.FinishBackoff
	if b.InitialInterval <= 0 {
		b.InitialInterval = 200 * time.Millisecond
	}
	return backoff.Retry(func() error {
		err := s.Repo.FinishSync(ctx, st)
		if errors.Is(err, orders.ErrInvalidTransition) || errors.Is(err, orders.ErrRecordNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, finishRetries), ctx))
}

func (s *Service) park(ctx context.Context, log *zap.Logger, pkey, dkey string, st orders.SyncStatus) {
	b, err := json.Marshal(st)
	if err == nil {
		err = s.Redis.Set(ctx, pkey, b, redisx.TTLPendingSync).Err()
	}
	if err != nil {
		log.Error("delivery result lost, record stays SYNCING", zap.String("outcome", st.Outcome), zap.Error(err))
		return
	}
	if err := s.Redis.Del(ctx, dkey).Err(); err != nil {
		log.Error("dedup claim not released", zap.Error(err))
	}
}

func (s *Service) parked(ctx context.Context, recordID string) (orders.SyncStatus, bool) {
	b, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeyPendingSync, recordID)).Bytes()
	if err != nil {
		return orders.SyncStatus{}, false
	}
	var st orders.SyncStatus
	if err := json.Unmarshal(b, &st); err != nil {
		return orders.SyncStatus{}, false
	}
	return st, true
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
