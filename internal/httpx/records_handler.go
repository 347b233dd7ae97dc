package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ariefcatur/bracelet-orders/internal/ledger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
)

type Pinger interface {
	Ping(ctx context.Context) ledger.PingResult
}

// RecordsHandler serves sync status and the ledger probe. Every probe appends a
// TEST- row to the ledger, so PingLimit throttles it; nil means unlimited.
type RecordsHandler struct {
	Records   RecordStore
	Redis     *redis.Client
	Ledger    Pinger
	PingLimit *rate.Limiter
}

func (h *RecordsHandler) Register(r chi.Router) {
	r.With(middleware.Timeout(5*time.Second)).Get("/records/{id}", h.getRecord)
	// the probe waits for the ledger's own timeout
	r.Post("/ledger/ping", h.ping)
}

func (h *RecordsHandler) getRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing id")
		return
	}
	ctx := r.Context()

	// 1) cache
	key := fmt.Sprintf(redisx.KeyRecordStatus, id)
	if h.Redis != nil {
		if b, err := h.Redis.Get(ctx, key).Bytes(); err == nil {
			var st orders.SyncStatus
			if json.Unmarshal(b, &st) == nil {
				writeJSON(w, http.StatusOK, withNotice(st))
				return
			}
		}
	}

	// 2) fallback DB
	st, err := h.Records.GetSyncStatus(ctx, id)
	if errors.Is(err, orders.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.Redis != nil {
		if b, err := json.Marshal(st); err == nil {
			_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
		}
	}
	writeJSON(w, http.StatusOK, withNotice(st))
}

// withNotice makes sure a record in review always carries the manual check hint.
func withNotice(st orders.SyncStatus) orders.SyncStatus {
	if st.Status == orders.StatusNeedsReview && st.Notice == "" {
		st.Notice = ledger.ManualCheckNotice
	}
	return st
}

func (h *RecordsHandler) ping(w http.ResponseWriter, r *http.Request) {
	if h.PingLimit != nil && !h.PingLimit.Allow() {
		writeError(w, http.StatusTooManyRequests, "ping rate exceeded, try again later")
		return
	}
	writeJSON(w, http.StatusOK, h.Ledger.Ping(r.Context()))
}
