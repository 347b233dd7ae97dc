package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/draft"
	"github.com/ariefcatur/bracelet-orders/internal/form"
	kafkax "github.com/ariefcatur/bracelet-orders/internal/kafka"
	"github.com/ariefcatur/bracelet-orders/internal/logger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/pricing"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
	"github.com/ariefcatur/bracelet-orders/internal/validation"
)

type RecordStore interface {
	SaveRecord(ctx context.Context, rec orders.CustomerRecord) (bool, error)
	GetSyncStatus(ctx context.Context, id string) (orders.SyncStatus, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type FormsHandler struct {
	Policies map[orders.Variant]orders.PricingPolicy
	Coupon   orders.Coupon
	Drafts   draft.Factory
	Records  RecordStore
	Producer Publisher // order.submitted
	Redis    *redis.Client
	Service  string
	Now      func() time.Time
	NewID    func() string
}

// FormView is what the client renders after every form call.
type FormView struct {
	Variant       orders.Variant     `json:"variant"`
	Restored      bool               `json:"restored"`
	Fields        orders.DraftFields `json:"fields"`
	Quote         pricing.Quote      `json:"quote"`
	Errors        validation.Errors  `json:"errors"`
	AppliedCoupon *orders.Coupon     `json:"appliedCoupon,omitempty"`
	CouponEvent   string             `json:"couponEvent,omitempty"`
}

// SubmitReq carries the parent order the shipping details are attached to.
type SubmitReq struct {
	Name      string           `json:"name" validate:"required,max=100"`
	Gender    string           `json:"gender"`
	BirthDate string           `json:"birthDate"`
	BirthTime string           `json:"birthTime"`
	Wish      string           `json:"wish" validate:"max=2000"`
	Analysis  *orders.Analysis `json:"analysis"`
	ImageRef  string           `json:"imageRef"`
}

type SubmitResp struct {
	RecordID string                  `json:"recordId"`
	Shipping *orders.ShippingDetails `json:"shipping"`
	Quote    pricing.Quote           `json:"quote"`
}

type SubmitFailedResp struct {
	Errors validation.Errors `json:"errors"`
	Focus  validation.Field  `json:"focus"`
	Quote  pricing.Quote     `json:"quote"`
}

var submitValidator = validator.New()

func (h *FormsHandler) Register(r chi.Router) {
	r.Route("/forms/{client}", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Get("/", h.getForm)
		r.Patch("/", h.patchForm)
		r.Post("/coupon", h.applyCoupon)
		r.Delete("/coupon", h.removeCoupon)
		r.Post("/submit", h.submit)
	})
}

// controller restores the client's draft for the requested variant. Each request
// works on its own controller; the draft store carries state between requests.
func (h *FormsHandler) controller(w http.ResponseWriter, r *http.Request) (*form.Controller, orders.Variant, bool) {
	client := strings.TrimSpace(chi.URLParam(r, "client"))
	if client == "" {
		writeError(w, http.StatusBadRequest, "missing client")
		return nil, "", false
	}
	v := orders.Variant(r.URL.Query().Get("variant"))
	if v == "" {
		v = orders.VariantStandard
	}
	policy, ok := h.Policies[v]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown variant")
		return nil, "", false
	}
	log := logger.FromContext(r.Context()).With(zap.String("client", client))
	return form.New(r.Context(), policy, h.Coupon, h.Drafts(client), log), v, true
}

func (h *FormsHandler) view(c *form.Controller, v orders.Variant) FormView {
	fv := FormView{
		Variant:       v,
		Restored:      c.TakeRestored(),
		Fields:        c.Fields(),
		Quote:         c.Quote(),
		Errors:        c.Errors(),
		AppliedCoupon: c.AppliedCoupon(),
	}
	if fv.AppliedCoupon != nil {
		fv.CouponEvent = fv.AppliedCoupon.EventName
	}
	return fv
}

func (h *FormsHandler) getForm(w http.ResponseWriter, r *http.Request) {
	c, v, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(c, v))
}

func (h *FormsHandler) patchForm(w http.ResponseWriter, r *http.Request) {
	var p form.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c, v, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.TakeRestored()
	c.Apply(r.Context(), p)
	writeJSON(w, http.StatusOK, h.view(c, v))
}

func (h *FormsHandler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	c, v, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.TakeRestored()
	switch err := c.ApplyCoupon(r.Context(), req.Code); {
	case errors.Is(err, form.ErrCouponsDisabled):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "CouponsDisabled", "form": h.view(c, v)})
	case errors.Is(err, form.ErrInvalidCoupon):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": "InvalidCoupon", "form": h.view(c, v)})
	default:
		writeJSON(w, http.StatusOK, h.view(c, v))
	}
}

func (h *FormsHandler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	c, v, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.TakeRestored()
	c.RemoveCoupon(r.Context())
	writeJSON(w, http.StatusOK, h.view(c, v))
}

func (h *FormsHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := submitValidator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, v, ok := h.controller(w, r)
	if !ok {
		return
	}
	log := logger.FromContext(r.Context())

	res := c.Submit(r.Context())
	if !res.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, SubmitFailedResp{Errors: res.Errors, Focus: res.Focus, Quote: res.Quote})
		return
	}

	rec := orders.CustomerRecord{
		ID:        h.newID(),
		Name:      strings.TrimSpace(req.Name),
		Gender:    req.Gender,
		BirthDate: req.BirthDate,
		BirthTime: req.BirthTime,
		Wish:      req.Wish,
		Variant:   v,
		Analysis:  req.Analysis,
		ImageRef:  req.ImageRef,
		CreatedAt: h.now(),
		Shipping:  res.Details,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Records.SaveRecord(ctx, rec); err != nil {
		// the draft is already gone; put it back so nothing the customer typed is lost
		if serr := h.Drafts(chi.URLParam(r, "client")).Save(ctx, c.Fields()); serr != nil {
			log.Warn("draft restore failed", zap.Error(serr))
		}
		log.Error("record save failed", zap.String("record_id", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store the order, please retry")
		return
	}

	st := orders.SyncStatus{RecordID: rec.ID, Status: orders.StatusSubmitted, UpdatedAt: rec.CreatedAt}
	if b, err := json.Marshal(st); err == nil && h.Redis != nil {
		_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyRecordStatus, rec.ID), b, redisx.TTLStatusCache).Err()
	}

	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderSubmitted,
		EventVersion:  1,
		OccurredAt:    rec.CreatedAt.UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(r.Context()),
		CorrelationID: rec.ID,
		Payload: kafkax.MustMarshal(orders.OrderSubmittedPayload{
			RecordID:   rec.ID,
			Variant:    rec.Variant,
			TotalPrice: res.Details.TotalPrice,
			CouponCode: res.Details.CouponCode,
		}),
	}
	h.Producer.Publish(orders.PartitionKey(rec.ID), kafkax.MustMarshal(ev),
		kafkax.EventHeaders(orders.EventOrderSubmitted, 1)...)

	log.Info("order submitted", zap.String("record_id", rec.ID), zap.Int64("total", res.Details.TotalPrice))
	writeJSON(w, http.StatusAccepted, SubmitResp{RecordID: rec.ID, Shipping: res.Details, Quote: res.Quote})
}

func (h *FormsHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *FormsHandler) newID() string {
	if h.NewID == nil {
		return uuid.NewString()
	}
	return h.NewID()
}
