package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ariefcatur/bracelet-orders/internal/draft"
	kafkax "github.com/ariefcatur/bracelet-orders/internal/kafka"
	"github.com/ariefcatur/bracelet-orders/internal/ledger"
	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
	"github.com/ariefcatur/bracelet-orders/internal/validation"
)

type memRecords struct {
	mu      sync.Mutex
	saved   map[string]orders.CustomerRecord
	status  map[string]orders.SyncStatus
	saveErr error
}

func newMemRecords() *memRecords {
	return &memRecords{saved: map[string]orders.CustomerRecord{}, status: map[string]orders.SyncStatus{}}
}

func (m *memRecords) SaveRecord(_ context.Context, rec orders.CustomerRecord) (bool, error) {
	if m.saveErr != nil {
		return false, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.saved[rec.ID]
	if !existed {
		m.saved[rec.ID] = rec
		m.status[rec.ID] = orders.SyncStatus{RecordID: rec.ID, Status: orders.StatusSubmitted}
	}
	return existed, nil
}

func (m *memRecords) GetSyncStatus(_ context.Context, id string) (orders.SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[id]
	if !ok {
		return orders.SyncStatus{}, orders.ErrRecordNotFound
	}
	return st, nil
}

type capturePublisher struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (c *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

type stubPinger struct{ res ledger.PingResult }

func (s stubPinger) Ping(context.Context) ledger.PingResult { return s.res }

var (
	standard = orders.PricingPolicy{
		Variant: orders.VariantStandard, BasePrice: 1280, ShippingCost: 60,
		SizeThreshold: 17, Surcharge: 100, AddonCost: 80,
	}
	custom = orders.PricingPolicy{
		Variant: orders.VariantCustom, BasePrice: 1980,
		SizeThreshold: 17, Surcharge: 200, AddonCost: 80,
	}
)

type testAPI struct {
	router  http.Handler
	drafts  *draft.Memory
	records *memRecords
	pub     *capturePublisher
	mr      *miniredis.Miniredis
}

func newTestAPI(t *testing.T, coupon orders.Coupon) *testAPI {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	api := &testAPI{drafts: draft.NewMemory(nil), records: newMemRecords(), pub: &capturePublisher{}, mr: mr}
	router := NewRouter(nil)
	(&FormsHandler{
		Policies: map[orders.Variant]orders.PricingPolicy{orders.VariantStandard: standard, orders.VariantCustom: custom},
		Coupon:   coupon,
		Drafts:   api.drafts.Factory(""),
		Records:  api.records,
		Producer: api.pub,
		Redis:    rdb,
		Service:  "order-api",
		Now:      func() time.Time { return time.Date(2026, 10, 19, 7, 4, 5, 0, time.UTC) },
		NewID:    func() string { return "rec-1" },
	}).Register(router)
	(&RecordsHandler{
		Records: api.records,
		Redis:   rdb,
		Ledger:  stubPinger{res: ledger.PingResult{Status: ledger.PingOK, ID: "TEST-1"}},
	}).Register(router)
	api.router = router
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

var validPatch = map[string]any{
	"realName":  "王小明",
	"phone":     "0912345678",
	"storeCode": "123456",
	"storeName": "鑫華門市",
	"socialId":  "@ming",
	"agreement": true,
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	rec := api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetForm_Defaults(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})

	rec := api.do(t, http.MethodGet, "/forms/c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[FormView](t, rec)
	assert.Equal(t, orders.VariantStandard, v.Variant)
	assert.False(t, v.Restored)
	assert.Equal(t, "16", v.Fields.WristSize)
	assert.Equal(t, int64(1340), v.Quote.Total)
}

func TestGetForm_UnknownVariant(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	rec := api.do(t, http.MethodGet, "/forms/c1?variant=deluxe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchThenReload_RestoresDraft(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})

	rec := api.do(t, http.MethodPatch, "/forms/c1?variant=custom", map[string]any{
		"realName":           "王小明",
		"wristSize":          "17.5",
		"addPurificationBag": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[FormView](t, rec)
	assert.False(t, v.Restored)
	assert.True(t, v.Quote.SurchargeApplied)
	assert.Equal(t, int64(1980+200+80), v.Quote.Total)

	rec = api.do(t, http.MethodGet, "/forms/c1?variant=custom", nil)
	v = decode[FormView](t, rec)
	assert.True(t, v.Restored)
	assert.Equal(t, "王小明", v.Fields.RealName)

	// other clients do not see it
	v = decode[FormView](t, api.do(t, http.MethodGet, "/forms/c2?variant=custom", nil))
	assert.False(t, v.Restored)
	assert.Empty(t, v.Fields.RealName)
}

func TestPatch_BadJSON(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/forms/c1", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCoupon(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		api := newTestAPI(t, orders.Coupon{Code: "SAVE10", DiscountAmount: 100})
		rec := api.do(t, http.MethodPost, "/forms/c1/coupon", map[string]string{"code": "SAVE10"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), "CouponsDisabled")
	})

	api := newTestAPI(t, orders.Coupon{Code: "SAVE10", DiscountAmount: 100, EventName: "週年慶", IsEnabled: true})

	rec := api.do(t, http.MethodPost, "/forms/c1/coupon", map[string]string{"code": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "InvalidCoupon")

	rec = api.do(t, http.MethodPost, "/forms/c1/coupon", map[string]string{"code": "save10"})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[FormView](t, rec)
	require.NotNil(t, v.AppliedCoupon)
	assert.Equal(t, "週年慶", v.CouponEvent)
	assert.Equal(t, int64(1340-100), v.Quote.Total)

	// the applied coupon survives a reload through the draft
	v = decode[FormView](t, api.do(t, http.MethodGet, "/forms/c1", nil))
	require.NotNil(t, v.AppliedCoupon)
	assert.Equal(t, int64(1240), v.Quote.Total)

	v = decode[FormView](t, api.do(t, http.MethodDelete, "/forms/c1/coupon", nil))
	assert.Nil(t, v.AppliedCoupon)
	assert.Equal(t, int64(1340), v.Quote.Total)
}

func TestCoupon_TextEditKeepsAppliedCoupon(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{Code: "SAVE10", DiscountAmount: 100, IsEnabled: true})

	rec := api.do(t, http.MethodPost, "/forms/c1/coupon", map[string]string{"code": "SAVE10"})
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[FormView](t, api.do(t, http.MethodPatch, "/forms/c1", map[string]any{"couponCode": "SAVE1"}))
	require.NotNil(t, v.AppliedCoupon)
	assert.Equal(t, int64(1240), v.Quote.Total)

	v = decode[FormView](t, api.do(t, http.MethodGet, "/forms/c1", nil))
	require.NotNil(t, v.AppliedCoupon)
	assert.Equal(t, "SAVE10", v.AppliedCoupon.Code)
	assert.Equal(t, "SAVE1", v.Fields.CouponCode)
	assert.Equal(t, int64(1240), v.Quote.Total)

	api.do(t, http.MethodPatch, "/forms/c1", validPatch)
	rec = api.do(t, http.MethodPost, "/forms/c1/submit", SubmitReq{Name: "Ming"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	resp := decode[SubmitResp](t, rec)
	assert.Equal(t, "SAVE10", resp.Shipping.CouponCode)
	assert.Equal(t, int64(1240), resp.Shipping.TotalPrice)
}

func TestSubmit_InvalidReturnsFocus(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	api.do(t, http.MethodPatch, "/forms/c1", map[string]any{"realName": "王小明"})

	rec := api.do(t, http.MethodPost, "/forms/c1/submit", SubmitReq{Name: "Ming"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[SubmitFailedResp](t, rec)
	assert.Equal(t, validation.FieldPhone, resp.Focus)
	assert.True(t, resp.Errors.Has(validation.FieldAgreement))
	assert.True(t, api.drafts.Has("c1:shipping_details_draft"), "draft kept")
	assert.Empty(t, api.pub.msgs)
}

func TestSubmit_MissingParentName(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	rec := api.do(t, http.MethodPost, "/forms/c1/submit", SubmitReq{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_Valid(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	api.do(t, http.MethodPatch, "/forms/c1", validPatch)

	rec := api.do(t, http.MethodPost, "/forms/c1/submit", SubmitReq{Name: "Ming", ImageRef: "https://cdn.example/a.png"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := decode[SubmitResp](t, rec)
	assert.Equal(t, "rec-1", resp.RecordID)
	assert.Equal(t, "0912-345-678", resp.Shipping.Phone)
	assert.Equal(t, resp.Quote.Total, resp.Shipping.TotalPrice)

	saved := api.records.saved["rec-1"]
	assert.Equal(t, orders.VariantStandard, saved.Variant)
	assert.Equal(t, "https://cdn.example/a.png", saved.ImageRef)
	require.NotNil(t, saved.Shipping)

	assert.False(t, api.drafts.Has("c1:shipping_details_draft"), "draft cleared")

	require.Len(t, api.pub.msgs, 1)
	msg := api.pub.msgs[0]
	assert.Equal(t, "rec-1", string(msg.Key))
	assert.Equal(t, orders.EventOrderSubmitted, kafkax.HeaderValue(msg, "x-event-type"))
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	p, err := kafkax.UnwrapPayload[orders.OrderSubmittedPayload](env.Payload)
	require.NoError(t, err)
	assert.Equal(t, resp.Shipping.TotalPrice, p.TotalPrice)

	assert.True(t, api.mr.Exists("record_status:rec-1"))
}

func TestSubmit_SaveFailureKeepsDraft(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	api.records.saveErr = errors.New("db down")
	api.do(t, http.MethodPatch, "/forms/c1", validPatch)

	rec := api.do(t, http.MethodPost, "/forms/c1/submit", SubmitReq{Name: "Ming"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, api.drafts.Has("c1:shipping_details_draft"))
	assert.Empty(t, api.pub.msgs)
}

func TestGetRecord(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})
	api.records.status["r-db"] = orders.SyncStatus{RecordID: "r-db", Status: orders.StatusNeedsReview, Attempts: 2}

	rec := api.do(t, http.MethodGet, "/records/r-db", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[orders.SyncStatus](t, rec)
	assert.Equal(t, orders.StatusNeedsReview, st.Status)
	assert.Equal(t, ledger.ManualCheckNotice, st.Notice)
	assert.True(t, api.mr.Exists("record_status:r-db"), "fallback result is cached")

	require.NoError(t, api.mr.Set("record_status:r-cache", `{"recordId":"r-cache","status":"SENT","attempts":1}`))
	st = decode[orders.SyncStatus](t, api.do(t, http.MethodGet, "/records/r-cache", nil))
	assert.Equal(t, orders.StatusSent, st.Status)

	rec = api.do(t, http.MethodGet, "/records/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerPing(t *testing.T) {
	api := newTestAPI(t, orders.Coupon{})

	rec := api.do(t, http.MethodPost, "/ledger/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[ledger.PingResult](t, rec)
	assert.Equal(t, ledger.PingOK, res.Status)
}

func TestLedgerPing_RateLimited(t *testing.T) {
	router := NewRouter(nil)
	(&RecordsHandler{
		Records:   newMemRecords(),
		Ledger:    stubPinger{res: ledger.PingResult{Status: ledger.PingOK}},
		PingLimit: rate.NewLimiter(rate.Every(time.Hour), 1),
	}).Register(router)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/ledger/ping", nil))
	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/ledger/ping", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
