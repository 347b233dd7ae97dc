// Package ledger delivers finalized customer records to the spreadsheet-backed
// ledger. The ledger never tells us whether a row arrived, so delivery is best
// effort: one send, one image-less retry on a transport error, then a soft
// warning instead of an error.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

// ErrCrossOrigin is returned when the ledger redirects the request to another
// origin over a downgraded scheme. The POST body has already been accepted by then.
var ErrCrossOrigin = errors.New("cross-origin redirect rejected")

// Compressor shrinks a base64 data URL image.
type Compressor interface {
	Compress(ctx context.Context, dataURL string, quality float64) (string, error)
}

type Config struct {
	Endpoint     string
	Timeout      time.Duration
	ImageQuality float64
	Location     *time.Location
}

type Gateway struct {
	endpoint   string
	quality    float64
	loc        *time.Location
	client     *http.Client
	compressor Compressor
	classify   func(error) bool
	now        func() time.Time
	token      func() string
	logger     *zap.Logger
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.client = c }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithClassifier replaces the rule deciding which transport errors count as
// "probably delivered anyway".
func WithClassifier(f func(error) bool) Option {
	return func(g *Gateway) { g.classify = f }
}

func New(cfg Config, compressor Compressor, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ImageQuality <= 0 || cfg.ImageQuality > 1 {
		cfg.ImageQuality = 0.7
	}
	g := &Gateway{
		endpoint:   cfg.Endpoint,
		quality:    cfg.ImageQuality,
		loc:        cfg.Location,
		compressor: compressor,
		classify:   LikelyDelivered,
		now:        time.Now,
		token:      uuid.NewString,
		logger:     logger.Named("ledger"),
	}
	g.client = &http.Client{Timeout: cfg.Timeout, CheckRedirect: checkRedirect}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// checkRedirect follows same-scheme redirects and refuses https -> http ones.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("stopped after 10 redirects")
	}
	prev := via[len(via)-1].URL
	if prev.Scheme == "https" && req.URL.Scheme != "https" {
		return ErrCrossOrigin
	}
	return nil
}

// LikelyDelivered classifies err as a cross-origin rejection. The text match is a
// heuristic and may also catch unrelated errors that mention CORS.
func LikelyDelivered(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCrossOrigin) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "cross-origin") || strings.Contains(msg, "cors")
}

// attempt walks the delivery state table for one Send call.
type attempt struct {
	state State
	trail []State
	log   *zap.Logger
}

func (a *attempt) to(next State) {
	if !CanTransition(a.state, next) {
		a.log.DPanic("illegal delivery transition", zap.String("from", string(a.state)), zap.String("to", string(next)))
	}
	a.state = next
	a.trail = append(a.trail, next)
}

// Send delivers rec and always returns normally. Transport failures are folded
// into the Result; the caller must not read OutcomeUnconfirmed as "delivered".
// Sends are sequential: the retry starts only after the first attempt settled.
func (g *Gateway) Send(ctx context.Context, rec orders.CustomerRecord) Result {
	log := g.logger.With(zap.String("record_id", rec.ID))
	a := &attempt{state: StateBuild, trail: []State{StateBuild}, log: log}

	image := g.prepareImage(ctx, rec.ImageRef, log)
	payload := BuildPayload(rec, image, g.loc)

	a.to(StateSend)
	err := g.post(ctx, payload)
	if err == nil {
		a.to(StateSent)
		log.Info("record sent", zap.Int("attempts", 1))
		return Result{Outcome: OutcomeUnconfirmed, Attempts: 1, Trail: a.trail}
	}

	res := Result{Attempts: 1}
	if g.classify(err) {
		res.LikelyDelivered = true
		log.Info("send rejected cross-origin, likely delivered anyway", zap.Error(err))
	} else {
		log.Warn("send failed", zap.Int("attempt", 1), zap.Error(err))
	}
	a.to(StateSendFailed)

	a.to(StateRetryWithoutImage)
	payload.ImageBase64 = ""
	res.Attempts = 2
	res.ImageDropped = image != ""
	err = g.post(ctx, payload)
	if err == nil {
		a.to(StateSent)
		res.Outcome = OutcomeRecovered
		res.Trail = a.trail
		log.Info("record sent without image", zap.Int("attempts", 2))
		return res
	}

	if g.classify(err) {
		res.LikelyDelivered = true
	}
	a.to(StateGiveUp)
	res.Outcome = OutcomeUnrecovered
	res.Warning = ManualCheckNotice
	res.Trail = a.trail
	log.Warn("giving up on record, manual verification required",
		zap.Int("attempts", 2), zap.Bool("likely_delivered", res.LikelyDelivered), zap.Error(err))
	return res
}

// Ping sends a synthetic record whose id starts with TEST-. It never fails.
func (g *Gateway) Ping(ctx context.Context) PingResult {
	now := g.now()
	rec := orders.CustomerRecord{
		ID:        "TEST-" + strconv.FormatInt(now.UnixMilli(), 10),
		Name:      "Connectivity test",
		Gender:    "test",
		BirthDate: now.Format("2006-01-02"),
		BirthTime: now.Format("15:04"),
		Wish:      "connectivity test",
		Variant:   orders.VariantCustom,
		Analysis: &orders.Analysis{
			ZodiacSign:        "test",
			Element:           "test",
			LuckyElement:      "test",
			Bazi:              "test",
			FiveElements:      "test",
			SuggestedCrystals: []string{"test"},
			Reasoning:         "test",
			VisualDescription: "test",
			ColorPalette:      []string{"test"},
		},
		CreatedAt: now,
		Shipping: &orders.ShippingDetails{
			RealName:        "test",
			Phone:           "0900-000-000",
			StoreCode:       "000000",
			StoreName:       "test",
			SocialID:        "test",
			WristSize:       "16",
			PreferredColors: []string{"test"},
		},
	}

	err := g.post(ctx, BuildPayload(rec, "", g.loc))
	switch {
	case err == nil:
		return PingResult{Status: PingOK, ID: rec.ID}
	case g.classify(err):
		return PingResult{Status: PingLikely, ID: rec.ID, Error: err.Error()}
	default:
		g.logger.Warn("ledger ping failed", zap.Error(err))
		return PingResult{Status: PingUnknown, ID: rec.ID, Error: err.Error()}
	}
}

// post fires the payload. The response is drained and dropped unread: the ledger
// answers every request the same way, so only transport errors carry information.
func (g *Gateway) post(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return fmt.Errorf("ledger endpoint: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(g.now().UnixMilli(), 10))
	q.Set("r", g.token())
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return nil
}

// prepareImage decides what goes into imageBase64. Hosted images are never
// re-uploaded; inline images are compressed when possible and sent as-is
// otherwise. Anything unusable becomes an empty field.
func (g *Gateway) prepareImage(ctx context.Context, ref string, log *zap.Logger) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case IsRemoteURL(ref):
		return ""
	}
	if g.compressor != nil {
		out, err := g.compressor.Compress(ctx, ref, g.quality)
		if err == nil && IsDataImage(out) {
			return out
		}
		log.Info("image compression failed, using original", zap.Error(err))
	}
	if IsDataImage(ref) {
		return ref
	}
	log.Warn("image is not usable, sending without it")
	return ""
}

func IsRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func IsDataImage(s string) bool {
	return strings.HasPrefix(s, "data:image/") && strings.Contains(s, ";base64,") &&
		!strings.HasSuffix(s, ";base64,")
}
