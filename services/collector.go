package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/PlasmaXD/VLDP/aggregator"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
	"github.com/PlasmaXD/VLDP/server"
)

// maxMessageBytes caps request bodies. Randomization messages are a few
// hundred bytes plus one proof; a megabyte leaves generous headroom for
// any backend.
const maxMessageBytes = 1 << 20

// VerifyResult is the JSON response of the randomize endpoints.
type VerifyResult struct {
	Accepted bool   `json:"accepted"`
	Value    uint64 `json:"value"`
}

// TallyResult is the JSON response of the histogram endpoint.
type TallyResult struct {
	Histogram []uint64 `json:"histogram"`
	Accepted  uint64   `json:"accepted"`
	Rejected  uint64   `json:"rejected"`
}

// RouteRegistrar is implemented by the collectors.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// collectorCore carries what every variant collector shares.
type collectorCore struct {
	log       *slog.Logger
	agg       *aggregator.Aggregator
	store     SampleStore
	lower     uint64
	upper     uint64
	skipProof bool
}

func newCollectorCore(log *slog.Logger, agg *aggregator.Aggregator, store SampleStore, lower, upper uint64, skipProof bool) (collectorCore, error) {
	if log == nil {
		return collectorCore{}, fmt.Errorf("logger cannot be nil")
	}
	if agg == nil {
		return collectorCore{}, fmt.Errorf("aggregator cannot be nil")
	}
	return collectorCore{log: log, agg: agg, store: store, lower: lower, upper: upper, skipProof: skipProof}, nil
}

// record tallies one verification outcome and optionally persists it.
func (c *collectorCore) record(ctx context.Context, contributor string, accepted bool, value uint64) error {
	var err error
	if contributor == "" {
		err = c.agg.RecordAnonymous(accepted, value)
	} else {
		err = c.agg.Record(contributor, accepted, value)
	}
	if err != nil {
		return err
	}
	if accepted && c.store != nil {
		if err := c.store.SaveSample(ctx, contributor, value); err != nil {
			return fmt.Errorf("persist sample: %w", err)
		}
	}
	return nil
}

func (c *collectorCore) handleTally(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, TallyResult{
		Histogram: c.agg.Histogram(),
		Accepted:  c.agg.Accepted(),
		Rejected:  c.agg.Rejected(),
	})
}

// BaseCollector serves the Base variant.
type BaseCollector struct {
	collectorCore
	srv *server.Base
}

// NewBaseCollector couples a Base server with an aggregator. The time
// window applies to every randomization this collector verifies; store
// may be nil. skipProof drops proof verification and is only meant for
// load testing against trusted clients.
func NewBaseCollector(log *slog.Logger, srv *server.Base, agg *aggregator.Aggregator, store SampleStore, lower, upper uint64, skipProof bool) (*BaseCollector, error) {
	core, err := newCollectorCore(log, agg, store, lower, upper, skipProof)
	if err != nil {
		return nil, err
	}
	return &BaseCollector{collectorCore: core, srv: srv}, nil
}

// RegisterRoutes registers the collector's HTTP routes.
func (c *BaseCollector) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Post("/genrand", c.handleGenRand)
	r.Post("/randomize", c.handleRandomize)
	r.Get("/tally", c.handleTally)
}

func (c *BaseCollector) handleGenRand(w http.ResponseWriter, r *http.Request) {
	handleGenRand(w, r, c.log, c.srv.GenerateRandomnessCreate)
}

func (c *BaseCollector) handleRandomize(w http.ResponseWriter, r *http.Request) {
	body, err := readMessage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := protocol.DecodeRandomizeBase(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accepted, value, err := c.srv.VerifiableRandomizationVerify(body, c.lower, c.upper, c.skipProof)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	contributor := aggregator.ContributorID(msg.ClientPublicKey)
	if err := c.record(r.Context(), contributor, accepted, value); err != nil {
		c.log.Error("failed to record sample", "contributor", contributor, "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	c.log.Info("randomization processed", "contributor", contributor, "accepted", accepted, "value", value)
	writeJSON(w, VerifyResult{Accepted: accepted, Value: value})
}

// ExpandCollector serves the Expand variant. The epoch index never
// travels inside the protocol message, so the randomize endpoint takes
// it as the epoch query parameter.
type ExpandCollector struct {
	collectorCore
	srv *server.Expand
}

// NewExpandCollector couples an Expand server with an aggregator.
func NewExpandCollector(log *slog.Logger, srv *server.Expand, agg *aggregator.Aggregator, store SampleStore, lower, upper uint64, skipProof bool) (*ExpandCollector, error) {
	core, err := newCollectorCore(log, agg, store, lower, upper, skipProof)
	if err != nil {
		return nil, err
	}
	return &ExpandCollector{collectorCore: core, srv: srv}, nil
}

// RegisterRoutes registers the collector's HTTP routes.
func (c *ExpandCollector) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Post("/genrand", c.handleGenRand)
	r.Post("/randomize", c.handleRandomize)
	r.Get("/tally", c.handleTally)
}

func (c *ExpandCollector) handleGenRand(w http.ResponseWriter, r *http.Request) {
	handleGenRand(w, r, c.log, c.srv.GenerateRandomnessCreate)
}

func (c *ExpandCollector) handleRandomize(w http.ResponseWriter, r *http.Request) {
	epoch, err := strconv.ParseUint(r.URL.Query().Get("epoch"), 10, 64)
	if err != nil {
		http.Error(w, "missing or malformed epoch parameter", http.StatusBadRequest)
		return
	}
	body, err := readMessage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	msg, err := protocol.DecodeRandomizeExpand(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accepted, value, err := c.srv.VerifiableRandomizationVerify(body, c.lower, c.upper, epoch, c.skipProof)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Each epoch is its own contribution.
	contributor := fmt.Sprintf("%s/%d", aggregator.ContributorID(msg.ClientPublicKey), epoch)
	if err := c.record(r.Context(), contributor, accepted, value); err != nil {
		c.log.Error("failed to record sample", "contributor", contributor, "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	c.log.Info("randomization processed", "contributor", contributor, "epoch", epoch, "accepted", accepted, "value", value)
	writeJSON(w, VerifyResult{Accepted: accepted, Value: value})
}

// ShuffleCollector serves the Shuffle variant for one collection round:
// the evaluation points are fixed at construction and published on
// /points, and randomization messages arrive anonymized.
type ShuffleCollector struct {
	collectorCore
	srv    *server.Shuffle
	points []crypto.EvalPoint
}

// NewShuffleCollector couples a Shuffle server with an aggregator for a
// round with the given evaluation points.
func NewShuffleCollector(log *slog.Logger, srv *server.Shuffle, agg *aggregator.Aggregator, store SampleStore, lower, upper uint64, points []crypto.EvalPoint, skipProof bool) (*ShuffleCollector, error) {
	core, err := newCollectorCore(log, agg, store, lower, upper, skipProof)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("evaluation points cannot be empty")
	}
	return &ShuffleCollector{collectorCore: core, srv: srv, points: points}, nil
}

// RegisterRoutes registers the collector's HTTP routes.
func (c *ShuffleCollector) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Recoverer)
	r.Post("/genrand", c.handleGenRand)
	r.Post("/randomize", c.handleRandomize)
	r.Get("/points", c.handlePoints)
	r.Get("/tally", c.handleTally)
}

func (c *ShuffleCollector) handleGenRand(w http.ResponseWriter, r *http.Request) {
	handleGenRand(w, r, c.log, c.srv.GenerateRandomnessCreate)
}

func (c *ShuffleCollector) handlePoints(w http.ResponseWriter, _ *http.Request) {
	encoded := make([]string, len(c.points))
	for i, p := range c.points {
		encoded[i] = hex.EncodeToString(p.Bytes())
	}
	writeJSON(w, encoded)
}

func (c *ShuffleCollector) handleRandomize(w http.ResponseWriter, r *http.Request) {
	body, err := readMessage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	accepted, value, err := c.srv.VerifiableRandomizationVerify(body, c.lower, c.upper, c.points, c.skipProof)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := c.record(r.Context(), "", accepted, value); err != nil {
		c.log.Error("failed to record sample", "err", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	c.log.Info("randomization processed", "accepted", accepted, "value", value)
	writeJSON(w, VerifyResult{Accepted: accepted, Value: value})
}

// Serve runs a collector on addr with request logging until ctx is
// cancelled.
func Serve(ctx context.Context, log *slog.Logger, addr string, reg RouteRegistrar) error {
	r := chi.NewRouter()
	reg.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         addr,
		Handler:      httplogger.LoggingMiddlewareSlog(log, r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("collector listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func handleGenRand(w http.ResponseWriter, r *http.Request, log *slog.Logger, create func([]byte) ([]byte, error)) {
	body, err := readMessage(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	resp, err := create(body)
	if err != nil {
		log.Warn("rejected genrand message", "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(resp)
}

func readMessage(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxMessageBytes {
		return nil, fmt.Errorf("message exceeds %d bytes", maxMessageBytes)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
