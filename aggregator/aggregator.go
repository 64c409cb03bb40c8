// Package aggregator tallies verified LDP samples into a plaintext
// frequency histogram.
//
// The tally is deliberately naive: values arrive already randomized and
// verified, so the aggregator only counts them, deduplicates identified
// contributors, and debiases the final histogram. Anything stronger
// (secure aggregation, streaming estimators) is out of scope.
package aggregator

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Aggregator accumulates accepted LDP values for one collection window.
// It is safe for concurrent use.
type Aggregator struct {
	cfg protocol.Config

	mu       sync.RWMutex
	counts   []uint64        // histogram over the value domain
	seen     map[string]bool // contributor IDs already counted
	accepted uint64
	rejected uint64
}

// New creates an empty aggregator for the given deployment
// configuration. The histogram covers {1..K} for the discretized
// mechanism and {0..K+1} for the continuous one; the extra continuous
// bucket absorbs the mechanism's rounding overflow at the domain
// maximum.
func New(cfg protocol.Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Aggregator{
		cfg:    cfg,
		counts: make([]uint64, cfg.K+2),
		seen:   make(map[string]bool),
	}, nil
}

// ContributorID derives a stable identifier from a contributor's public
// key.
func ContributorID(pk crypto.PublicKey) string {
	sum := sha3.Sum256(pk.Bytes())
	return fmt.Sprintf("%x", sum[:8])
}

// Record counts one verification outcome from an identified contributor
// (Base and Expand variants). Rejected samples are tallied but never
// enter the histogram. A contributor that was already counted is an
// error; in Expand each epoch forms its own contribution, so callers
// append the epoch to the ID.
func (a *Aggregator) Record(contributor string, accepted bool, value uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seen[contributor] {
		return fmt.Errorf("contributor %s already counted", contributor)
	}
	a.seen[contributor] = true
	return a.record(accepted, value)
}

// RecordAnonymous counts one verification outcome without a contributor
// identity (Shuffle variant; deduplication happens upstream in the
// shuffler).
func (a *Aggregator) RecordAnonymous(accepted bool, value uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.record(accepted, value)
}

func (a *Aggregator) record(accepted bool, value uint64) error {
	if !accepted {
		a.rejected++
		return nil
	}
	if value >= uint64(len(a.counts)) {
		return fmt.Errorf("value %d outside histogram domain", value)
	}
	if !a.cfg.RealInput && value == 0 {
		return errors.New("value 0 outside discretized domain")
	}
	a.counts[value]++
	a.accepted++
	return nil
}

// Histogram returns a copy of the current counts, indexed by value.
func (a *Aggregator) Histogram() []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]uint64, len(a.counts))
	copy(out, a.counts)
	return out
}

// Accepted returns the number of samples in the histogram.
func (a *Aggregator) Accepted() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accepted
}

// Rejected returns the number of samples that failed verification.
func (a *Aggregator) Rejected() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rejected
}

// EstimateFrequencies debiases the histogram for the sampling
// probability gamma under which the values were randomized: an observed
// report equals the true value with probability 1-gamma and is uniform
// otherwise. Estimates can be slightly negative on small samples; that
// is expected and callers should not clamp before normalizing.
func (a *Aggregator) EstimateFrequencies(gamma float64) ([]float64, error) {
	if gamma <= 0 || gamma >= 1 {
		return nil, fmt.Errorf("gamma must be in (0,1) to debias, got %v", gamma)
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.accepted == 0 {
		return nil, errors.New("no accepted samples")
	}
	buckets := float64(a.cfg.K)
	if a.cfg.RealInput {
		buckets = float64(a.cfg.K + 1)
	}
	n := float64(a.accepted)
	out := make([]float64, len(a.counts))
	for v, c := range a.counts {
		observed := float64(c) / n
		out[v] = (observed - gamma/buckets) / (1 - gamma)
	}
	return out, nil
}

// Reset clears the tally for a new collection window.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = make([]uint64, len(a.counts))
	a.seen = make(map[string]bool)
	a.accepted = 0
	a.rejected = 0
}
