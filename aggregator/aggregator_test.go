package aggregator

import (
	"crypto/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/testutil"
)

func TestRecordAndHistogram(t *testing.T) {
	agg, err := New(testutil.DiscreteConfig())
	require.NoError(t, err)

	require.NoError(t, agg.Record("alice", true, 3))
	require.NoError(t, agg.Record("bob", true, 3))
	require.NoError(t, agg.Record("carol", true, 7))
	require.NoError(t, agg.Record("dave", false, ^uint64(0)))

	hist := agg.Histogram()
	require.Equal(t, uint64(2), hist[3])
	require.Equal(t, uint64(1), hist[7])
	require.Equal(t, uint64(3), agg.Accepted())
	require.Equal(t, uint64(1), agg.Rejected())
}

func TestRecordRejectsDuplicateContributor(t *testing.T) {
	agg, err := New(testutil.DiscreteConfig())
	require.NoError(t, err)

	require.NoError(t, agg.Record("alice", true, 3))
	require.Error(t, agg.Record("alice", true, 4))

	// The duplicate must not have been counted.
	require.Equal(t, uint64(1), agg.Accepted())
}

func TestRecordRejectsOutOfDomain(t *testing.T) {
	cfg := testutil.DiscreteConfig()
	agg, err := New(cfg)
	require.NoError(t, err)

	require.Error(t, agg.RecordAnonymous(true, 0))
	require.Error(t, agg.RecordAnonymous(true, cfg.K+2))
	require.NoError(t, agg.RecordAnonymous(true, cfg.K))
}

func TestContinuousDomainIncludesOverflowBucket(t *testing.T) {
	cfg := testutil.ContinuousConfig()
	agg, err := New(cfg)
	require.NoError(t, err)

	require.NoError(t, agg.RecordAnonymous(true, 0))
	require.NoError(t, agg.RecordAnonymous(true, cfg.K+1))
	require.Error(t, agg.RecordAnonymous(true, cfg.K+2))
}

func TestEstimateFrequenciesDebiases(t *testing.T) {
	cfg := testutil.DiscreteConfig()
	agg, err := New(cfg)
	require.NoError(t, err)

	// All mass on one bucket: the debiased estimate must exceed the raw
	// share for that bucket and go negative for the untouched ones.
	for i := 0; i < 100; i++ {
		require.NoError(t, agg.RecordAnonymous(true, 3))
	}
	est, err := agg.EstimateFrequencies(0.5)
	require.NoError(t, err)
	require.InDelta(t, (1.0-0.5/8.0)/0.5, est[3], 1e-9)
	require.Less(t, est[4], 0.0)

	_, err = agg.EstimateFrequencies(1)
	require.Error(t, err)
}

func TestResetClearsEverything(t *testing.T) {
	agg, err := New(testutil.DiscreteConfig())
	require.NoError(t, err)
	require.NoError(t, agg.Record("alice", true, 3))
	agg.Reset()

	require.Equal(t, uint64(0), agg.Accepted())
	require.NoError(t, agg.Record("alice", true, 3))
}

func TestConcurrentRecording(t *testing.T) {
	agg, err := New(testutil.DiscreteConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = agg.RecordAnonymous(true, 5)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, uint64(3200), agg.Histogram()[5])
}

func TestContributorIDIsStable(t *testing.T) {
	pub, _, err := crypto.EdDSA{}.GenerateKey(rand.Reader)
	require.NoError(t, err)

	require.Equal(t, ContributorID(pub), ContributorID(pub))
	require.Len(t, ContributorID(pub), 16)

	other, _, err := crypto.EdDSA{}.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, ContributorID(pub), ContributorID(other))
}
