package circuit

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/protocol"
)

func discConfig() protocol.Config {
	return protocol.Config{
		InputBytes:      4,
		TimeBytes:       4,
		GammaBytes:      2,
		RandomnessBytes: 6,
		K:               8,
		MerkleDepth:     3,
	}
}

func contConfig() protocol.Config {
	cfg := discConfig()
	cfg.RealInput = true
	cfg.RandomnessBytes = 10
	return cfg
}

// discRandomness assembles a discretized randomness string from the coin
// segment and the uniform segment.
func discRandomness(bern uint16, uniform uint32) []byte {
	out := make([]byte, 6)
	binary.LittleEndian.PutUint16(out[0:2], bern)
	binary.LittleEndian.PutUint32(out[2:6], uniform)
	return out
}

// contRandomness additionally carries the rounding segment.
func contRandomness(bern uint16, uniform, round uint32) []byte {
	out := make([]byte, 10)
	binary.LittleEndian.PutUint16(out[0:2], bern)
	binary.LittleEndian.PutUint32(out[2:6], uniform)
	binary.LittleEndian.PutUint32(out[6:10], round)
	return out
}

func mustGamma(t *testing.T, gamma float64, width int) []byte {
	t.Helper()
	enc, err := protocol.EncodeGamma(gamma, width)
	require.NoError(t, err)
	return enc
}

func TestApplyCoin(t *testing.T) {
	cfg := discConfig()
	gammaHalf := mustGamma(t, 0.5, 2) // encodes 0x7FFF

	// Coin at most gamma: uniform branch.
	res, err := Apply(cfg, gammaHalf, discRandomness(0x7FFF, 0), 5)
	require.NoError(t, err)
	require.True(t, res.Bit)
	require.Equal(t, uint64(1), res.Value)

	// Coin above gamma: the true value passes through.
	res, err = Apply(cfg, gammaHalf, discRandomness(0x8000, 0), 5)
	require.NoError(t, err)
	require.False(t, res.Bit)
	require.Equal(t, uint64(5), res.Value)
}

func TestApplyBucketBoundaries(t *testing.T) {
	cfg := discConfig()
	gammaOne := mustGamma(t, 1.0, 2) // coin always hits
	gap := uint32(cfg.BoundaryGap().Uint64())

	cases := []struct {
		uniform uint32
		want    uint64
	}{
		{0, 1},
		{gap - 1, 1},
		// Buckets are half-open: the boundary itself belongs upward.
		{gap, 2},
		{2*gap - 1, 2},
		{2 * gap, 3},
		{7 * gap, 8},
		// The top bucket absorbs the division remainder.
		{8 * gap, 8},
		{^uint32(0), 8},
	}
	for _, tc := range cases {
		res, err := Apply(cfg, gammaOne, discRandomness(0, tc.uniform), 3)
		require.NoError(t, err)
		require.True(t, res.Bit)
		require.Equal(t, tc.want, res.Value, "uniform segment %d", tc.uniform)
		require.Equal(t, tc.want, res.UniformValue)
	}
}

func TestApplyContinuousUniformRange(t *testing.T) {
	cfg := contConfig()
	gammaOne := mustGamma(t, 1.0, 2)
	gap := uint32(cfg.BoundaryGap().Uint64()) // maxInput / (K+1)

	// The continuous mechanism lands on {0..K}.
	res, err := Apply(cfg, gammaOne, contRandomness(0, 0, 0), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Value)

	res, err = Apply(cfg, gammaOne, contRandomness(0, gap, 0), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), res.Value)

	res, err = Apply(cfg, gammaOne, contRandomness(0, ^uint32(0), 0), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(8), res.Value)
}

func TestApplyContinuousCast(t *testing.T) {
	cfg := contConfig()
	gammaHalf := mustGamma(t, 0.5, 2)
	coinMiss := uint16(0x8000)
	maxInput := cfg.MaxInput().Uint64()

	// x=1: multiplicand 0, remainder 8. The rounding segment decides
	// between 0 and 1, inclusive at the remainder.
	res, err := Apply(cfg, gammaHalf, contRandomness(coinMiss, 0, 8), 1)
	require.NoError(t, err)
	require.False(t, res.Bit)
	require.Equal(t, uint64(0), res.CastMultiplicand)
	require.Equal(t, int64(8), res.CastRemainder.Int64())
	require.Equal(t, uint64(1), res.Value)

	res, err = Apply(cfg, gammaHalf, contRandomness(coinMiss, 0, 9), 1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Value)

	// The maximum input casts exactly onto K when the rounding segment
	// is nonzero.
	res, err = Apply(cfg, gammaHalf, contRandomness(coinMiss, 0, 1), maxInput)
	require.NoError(t, err)
	require.Equal(t, cfg.K, res.CastMultiplicand)
	require.Equal(t, int64(0), res.CastRemainder.Int64())
	require.Equal(t, cfg.K, res.Value)

	// Midpoint: check the division identity rather than hardcoding the
	// trace values.
	x := maxInput / 2
	res, err = Apply(cfg, gammaHalf, contRandomness(coinMiss, 0, ^uint32(0)), x)
	require.NoError(t, err)
	identity := new(big.Int).Mul(new(big.Int).SetUint64(res.CastMultiplicand), cfg.MaxInput())
	identity.Add(identity, res.CastRemainder)
	require.Zero(t, identity.Cmp(new(big.Int).SetUint64(x*uint64(cfg.K))))
}

func TestApplyRejectsBadShapes(t *testing.T) {
	cfg := discConfig()
	gammaOne := mustGamma(t, 1.0, 2)

	_, err := Apply(cfg, gammaOne, make([]byte, 5), 1)
	require.Error(t, err)
	_, err = Apply(cfg, []byte{0xFF}, make([]byte, 6), 1)
	require.Error(t, err)

	// Discretized inputs live in 1..K.
	_, err = Apply(cfg, gammaOne, make([]byte, 6), 0)
	require.Error(t, err)
	_, err = Apply(cfg, gammaOne, make([]byte, 6), cfg.K+1)
	require.Error(t, err)

	// Continuous inputs are bounded by the representable maximum.
	cont := contConfig()
	cont.InputBytes = 4
	_, err = Apply(cont, gammaOne, make([]byte, 10), 1<<33)
	require.Error(t, err)
}

func TestXorBytes(t *testing.T) {
	out, err := XorBytes([]byte{0xF0, 0x0F}, []byte{0xFF, 0xFF})
	require.NoError(t, err)
	require.Equal(t, []byte{0x0F, 0xF0}, out)

	_, err = XorBytes([]byte{1}, []byte{1, 2})
	require.Error(t, err)
}
