package protocol

import (
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
)

func validConfig() Config {
	return Config{
		InputBytes:      4,
		TimeBytes:       4,
		GammaBytes:      2,
		RandomnessBytes: 6,
		K:               8,
		MerkleDepth:     3,
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.RealInput = true
	require.Error(t, cfg.Validate(), "continuous mode needs a second input segment")
	cfg.RandomnessBytes = 10
	require.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.K = 1
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.K = 1 << 40
	require.Error(t, cfg.Validate(), "buckets must fit the input width")

	cfg = validConfig()
	cfg.TimeBytes = 9
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.RandomnessBytes = 7
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.InputBytes = 40
	cfg.RandomnessBytes = 42
	require.Error(t, cfg.Validate(), "widths must fit the scalar field")

	cfg = validConfig()
	cfg.MerkleDepth = 0
	require.NoError(t, cfg.Validate())
	require.Error(t, cfg.ValidateExpand())
}

func TestConfigDerivedQuantities(t *testing.T) {
	cfg := validConfig()
	require.Equal(t, uint64(0xFFFFFFFF), cfg.MaxInput().Uint64())
	require.Equal(t, uint64(0xFFFFFFFF/8), cfg.BoundaryGap().Uint64())
	require.Equal(t, 8, cfg.Epochs())

	cfg.RealInput = true
	cfg.RandomnessBytes = 10
	require.Equal(t, uint64(0xFFFFFFFF/9), cfg.BoundaryGap().Uint64())
}

func TestEncodeGamma(t *testing.T) {
	enc, err := EncodeGamma(1.0, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xFF}, enc)

	enc, err = EncodeGamma(0.5, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0x7F}, enc)

	enc, err = EncodeGamma(0.5, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7F}, enc)

	// Deterministic across calls.
	a, err := EncodeGamma(0.3, 8)
	require.NoError(t, err)
	b, err := EncodeGamma(0.3, 8)
	require.NoError(t, err)
	require.Equal(t, a, b)

	_, err = EncodeGamma(0, 2)
	require.Error(t, err)
	_, err = EncodeGamma(1.5, 2)
	require.Error(t, err)
	_, err = EncodeGamma(-0.25, 2)
	require.Error(t, err)
}

func TestSetupValidatesGamma(t *testing.T) {
	suite, err := crypto.NewSuite(crypto.NewGroth16(), rand.Reader)
	require.NoError(t, err)

	_, err = SetupBase(0, validConfig(), suite)
	require.Error(t, err)
	_, err = SetupBase(1.01, validConfig(), suite)
	require.Error(t, err)

	params, err := SetupBase(0.25, validConfig(), suite)
	require.NoError(t, err)
	require.Len(t, params.GammaEnc, validConfig().GammaBytes)
	require.Equal(t, 1, params.PRFChunks())

	// gamma=1 encodes to all ones: the bernoulli comparison always
	// samples the uniform branch.
	params, err = SetupBase(1.0, validConfig(), suite)
	require.NoError(t, err)
	max := new(big.Int).Lsh(big.NewInt(1), uint(8*validConfig().GammaBytes))
	max.Sub(max, big.NewInt(1))
	require.Zero(t, params.GammaInt().Cmp(max))
}

func TestErrSessionStateIsSentinel(t *testing.T) {
	err := ErrSessionState
	require.True(t, errors.Is(err, ErrSessionState))

	var decodeErr *DecodeError
	require.False(t, errors.As(err, &decodeErr))
}
