// Package testutil provides shared fixtures for testing the VLDP
// protocol stack: canonical configurations, suites, trusted-environment
// readings, and stub proof-system keys for tests that skip proving.
package testutil

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// DiscreteConfig returns a small discretized-mechanism configuration
// shared by protocol-level tests.
func DiscreteConfig() protocol.Config {
	return protocol.Config{
		InputBytes:      4,
		TimeBytes:       4,
		GammaBytes:      2,
		RandomnessBytes: 6,
		K:               8,
		MerkleDepth:     3,
	}
}

// ContinuousConfig returns the continuous-mechanism counterpart of
// DiscreteConfig.
func ContinuousConfig() protocol.Config {
	cfg := DiscreteConfig()
	cfg.RealInput = true
	cfg.RandomnessBytes = 10
	return cfg
}

// Suite builds the default suite over the given proof system, failing
// the test on error.
func Suite(t *testing.T, proofs crypto.ProofSystem) *crypto.Suite {
	t.Helper()
	suite, err := crypto.NewSuite(proofs, rand.Reader)
	require.NoError(t, err)
	return suite
}

// Environment models the trusted environment that produces signed
// readings for a client.
type Environment struct {
	PublicKey  crypto.PublicKey
	privateKey crypto.PrivateKey
	scheme     crypto.SignatureScheme
}

// NewEnvironment generates a trusted-environment keypair.
func NewEnvironment(t *testing.T, scheme crypto.SignatureScheme) *Environment {
	t.Helper()
	pub, priv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return &Environment{PublicKey: pub, privateKey: priv, scheme: scheme}
}

// Reading signs a (value, time) pair the way a trusted environment
// would.
func (e *Environment) Reading(t *testing.T, value, time uint64) crypto.Signature {
	t.Helper()
	sig, err := e.scheme.Sign(e.privateKey, crypto.DataDigest(value, time))
	require.NoError(t, err)
	return sig
}

// StubKey satisfies both crypto.ProvingKey and crypto.VerifyingKey
// without holding real key material. Only tests that skip proving may
// use it.
type StubKey struct{}

// WriteTo writes nothing.
func (StubKey) WriteTo(io.Writer) (int64, error) { return 0, nil }
