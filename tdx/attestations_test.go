package tdx

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
)

func TestDummyProviderEnvironmentKey(t *testing.T) {
	scheme := crypto.EdDSA{}
	pk, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	p := &DummyProvider{}
	quote, err := AttestEnvironmentKey(p, pk)
	require.NoError(t, err)

	measurements, err := VerifyEnvironmentKey(p, quote, pk)
	require.NoError(t, err)
	require.Len(t, measurements, 5)

	// A quote never verifies against a different key.
	otherPK, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = VerifyEnvironmentKey(p, quote, otherPK)
	require.Error(t, err)
}

func TestReportDataDeterministic(t *testing.T) {
	scheme := crypto.EdDSA{}
	pk, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	require.Equal(t, ReportDataForKey(pk), ReportDataForKey(pk))

	otherPK, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NotEqual(t, ReportDataForKey(pk), ReportDataForKey(otherPK))
}
