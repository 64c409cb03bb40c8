package circuit

import (
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/PlasmaXD/VLDP/protocol"
)

// ldpGadget constrains the randomization mechanism in-circuit. It is
// shared by all three variants; only the provenance of the randomness
// bytes differs around it.
type ldpGadget struct {
	cfg      protocol.Config
	gamma    *big.Int
	maxInput *big.Int
	gap      *big.Int
}

func newLDPGadget(cfg protocol.Config, gamma *big.Int) ldpGadget {
	return ldpGadget{
		cfg:      cfg,
		gamma:    gamma,
		maxInput: cfg.MaxInput(),
		gap:      cfg.BoundaryGap(),
	}
}

// ldpAux bundles the witness variables of the mechanism: the signed
// input and the intermediates from the native Apply trace.
type ldpAux struct {
	TrueValue        frontend.Variable
	UniformValue     frontend.Variable
	CastMultiplicand frontend.Variable
	CastRemainder    frontend.Variable
}

// apply constrains one mechanism evaluation over the given randomness
// bit matrix. It returns the output value and the AND of the bucket
// boundary checks; the caller folds the latter into its validity
// conjunction and binds the former to the public value.
func (g ldpGadget) apply(api frontend.API, randomness [][]frontend.Variable, aux ldpAux) (frontend.Variable, frontend.Variable) {
	gb, ib := g.cfg.GammaBytes, g.cfg.InputBytes
	k := new(big.Int).SetUint64(g.cfg.K)

	// Biased coin from the first segment.
	bern := packBytesLE(api, randomness, 0, gb)
	ldpBit := isLessOrEqual(api, bern, g.gamma, 8*gb)

	// The claimed bucket must be the one whose boundaries enclose the
	// uniform segment. The top bucket absorbs the division remainder up
	// to the maximum representable value.
	uniform := packBytesLE(api, randomness, gb, gb+ib)
	w := aux.UniformValue
	var lower, computedUpper frontend.Variable
	if g.cfg.RealInput {
		api.AssertIsLessOrEqual(w, k)
		lower = api.Mul(w, g.gap)
		computedUpper = api.Mul(api.Add(w, 1), g.gap)
	} else {
		api.AssertIsLessOrEqual(api.Sub(w, 1), new(big.Int).Sub(k, big.NewInt(1)))
		lower = api.Mul(api.Sub(w, 1), g.gap)
		computedUpper = api.Mul(w, g.gap)
	}
	isTop := api.IsZero(api.Sub(w, k))
	upper := api.Select(isTop, g.maxInput, computedUpper)
	lowerOK := isLessOrEqual(api, lower, uniform, 8*ib+1)
	upperOK := isLess(api, uniform, upper, 8*ib+1)
	boundsOK := api.And(lowerOK, upperOK)

	// Non-private branch: the true value, cast onto the buckets by
	// randomized rounding in continuous mode.
	var nonPrivate frontend.Variable
	if g.cfg.RealInput {
		api.ToBinary(aux.TrueValue, 8*ib)
		timesK := api.Mul(aux.TrueValue, k)
		api.AssertIsLessOrEqual(aux.CastMultiplicand, k)
		api.AssertIsLessOrEqual(aux.CastRemainder, new(big.Int).Sub(g.maxInput, big.NewInt(1)))
		api.AssertIsEqual(timesK, api.Add(api.Mul(aux.CastMultiplicand, g.maxInput), aux.CastRemainder))
		roundRand := packBytesLE(api, randomness, gb+ib, gb+2*ib)
		roundBit := isLessOrEqual(api, roundRand, aux.CastRemainder, 8*ib)
		nonPrivate = api.Add(aux.CastMultiplicand, roundBit)
	} else {
		// The cast trace is unused; pin it so every witness has one
		// canonical value.
		api.AssertIsEqual(aux.CastMultiplicand, 0)
		api.AssertIsEqual(aux.CastRemainder, 0)
		nonPrivate = aux.TrueValue
	}

	value := api.Select(ldpBit, w, nonPrivate)
	return value, boundsOK
}
