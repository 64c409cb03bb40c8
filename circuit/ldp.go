package circuit

import (
	"fmt"
	"math/big"

	"github.com/PlasmaXD/VLDP/protocol"
)

// Result is the output of the randomization mechanism together with the
// intermediate values the circuits take as auxiliary witnesses.
type Result struct {
	// Value is the mechanism output.
	Value uint64
	// Bit reports whether the uniform branch was taken.
	Bit bool
	// UniformValue is the histogram bucket drawn from the randomness,
	// whether or not the uniform branch was taken.
	UniformValue uint64
	// CastMultiplicand and CastRemainder are the fixed-point division
	// trace of the continuous cast. Zero in discretized mode.
	CastMultiplicand uint64
	CastRemainder    *big.Int
}

// Apply runs the randomization mechanism natively. The circuits
// constrain exactly this computation; provers feed the returned
// intermediates into the witness.
//
// The randomness splits into segments: the first GammaBytes draw the
// biased coin, the next InputBytes draw the uniform bucket, and in
// continuous mode a final InputBytes segment draws the rounding bit of
// the cast onto {0..K}.
func Apply(cfg protocol.Config, gammaEnc []byte, randomness []byte, trueValue uint64) (Result, error) {
	if len(gammaEnc) != cfg.GammaBytes {
		return Result{}, fmt.Errorf("gamma encoding has %d bytes, want %d", len(gammaEnc), cfg.GammaBytes)
	}
	if len(randomness) != cfg.RandomnessBytes {
		return Result{}, fmt.Errorf("randomness has %d bytes, want %d", len(randomness), cfg.RandomnessBytes)
	}
	maxInput := cfg.MaxInput()
	trueValueInt := new(big.Int).SetUint64(trueValue)
	if cfg.RealInput {
		if trueValueInt.Cmp(maxInput) > 0 {
			return Result{}, fmt.Errorf("input %d exceeds maximum", trueValue)
		}
	} else if trueValue < 1 || trueValue > cfg.K {
		return Result{}, fmt.Errorf("input %d outside buckets 1..%d", trueValue, cfg.K)
	}

	// Biased coin: randomness <= gamma takes the uniform branch.
	bern := leInt(randomness[:cfg.GammaBytes])
	bit := bern.Cmp(leInt(gammaEnc)) <= 0

	// Uniform bucket.
	uniformSegment := leInt(randomness[cfg.GammaBytes : cfg.GammaBytes+cfg.InputBytes])
	v := new(big.Int).Div(uniformSegment, cfg.BoundaryGap()).Uint64()
	var uniform uint64
	if cfg.RealInput {
		uniform = min(v, cfg.K)
	} else {
		uniform = min(v, cfg.K-1) + 1
	}

	res := Result{
		Bit:           bit,
		UniformValue:  uniform,
		CastRemainder: big.NewInt(0),
	}

	if cfg.RealInput {
		// Randomized-rounding cast of the input onto {0..K}.
		timesK := new(big.Int).Mul(trueValueInt, new(big.Int).SetUint64(cfg.K))
		multiplicand := new(big.Int).Div(timesK, maxInput)
		remainder := new(big.Int).Sub(timesK, new(big.Int).Mul(multiplicand, maxInput))
		res.CastMultiplicand = multiplicand.Uint64()
		res.CastRemainder = remainder

		roundSegment := leInt(randomness[cfg.GammaBytes+cfg.InputBytes:])
		cast := res.CastMultiplicand
		if roundSegment.Cmp(remainder) <= 0 {
			cast++
		}
		if bit {
			res.Value = uniform
		} else {
			res.Value = cast
		}
		return res, nil
	}

	if bit {
		res.Value = uniform
	} else {
		res.Value = trueValue
	}
	return res, nil
}

// XorBytes combines the two randomness contributions bytewise.
func XorBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("length mismatch: %d != %d", len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}

func leInt(data []byte) *big.Int {
	rev := make([]byte, len(data))
	for i, b := range data {
		rev[len(data)-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}
