package protocol

import (
	"fmt"
	"math/big"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc"
)

// Config fixes the byte widths and the LDP mechanism parameters for one
// deployment. Clients and servers must agree on the exact same Config;
// it is baked into the circuit at key generation.
type Config struct {
	// InputBytes is the byte width of input values and of each
	// randomness segment feeding the mechanism.
	InputBytes int
	// TimeBytes is the byte width of timestamps, bounding the time
	// comparators. At most 8; timestamps travel as uint64.
	TimeBytes int
	// GammaBytes is the byte width of the encoded sampling probability.
	GammaBytes int
	// RandomnessBytes is the total per-sample randomness width.
	RandomnessBytes int
	// K is the number of histogram buckets.
	K uint64
	// RealInput selects the continuous mechanism (values in [0, max]
	// cast onto {0..K}) instead of the discretized one (values already
	// in {1..K}).
	RealInput bool
	// MerkleDepth is the commitment tree depth for the Expand variant;
	// a batch holds 2^MerkleDepth epochs. Ignored by Base and Shuffle.
	MerkleDepth int
}

// Validate checks the arithmetic relations between the widths. An
// invalid Config is a deployment error, so validation failures are
// returned as errors rather than booleans.
func (c Config) Validate() error {
	if c.InputBytes < 1 {
		return fmt.Errorf("input width must be positive, got %d", c.InputBytes)
	}
	if c.TimeBytes < 1 || c.TimeBytes > 8 {
		return fmt.Errorf("time width must be in [1,8], got %d", c.TimeBytes)
	}
	if c.GammaBytes < 1 {
		return fmt.Errorf("gamma width must be positive, got %d", c.GammaBytes)
	}
	if c.K < 2 {
		return fmt.Errorf("bucket count must be at least 2, got %d", c.K)
	}
	if want := c.expectedRandomnessBytes(); c.RandomnessBytes != want {
		return fmt.Errorf("randomness width %d does not match widths (want %d)", c.RandomnessBytes, want)
	}
	if bits.Len64(c.K) > 8*c.InputBytes {
		return fmt.Errorf("bucket count %d does not fit %d input bytes", c.K, c.InputBytes)
	}
	// Comparators pack byte segments into single field elements with one
	// bit of headroom. Widths close to the field size are unsound.
	fieldBits := ecc.BN254.ScalarField().BitLen()
	for _, w := range []int{c.InputBytes, c.TimeBytes, c.GammaBytes} {
		if 8*w+2 > fieldBits {
			return fmt.Errorf("width %d bytes does not fit the scalar field", w)
		}
	}
	return nil
}

// ValidateExpand additionally checks the Expand-only fields.
func (c Config) ValidateExpand() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.MerkleDepth < 1 {
		return fmt.Errorf("merkle depth must be positive, got %d", c.MerkleDepth)
	}
	return nil
}

func (c Config) expectedRandomnessBytes() int {
	if c.RealInput {
		return 2*c.InputBytes + c.GammaBytes
	}
	return c.InputBytes + c.GammaBytes
}

// MaxInput returns the largest representable input value,
// 2^(8*InputBytes) - 1.
func (c Config) MaxInput() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), uint(8*c.InputBytes))
	return max.Sub(max, big.NewInt(1))
}

// BoundaryGap returns the bucket width of the uniform branch:
// MaxInput/K for the discretized mechanism, MaxInput/(K+1) for the
// continuous one.
func (c Config) BoundaryGap() *big.Int {
	div := new(big.Int).SetUint64(c.K)
	if c.RealInput {
		div.SetUint64(c.K + 1)
	}
	return new(big.Int).Div(c.MaxInput(), div)
}

// Epochs returns the number of samples covered by one Expand batch.
func (c Config) Epochs() int {
	return 1 << c.MerkleDepth
}
