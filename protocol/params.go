package protocol

import (
	"fmt"
	"io"
	"math/big"

	"github.com/PlasmaXD/VLDP/crypto"
)

// paramsCore carries the material every variant shares: the validated
// configuration, the encoded sampling probability, and the commitment
// domain tag both sides must agree on.
type paramsCore struct {
	Config   Config
	Gamma    float64
	GammaEnc []byte
	Tag      []byte
}

// setupCore validates gamma and the config and encodes gamma.
func setupCore(gamma float64, cfg Config, suite *crypto.Suite) (paramsCore, error) {
	if gamma <= 0 || gamma > 1 {
		return paramsCore{}, fmt.Errorf("gamma must be in (0,1], got %v", gamma)
	}
	enc, err := EncodeGamma(gamma, cfg.GammaBytes)
	if err != nil {
		return paramsCore{}, err
	}
	tag, err := suite.CommitmentTag()
	if err != nil {
		return paramsCore{}, err
	}
	return paramsCore{Config: cfg, Gamma: gamma, GammaEnc: enc, Tag: tag}, nil
}

// GammaInt returns the encoded gamma as an unsigned integer, the value
// circuit comparators work with.
func (p paramsCore) GammaInt() *big.Int {
	rev := make([]byte, len(p.GammaEnc))
	for i, b := range p.GammaEnc {
		rev[len(rev)-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}

// ParamsBase is the parameter bundle of the Base variant.
type ParamsBase struct {
	paramsCore
}

// SetupBase validates the configuration and encodes gamma for the Base
// variant.
func SetupBase(gamma float64, cfg Config, suite *crypto.Suite) (ParamsBase, error) {
	if err := cfg.Validate(); err != nil {
		return ParamsBase{}, fmt.Errorf("invalid config: %w", err)
	}
	core, err := setupCore(gamma, cfg, suite)
	if err != nil {
		return ParamsBase{}, err
	}
	return ParamsBase{paramsCore: core}, nil
}

// ParamsExpand is the parameter bundle of the Expand variant.
type ParamsExpand struct {
	paramsCore
}

// SetupExpand validates the configuration, including the tree depth, and
// encodes gamma for the Expand variant.
func SetupExpand(gamma float64, cfg Config, suite *crypto.Suite) (ParamsExpand, error) {
	if err := cfg.ValidateExpand(); err != nil {
		return ParamsExpand{}, fmt.Errorf("invalid config: %w", err)
	}
	core, err := setupCore(gamma, cfg, suite)
	if err != nil {
		return ParamsExpand{}, err
	}
	return ParamsExpand{paramsCore: core}, nil
}

// ParamsShuffle is the parameter bundle of the Shuffle variant.
type ParamsShuffle struct {
	paramsCore
}

// SetupShuffle validates the configuration and encodes gamma for the
// Shuffle variant.
func SetupShuffle(gamma float64, cfg Config, suite *crypto.Suite) (ParamsShuffle, error) {
	if err := cfg.Validate(); err != nil {
		return ParamsShuffle{}, fmt.Errorf("invalid config: %w", err)
	}
	core, err := setupCore(gamma, cfg, suite)
	if err != nil {
		return ParamsShuffle{}, err
	}
	return ParamsShuffle{paramsCore: core}, nil
}

// PRFChunks returns the number of PRF blocks needed to cover the
// per-sample randomness.
func (p paramsCore) PRFChunks() int {
	return (p.Config.RandomnessBytes + crypto.PRFBlockSize - 1) / crypto.PRFBlockSize
}

// EncodeGamma renders a probability as floor(gamma * (2^(8*width) - 1))
// in exactly width little-endian bytes. The encoding is deterministic:
// the computation runs in big.Float at twice the target precision, so
// platform float behavior never leaks into the circuit constants.
func EncodeGamma(gamma float64, width int) ([]byte, error) {
	if gamma <= 0 || gamma > 1 {
		return nil, fmt.Errorf("gamma must be in (0,1], got %v", gamma)
	}
	if width < 1 {
		return nil, fmt.Errorf("gamma width must be positive, got %d", width)
	}
	scale := new(big.Int).Lsh(big.NewInt(1), uint(8*width))
	scale.Sub(scale, big.NewInt(1))

	prec := uint(16 * width)
	if prec < 64 {
		prec = 64
	}
	g := new(big.Float).SetPrec(prec).SetFloat64(gamma)
	g.Mul(g, new(big.Float).SetPrec(prec).SetInt(scale))

	scaled, _ := g.Int(nil) // truncates toward zero, gamma is positive
	buf := make([]byte, width)
	be := scaled.FillBytes(make([]byte, width))
	for i := range be {
		buf[i] = be[width-1-i]
	}
	return buf, nil
}

// RandomEvalPoints draws n fresh public evaluation points for a Shuffle
// round.
func RandomEvalPoints(rand io.Reader, n int) ([]crypto.EvalPoint, error) {
	points := make([]crypto.EvalPoint, 0, n)
	for i := 0; i < n; i++ {
		p, err := crypto.NewRandomEvalPoint(rand)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}
