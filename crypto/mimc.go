package crypto

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// packFieldLimbSize is the number of bytes packed into one field element
// when hashing byte strings. Sixteen-byte limbs always fit below the
// BN254 scalar modulus, so the packing is injective and matches the
// in-circuit packing exactly.
const packFieldLimbSize = 16

// PackBytes splits data into 16-byte little-endian limbs and lifts each
// limb into a field element. Circuits recompute the same packing from
// byte variables before hashing.
func PackBytes(data []byte) []fr.Element {
	limbs := make([]fr.Element, 0, (len(data)+packFieldLimbSize-1)/packFieldLimbSize)
	for start := 0; start < len(data); start += packFieldLimbSize {
		end := start + packFieldLimbSize
		if end > len(data) {
			end = len(data)
		}
		limbs = append(limbs, leBytesToElement(data[start:end]))
	}
	return limbs
}

// MiMCCommitter commits to byte strings with MiMC over the BN254 scalar
// field. Every commitment folds in a random domain tag sampled at setup,
// so commitments from independent deployments never collide.
type MiMCCommitter struct {
	tag fr.Element
}

// NewMiMCCommitter samples fresh commitment parameters from rand.
func NewMiMCCommitter(rand io.Reader) (*MiMCCommitter, error) {
	tag, err := randomElement(rand)
	if err != nil {
		return nil, fmt.Errorf("sample domain tag: %w", err)
	}
	return &MiMCCommitter{tag: tag}, nil
}

// NewMiMCCommitterFromTag reconstructs a committer from a previously
// exported domain tag. Verifiers must use the same tag as the committing
// party.
func NewMiMCCommitterFromTag(tag []byte) (*MiMCCommitter, error) {
	var e fr.Element
	if err := e.SetBytesCanonical(tag); err != nil {
		return nil, fmt.Errorf("decode domain tag: %w", err)
	}
	return &MiMCCommitter{tag: e}, nil
}

// Tag returns the domain tag as canonical field element bytes.
func (m *MiMCCommitter) Tag() []byte {
	return m.tag.Marshal()
}

// Commit commits to data under the given opening. The commitment is
// MiMC(tag, limbs(data)..., opening).
func (m *MiMCCommitter) Commit(data []byte, opening Opening) (Commitment, error) {
	var o fr.Element
	if err := o.SetBytesCanonical(opening.Bytes()); err != nil {
		return nil, fmt.Errorf("decode opening: %w", err)
	}
	h := mimc.NewMiMC()
	writeElement(h, m.tag)
	for _, limb := range PackBytes(data) {
		writeElement(h, limb)
	}
	writeElement(h, o)
	return Commitment(h.Sum(nil)), nil
}

// VerifyOpening checks that commitment opens to data under opening.
func (m *MiMCCommitter) VerifyOpening(commitment Commitment, data []byte, opening Opening) (bool, error) {
	recomputed, err := m.Commit(data, opening)
	if err != nil {
		return false, err
	}
	return recomputed.Equal(commitment), nil
}

// MiMCPRF expands seeds with MiMC: each output block is the low 128 bits
// of MiMC(seed, point), rendered little-endian. Circuits reproduce the
// expansion by decomposing the in-circuit MiMC digest.
type MiMCPRF struct{}

// Evaluate produces one block of output for a single point.
func (MiMCPRF) Evaluate(seed Seed, point EvalPoint) ([]byte, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed size: %d", len(seed))
	}
	var p fr.Element
	if err := p.SetBytesCanonical(point.Bytes()); err != nil {
		return nil, fmt.Errorf("decode eval point: %w", err)
	}
	h := mimc.NewMiMC()
	writeElement(h, leBytesToElement(seed))
	writeElement(h, p)
	digest := h.Sum(nil)
	// Low 128 bits of the big-endian digest, reversed into little-endian.
	block := make([]byte, PRFBlockSize)
	for i := 0; i < PRFBlockSize; i++ {
		block[i] = digest[len(digest)-1-i]
	}
	return block, nil
}

// Expand concatenates blocks for the given points and truncates to n bytes.
func (f MiMCPRF) Expand(seed Seed, points []EvalPoint, n int) ([]byte, error) {
	if len(points)*PRFBlockSize < n {
		return nil, fmt.Errorf("%d eval points cannot cover %d bytes", len(points), n)
	}
	out := make([]byte, 0, len(points)*PRFBlockSize)
	for _, point := range points {
		block, err := f.Evaluate(seed, point)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
	}
	return out[:n], nil
}

// SequentialEvalPoints returns the evaluation points covering n output
// bytes for the epoch'th expansion of a seed. Both parties derive the
// same points by counting.
func SequentialEvalPoints(epoch uint64, n int) []EvalPoint {
	count := uint64((n + PRFBlockSize - 1) / PRFBlockSize)
	points := make([]EvalPoint, 0, count)
	for i := uint64(0); i < count; i++ {
		points = append(points, EvalPointFromUint64(epoch*count+i))
	}
	return points
}

// BindingDigest hashes the server's signing obligation into one field
// element: the client's randomness binder (commitment or Merkle root),
// the client's public key coordinates, and the server seed. The server
// signs this digest; clients and circuits recompute it independently.
func BindingDigest(binder []byte, clientPK PublicKey, seed Seed) ([]byte, error) {
	var b fr.Element
	if err := b.SetBytesCanonical(binder); err != nil {
		return nil, fmt.Errorf("decode binder: %w", err)
	}
	x, y, err := publicKeyCoordinates(clientPK)
	if err != nil {
		return nil, err
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed size: %d", len(seed))
	}
	h := mimc.NewMiMC()
	writeElement(h, b)
	writeElement(h, x)
	writeElement(h, y)
	writeElement(h, leBytesToElement(seed))
	return h.Sum(nil), nil
}

// DataDigest hashes an input value and its timestamp into one field
// element. The trusted environment signs this digest when it produces a
// reading.
func DataDigest(value uint64, time uint64) []byte {
	h := mimc.NewMiMC()
	writeElement(h, uint64ToElement(value))
	writeElement(h, uint64ToElement(time))
	return h.Sum(nil)
}

// writeElement writes a canonical field element into a MiMC hasher.
// Writing canonical bytes never fails.
func writeElement(h io.Writer, e fr.Element) {
	// mimc.Write only rejects non-canonical blocks, which Marshal
	// cannot produce.
	_, _ = h.Write(e.Marshal())
}
