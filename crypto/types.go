package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Sizes of the fixed-width values exchanged by the protocol, in bytes.
const (
	// PublicKeySize is the size of a compressed EdDSA public key.
	PublicKeySize = 32
	// SignatureSize is the size of an EdDSA signature (compressed R plus S).
	SignatureSize = 64
	// CommitmentSize is the size of a commitment, one canonical field element.
	CommitmentSize = 32
	// OpeningSize is the size of a commitment opening, one canonical field element.
	OpeningSize = 32
	// SeedSize is the size of a PRF seed. A seed packs into a single field
	// element with headroom, which keeps native and in-circuit PRF
	// evaluation identical.
	SeedSize = 16
	// MerkleRootSize is the size of a Merkle tree root, one canonical field element.
	MerkleRootSize = 32
	// EvalPointSize is the size of a PRF evaluation point, one canonical field element.
	EvalPointSize = 32
	// PRFBlockSize is the number of randomness bytes produced per PRF
	// evaluation, the low 128 bits of a MiMC digest.
	PRFBlockSize = 16
)

// PublicKey represents a compressed EdDSA public key on the BN254 twisted
// Edwards curve. Public keys identify clients and servers and verify
// signatures both natively and inside circuits.
type PublicKey []byte

// NewPublicKeyFromBytes creates a PublicKey from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewPublicKeyFromBytes(data []byte) PublicKey {
	pk := make([]byte, len(data))
	copy(pk, data)
	return PublicKey(pk)
}

// NewPublicKeyFromString creates a PublicKey from a hex-encoded string.
func NewPublicKeyFromString(data string) (PublicKey, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return PublicKey{}, err
	}
	return NewPublicKeyFromBytes(rawBytes), nil
}

// Bytes returns the public key as a byte slice.
func (pk PublicKey) Bytes() []byte {
	return pk
}

// Equal compares two public keys for equality.
func (pk PublicKey) Equal(other PublicKey) bool {
	return len(pk) == len(other) && subtle.ConstantTimeCompare(pk, other) == 1
}

// String returns a hex-encoded string representation of the public key.
// This is useful for logging and using as a map key.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk)
}

// PrivateKey represents an EdDSA private key. Private keys should be kept
// secure and are only used by their owners.
type PrivateKey []byte

// NewPrivateKeyFromBytes creates a PrivateKey from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewPrivateKeyFromBytes(data []byte) PrivateKey {
	sk := make([]byte, len(data))
	copy(sk, data)
	return PrivateKey(sk)
}

// Bytes returns the private key as a byte slice.
// This method should be used carefully as it exposes sensitive key material.
func (sk PrivateKey) Bytes() []byte {
	return sk
}

// Signature represents an EdDSA signature. Signatures authenticate the
// server's randomness contribution and the client's input value.
type Signature []byte

// NewSignature creates a Signature from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewSignature(data []byte) Signature {
	sig := make([]byte, len(data))
	copy(sig, data)
	return Signature(sig)
}

// Bytes returns the signature as a byte slice.
func (s Signature) Bytes() []byte {
	return []byte(s)
}

// String returns a hex-encoded string representation of the signature.
func (s Signature) String() string {
	return hex.EncodeToString(s.Bytes())
}

// Commitment represents a hiding, binding commitment to client randomness,
// encoded as one canonical field element.
type Commitment []byte

// NewCommitmentFromBytes creates a Commitment from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewCommitmentFromBytes(data []byte) Commitment {
	c := make([]byte, len(data))
	copy(c, data)
	return Commitment(c)
}

// Bytes returns the commitment as a byte slice.
func (c Commitment) Bytes() []byte {
	return c
}

// Equal compares two commitments for equality.
func (c Commitment) Equal(other Commitment) bool {
	return len(c) == len(other) && subtle.ConstantTimeCompare(c, other) == 1
}

// String returns a hex-encoded string representation of the commitment.
func (c Commitment) String() string {
	return hex.EncodeToString(c)
}

// Opening represents the randomness used to open a commitment, encoded as
// one canonical field element.
type Opening []byte

// NewOpeningFromBytes creates an Opening from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewOpeningFromBytes(data []byte) Opening {
	o := make([]byte, len(data))
	copy(o, data)
	return Opening(o)
}

// NewRandomOpening samples a fresh opening from the given randomness source.
func NewRandomOpening(rand io.Reader) (Opening, error) {
	e, err := randomElement(rand)
	if err != nil {
		return nil, fmt.Errorf("sample opening: %w", err)
	}
	return Opening(e.Marshal()), nil
}

// Bytes returns the opening as a byte slice.
func (o Opening) Bytes() []byte {
	return o
}

// Seed represents a short PRF seed that expands into protocol randomness.
type Seed []byte

// NewSeedFromBytes creates a Seed from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewSeedFromBytes(data []byte) Seed {
	s := make([]byte, len(data))
	copy(s, data)
	return Seed(s)
}

// NewRandomSeed samples a fresh seed from the given randomness source.
func NewRandomSeed(rand io.Reader) (Seed, error) {
	s := make([]byte, SeedSize)
	if _, err := io.ReadFull(rand, s); err != nil {
		return nil, fmt.Errorf("sample seed: %w", err)
	}
	return Seed(s), nil
}

// Bytes returns the seed as a byte slice.
func (s Seed) Bytes() []byte {
	return s
}

// Xor combines two seeds bytewise. Both parties contribute a seed so that
// neither controls the expanded randomness alone.
func (s Seed) Xor(other Seed) (Seed, error) {
	if len(s) != len(other) {
		return nil, fmt.Errorf("seed length mismatch: %d != %d", len(s), len(other))
	}
	out := make([]byte, len(s))
	for i := range s {
		out[i] = s[i] ^ other[i]
	}
	return Seed(out), nil
}

// MerkleRoot represents the root of a commitment Merkle tree, encoded as
// one canonical field element.
type MerkleRoot []byte

// NewMerkleRootFromBytes creates a MerkleRoot from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewMerkleRootFromBytes(data []byte) MerkleRoot {
	r := make([]byte, len(data))
	copy(r, data)
	return MerkleRoot(r)
}

// Bytes returns the root as a byte slice.
func (r MerkleRoot) Bytes() []byte {
	return r
}

// Equal compares two roots for equality.
func (r MerkleRoot) Equal(other MerkleRoot) bool {
	return len(r) == len(other) && subtle.ConstantTimeCompare(r, other) == 1
}

// String returns a hex-encoded string representation of the root.
func (r MerkleRoot) String() string {
	return hex.EncodeToString(r)
}

// EvalPoint represents a public PRF evaluation point, encoded as one
// canonical field element.
type EvalPoint []byte

// NewEvalPointFromBytes creates an EvalPoint from a byte slice.
// This function makes a copy of the input data to ensure immutability.
func NewEvalPointFromBytes(data []byte) EvalPoint {
	p := make([]byte, len(data))
	copy(p, data)
	return EvalPoint(p)
}

// EvalPointFromUint64 creates the evaluation point for a small integer
// index. Sequential indices are used where both parties can count.
func EvalPointFromUint64(i uint64) EvalPoint {
	var e fr.Element
	e.SetUint64(i)
	return EvalPoint(e.Marshal())
}

// NewRandomEvalPoint samples a fresh evaluation point from the given
// randomness source. Random points are used where evaluation inputs must
// be unpredictable across rounds.
func NewRandomEvalPoint(rand io.Reader) (EvalPoint, error) {
	e, err := randomElement(rand)
	if err != nil {
		return nil, fmt.Errorf("sample eval point: %w", err)
	}
	return EvalPoint(e.Marshal()), nil
}

// Bytes returns the evaluation point as a byte slice.
func (p EvalPoint) Bytes() []byte {
	return p
}

// randomElement samples a uniform field element from rand. Sampling reads
// extra bytes before reducing so the bias is negligible.
func randomElement(rand io.Reader) (fr.Element, error) {
	var e fr.Element
	buf := make([]byte, fr.Bytes+16)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return e, err
	}
	n := new(big.Int).SetBytes(buf)
	n.Mod(n, fr.Modulus())
	e.SetBigInt(n)
	return e, nil
}

// leBytesToElement interprets data as a little-endian integer and reduces
// it into the field. Byte strings up to 16 bytes are injective.
func leBytesToElement(data []byte) fr.Element {
	var e fr.Element
	e.SetBigInt(leBytesToInt(data))
	return e
}

// leBytesToInt interprets data as a little-endian unsigned integer.
func leBytesToInt(data []byte) *big.Int {
	rev := make([]byte, len(data))
	for i, b := range data {
		rev[len(data)-1-i] = b
	}
	return new(big.Int).SetBytes(rev)
}

// uint64ToElement lifts a small integer into the field.
func uint64ToElement(v uint64) fr.Element {
	var e fr.Element
	e.SetUint64(v)
	return e
}
