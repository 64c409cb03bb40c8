package crypto

import (
	"fmt"
	"io"

	"github.com/consensys/gnark/frontend"
)

// CommitmentScheme produces hiding, binding commitments over byte strings.
type CommitmentScheme interface {
	// Commit commits to data under the given opening.
	Commit(data []byte, opening Opening) (Commitment, error)
	// VerifyOpening checks that commitment opens to data under opening.
	VerifyOpening(commitment Commitment, data []byte, opening Opening) (bool, error)
}

// SignatureScheme signs and verifies fixed-size digests. Digests are
// canonical field elements so the same signatures verify in-circuit.
type SignatureScheme interface {
	// GenerateKey samples a fresh key pair from rand.
	GenerateKey(rand io.Reader) (PublicKey, PrivateKey, error)
	// Sign signs a digest with the private key.
	Sign(sk PrivateKey, digest []byte) (Signature, error)
	// Verify reports whether sig is a valid signature on digest under pk.
	Verify(pk PublicKey, digest []byte, sig Signature) (bool, error)
}

// PRF expands a short seed into pseudorandom bytes, one fixed-size block
// per evaluation point.
type PRF interface {
	// Evaluate produces one block of output for a single point.
	Evaluate(seed Seed, point EvalPoint) ([]byte, error)
	// Expand concatenates blocks for the given points and truncates the
	// result to n bytes. It fails if the points cannot cover n bytes.
	Expand(seed Seed, points []EvalPoint, n int) ([]byte, error)
}

// ProvingKey is an opaque, serializable proving key bound to one compiled
// circuit.
type ProvingKey interface {
	io.WriterTo
}

// VerifyingKey is an opaque, serializable verifying key bound to one
// compiled circuit.
type VerifyingKey interface {
	io.WriterTo
}

// ProofSystem abstracts a zk-SNARK backend over the BN254 curve. Proofs
// are opaque byte strings; a malformed proof makes Verify return false,
// it never panics.
type ProofSystem interface {
	// Name identifies the backend, for logging.
	Name() string
	// KeyGen compiles the circuit and runs the backend setup.
	KeyGen(circuit frontend.Circuit) (ProvingKey, VerifyingKey, error)
	// Prove produces a proof for a fully assigned circuit instance.
	Prove(pk ProvingKey, assignment frontend.Circuit) ([]byte, error)
	// Verify checks a proof against an assignment of the public inputs.
	// The public input order is the circuit's field declaration order.
	Verify(vk VerifyingKey, proof []byte, public frontend.Circuit) (bool, error)
}

// Suite bundles one concrete instance of every primitive the protocol
// needs. Both endpoints of a deployment must construct their suites from
// the same commitment parameters.
type Suite struct {
	Commitments CommitmentScheme
	Signatures  SignatureScheme
	Randomness  PRF
	Proofs      ProofSystem
}

// NewSuite constructs the default MiMC/EdDSA suite over BN254 with the
// given proof system, sampling fresh commitment parameters from rand.
func NewSuite(proofs ProofSystem, rand io.Reader) (*Suite, error) {
	committer, err := NewMiMCCommitter(rand)
	if err != nil {
		return nil, fmt.Errorf("commitment setup: %w", err)
	}
	return &Suite{
		Commitments: committer,
		Signatures:  EdDSA{},
		Randomness:  MiMCPRF{},
		Proofs:      proofs,
	}, nil
}

// CommitmentTag exposes the domain tag of the suite's commitment scheme
// so circuits can bake it in as a constant. It fails if the suite uses a
// commitment scheme without a tag.
func (s *Suite) CommitmentTag() ([]byte, error) {
	c, ok := s.Commitments.(*MiMCCommitter)
	if !ok {
		return nil, fmt.Errorf("commitment scheme %T has no domain tag", s.Commitments)
	}
	return c.Tag(), nil
}
