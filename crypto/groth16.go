package crypto

import (
	"bytes"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Groth16 is the default proof system: Groth16 over BN254. Its proofs
// are small and verification is cheap, at the cost of a per-circuit
// trusted setup.
type Groth16 struct{}

// NewGroth16 constructs the Groth16 backend.
func NewGroth16() Groth16 {
	return Groth16{}
}

// Name identifies the backend.
func (Groth16) Name() string {
	return "groth16"
}

type groth16ProvingKey struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
}

func (k *groth16ProvingKey) WriteTo(w io.Writer) (int64, error) {
	return k.pk.WriteTo(w)
}

type groth16VerifyingKey struct {
	vk groth16.VerifyingKey
}

func (k *groth16VerifyingKey) WriteTo(w io.Writer) (int64, error) {
	return k.vk.WriteTo(w)
}

// KeyGen compiles the circuit to R1CS and runs the Groth16 setup.
func (Groth16) KeyGen(circuit frontend.Circuit) (ProvingKey, VerifyingKey, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, nil, fmt.Errorf("compile circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("groth16 setup: %w", err)
	}
	return &groth16ProvingKey{ccs: ccs, pk: pk}, &groth16VerifyingKey{vk: vk}, nil
}

// ReadProvingKey reconstructs a proving key written by WriteTo. The
// serialized key does not identify its circuit, so the caller supplies
// the blank circuit to recompile; deployments split keygen from serving
// this way.
func (Groth16) ReadProvingKey(r io.Reader, circuit frontend.Circuit) (ProvingKey, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}
	return &groth16ProvingKey{ccs: ccs, pk: pk}, nil
}

// ReadVerifyingKey reconstructs a verifying key written by WriteTo.
func (Groth16) ReadVerifyingKey(r io.Reader) (VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return &groth16VerifyingKey{vk: vk}, nil
}

// Prove produces a serialized proof for a fully assigned circuit instance.
func (Groth16) Prove(pk ProvingKey, assignment frontend.Circuit) ([]byte, error) {
	key, ok := pk.(*groth16ProvingKey)
	if !ok {
		return nil, fmt.Errorf("proving key type %T is not a groth16 key", pk)
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := groth16.Prove(key.ccs, key.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("groth16 prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against the public inputs. Malformed
// proof bytes and failing proofs both verify as false.
func (Groth16) Verify(vk VerifyingKey, proof []byte, public frontend.Circuit) (bool, error) {
	key, ok := vk.(*groth16VerifyingKey)
	if !ok {
		return false, fmt.Errorf("verifying key type %T is not a groth16 key", vk)
	}
	decoded := groth16.NewProof(ecc.BN254)
	if _, err := decoded.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false, nil
	}
	witness, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("build public witness: %w", err)
	}
	if err := groth16.Verify(decoded, key.vk, witness); err != nil {
		return false, nil
	}
	return true, nil
}
