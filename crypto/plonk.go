package crypto

import (
	"bytes"
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/plonk"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/scs"
	"github.com/consensys/gnark/test/unsafekzg"
)

// Plonk is the alternative proof system: PLONK over BN254 with a KZG
// polynomial commitment. Its structured reference string is universal
// across circuits of the same size.
//
// The SRS comes from gnark's unsafekzg package, whose toxic waste is
// generated in-process. Suitable for benchmarking and tests only.
type Plonk struct{}

// NewPlonk constructs the PLONK backend.
func NewPlonk() Plonk {
	return Plonk{}
}

// Name identifies the backend.
func (Plonk) Name() string {
	return "plonk"
}

type plonkProvingKey struct {
	ccs constraint.ConstraintSystem
	pk  plonk.ProvingKey
}

func (k *plonkProvingKey) WriteTo(w io.Writer) (int64, error) {
	return k.pk.WriteTo(w)
}

type plonkVerifyingKey struct {
	vk plonk.VerifyingKey
}

func (k *plonkVerifyingKey) WriteTo(w io.Writer) (int64, error) {
	return k.vk.WriteTo(w)
}

// KeyGen compiles the circuit to a PLONK constraint system, draws a
// test-grade SRS sized for it, and runs the setup.
func (Plonk) KeyGen(circuit frontend.Circuit) (ProvingKey, VerifyingKey, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
	if err != nil {
		return nil, nil, fmt.Errorf("compile circuit: %w", err)
	}
	srs, srsLagrange, err := unsafekzg.NewSRS(ccs)
	if err != nil {
		return nil, nil, fmt.Errorf("build srs: %w", err)
	}
	pk, vk, err := plonk.Setup(ccs, srs, srsLagrange)
	if err != nil {
		return nil, nil, fmt.Errorf("plonk setup: %w", err)
	}
	return &plonkProvingKey{ccs: ccs, pk: pk}, &plonkVerifyingKey{vk: vk}, nil
}

// ReadProvingKey reconstructs a proving key written by WriteTo. The
// caller supplies the blank circuit to recompile, as in
// Groth16.ReadProvingKey.
func (Plonk) ReadProvingKey(r io.Reader, circuit frontend.Circuit) (ProvingKey, error) {
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), scs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}
	pk := plonk.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read proving key: %w", err)
	}
	return &plonkProvingKey{ccs: ccs, pk: pk}, nil
}

// ReadVerifyingKey reconstructs a verifying key written by WriteTo.
func (Plonk) ReadVerifyingKey(r io.Reader) (VerifyingKey, error) {
	vk := plonk.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("read verifying key: %w", err)
	}
	return &plonkVerifyingKey{vk: vk}, nil
}

// Prove produces a serialized proof for a fully assigned circuit instance.
func (Plonk) Prove(pk ProvingKey, assignment frontend.Circuit) ([]byte, error) {
	key, ok := pk.(*plonkProvingKey)
	if !ok {
		return nil, fmt.Errorf("proving key type %T is not a plonk key", pk)
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}
	proof, err := plonk.Prove(key.ccs, key.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("plonk prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	return buf.Bytes(), nil
}

// Verify checks a serialized proof against the public inputs. Malformed
// proof bytes and failing proofs both verify as false.
func (Plonk) Verify(vk VerifyingKey, proof []byte, public frontend.Circuit) (bool, error) {
	key, ok := vk.(*plonkVerifyingKey)
	if !ok {
		return false, fmt.Errorf("verifying key type %T is not a plonk key", vk)
	}
	decoded := plonk.NewProof(ecc.BN254)
	if _, err := decoded.ReadFrom(bytes.NewReader(proof)); err != nil {
		return false, nil
	}
	witness, err := frontend.NewWitness(public, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("build public witness: %w", err)
	}
	if err := plonk.Verify(decoded, key.vk, witness); err != nil {
		return false, nil
	}
	return true, nil
}
