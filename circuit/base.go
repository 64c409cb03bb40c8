package circuit

import (
	"fmt"
	"math/big"

	tedwards "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/signature/eddsa"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Base is the circuit of the Base variant. Client randomness is bound by
// a public commitment; the client stays identified by its public key.
//
// Public input order is the field declaration order.
type Base struct {
	LDPValue         frontend.Variable   `gnark:",public"`
	TimeLowerBound   frontend.Variable   `gnark:",public"`
	TimeUpperBound   frontend.Variable   `gnark:",public"`
	ClientPublicKey  eddsa.PublicKey     `gnark:",public"`
	Commitment       frontend.Variable   `gnark:",public"`
	ServerRandomness []frontend.Variable `gnark:",public"`

	TrueValue          frontend.Variable
	Time               frontend.Variable
	TrueValueSignature eddsa.Signature
	ClientRandomness   []frontend.Variable
	Opening            frontend.Variable
	UniformValue       frontend.Variable
	CastMultiplicand   frontend.Variable
	CastRemainder      frontend.Variable

	cfg   protocol.Config
	gamma *big.Int
	tag   *big.Int
}

// NewBase returns a blank Base circuit shaped for the given parameters,
// ready for compilation or assignment.
func NewBase(params protocol.ParamsBase) *Base {
	return &Base{
		ServerRandomness: make([]frontend.Variable, params.Config.RandomnessBytes),
		ClientRandomness: make([]frontend.Variable, params.Config.RandomnessBytes),
		cfg:              params.Config,
		gamma:            params.GammaInt(),
		tag:              new(big.Int).SetBytes(params.Tag),
	}
}

// Define declares the Base constraints.
func (c *Base) Define(api frontend.API) error {
	clientBits := bytesToBits(api, c.ClientRandomness)
	serverBits := bytesToBits(api, c.ServerRandomness)
	randomness := xorBits(api, clientBits, serverBits)

	// The public commitment opens to the client randomness.
	limbs := packLimbsLE(api, clientBits)
	commitment, err := hashMiMC(api, append(append([]frontend.Variable{c.tag}, limbs...), c.Opening)...)
	if err != nil {
		return err
	}
	api.AssertIsEqual(commitment, c.Commitment)

	// The input is signed together with its timestamp.
	digest, err := hashMiMC(api, c.TrueValue, c.Time)
	if err != nil {
		return err
	}
	if err := verifyEdDSA(api, c.TrueValueSignature, digest, c.ClientPublicKey); err != nil {
		return err
	}

	g := newLDPGadget(c.cfg, c.gamma)
	value, boundsOK := g.apply(api, randomness, ldpAux{
		TrueValue:        c.TrueValue,
		UniformValue:     c.UniformValue,
		CastMultiplicand: c.CastMultiplicand,
		CastRemainder:    c.CastRemainder,
	})
	api.AssertIsEqual(value, c.LDPValue)

	windowOK := timeWindow(api, c.Time, c.TimeLowerBound, c.TimeUpperBound, 8*c.cfg.TimeBytes)
	api.AssertIsEqual(api.And(boundsOK, windowOK), 1)

	return nil
}

// verifyEdDSA hard-asserts an in-circuit EdDSA verification with MiMC as
// the inner hash, matching the native scheme exactly.
func verifyEdDSA(api frontend.API, sig eddsa.Signature, digest frontend.Variable, pub eddsa.PublicKey) error {
	curve, err := twistededwards.NewEdCurve(api, tedwards.BN254)
	if err != nil {
		return err
	}
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	return eddsa.Verify(curve, sig, digest, pub, &h)
}

// BasePublic is the public input bundle of the Base circuit, in ABI
// order.
type BasePublic struct {
	LDPValue         uint64
	TimeLowerBound   uint64
	TimeUpperBound   uint64
	ClientPublicKey  crypto.PublicKey
	Commitment       crypto.Commitment
	ServerRandomness []byte
}

// BaseSecret is the witness bundle of the Base circuit.
type BaseSecret struct {
	TrueValue          uint64
	Time               uint64
	TrueValueSignature crypto.Signature
	ClientRandomness   []byte
	Opening            crypto.Opening
}

// KeyGenBase compiles the Base circuit and runs the backend setup.
func KeyGenBase(system crypto.ProofSystem, params protocol.ParamsBase) (crypto.ProvingKey, crypto.VerifyingKey, error) {
	return system.KeyGen(NewBase(params))
}

// ProveBase produces a proof that public.LDPValue is the mechanism
// output for the secret input under the combined randomness.
func ProveBase(system crypto.ProofSystem, pk crypto.ProvingKey, params protocol.ParamsBase, public BasePublic, secret BaseSecret) ([]byte, error) {
	assignment, err := baseAssignment(params, public, secret)
	if err != nil {
		return nil, err
	}
	return system.Prove(pk, assignment)
}

// baseAssignment builds the full witness, deriving the auxiliary values
// from the native mechanism trace.
func baseAssignment(params protocol.ParamsBase, public BasePublic, secret BaseSecret) (*Base, error) {
	assignment := NewBase(params)
	if err := assignBasePublic(assignment, public, params); err != nil {
		return nil, err
	}

	randomness, err := XorBytes(secret.ClientRandomness, public.ServerRandomness)
	if err != nil {
		return nil, err
	}
	trace, err := Apply(params.Config, params.GammaEnc, randomness, secret.TrueValue)
	if err != nil {
		return nil, err
	}
	if trace.Value != public.LDPValue {
		return nil, fmt.Errorf("claimed value %d does not match mechanism output %d", public.LDPValue, trace.Value)
	}

	assignment.TrueValue = secret.TrueValue
	assignment.Time = secret.Time
	if err := assignSignature(&assignment.TrueValueSignature, secret.TrueValueSignature); err != nil {
		return nil, err
	}
	for i, b := range secret.ClientRandomness {
		assignment.ClientRandomness[i] = b
	}
	assignment.Opening = secret.Opening.Bytes()
	assignment.UniformValue = trace.UniformValue
	assignment.CastMultiplicand = trace.CastMultiplicand
	assignment.CastRemainder = trace.CastRemainder
	return assignment, nil
}

// VerifyBase checks a proof against the public inputs.
func VerifyBase(system crypto.ProofSystem, vk crypto.VerifyingKey, params protocol.ParamsBase, proof []byte, public BasePublic) (bool, error) {
	assignment := NewBase(params)
	if err := assignBasePublic(assignment, public, params); err != nil {
		return false, err
	}
	return system.Verify(vk, proof, assignment)
}

func assignBasePublic(assignment *Base, public BasePublic, params protocol.ParamsBase) error {
	if len(public.ServerRandomness) != params.Config.RandomnessBytes {
		return fmt.Errorf("server randomness has %d bytes, want %d", len(public.ServerRandomness), params.Config.RandomnessBytes)
	}
	assignment.LDPValue = public.LDPValue
	assignment.TimeLowerBound = public.TimeLowerBound
	assignment.TimeUpperBound = public.TimeUpperBound
	if err := assignPublicKey(&assignment.ClientPublicKey, public.ClientPublicKey); err != nil {
		return err
	}
	assignment.Commitment = public.Commitment.Bytes()
	for i, b := range public.ServerRandomness {
		assignment.ServerRandomness[i] = b
	}
	return nil
}
