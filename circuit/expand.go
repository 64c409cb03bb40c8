package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/accumulator/merkle"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/signature/eddsa"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Expand is the circuit of the Expand variant. One public Merkle root
// binds a whole batch of per-epoch randomness commitments; each proof
// shows membership of the epoch's commitment at the public index, so a
// client cannot reuse randomness across epochs.
//
// Public input order is the field declaration order.
type Expand struct {
	LDPValue         frontend.Variable   `gnark:",public"`
	TimeLowerBound   frontend.Variable   `gnark:",public"`
	TimeUpperBound   frontend.Variable   `gnark:",public"`
	ClientPublicKey  eddsa.PublicKey     `gnark:",public"`
	Root             frontend.Variable   `gnark:",public"`
	Index            frontend.Variable   `gnark:",public"`
	ServerRandomness []frontend.Variable `gnark:",public"`

	TrueValue          frontend.Variable
	Time               frontend.Variable
	TrueValueSignature eddsa.Signature
	ClientRandomness   []frontend.Variable
	Opening            frontend.Variable
	MerklePath         []frontend.Variable
	UniformValue       frontend.Variable
	CastMultiplicand   frontend.Variable
	CastRemainder      frontend.Variable

	cfg   protocol.Config
	gamma *big.Int
	tag   *big.Int
}

// NewExpand returns a blank Expand circuit shaped for the given
// parameters, ready for compilation or assignment.
func NewExpand(params protocol.ParamsExpand) *Expand {
	return &Expand{
		ServerRandomness: make([]frontend.Variable, params.Config.RandomnessBytes),
		ClientRandomness: make([]frontend.Variable, params.Config.RandomnessBytes),
		MerklePath:       make([]frontend.Variable, params.Config.MerkleDepth+1),
		cfg:              params.Config,
		gamma:            params.GammaInt(),
		tag:              new(big.Int).SetBytes(params.Tag),
	}
}

// Define declares the Expand constraints.
func (c *Expand) Define(api frontend.API) error {
	clientBits := bytesToBits(api, c.ClientRandomness)
	serverBits := bytesToBits(api, c.ServerRandomness)
	randomness := xorBits(api, clientBits, serverBits)

	// The commitment to the client randomness is the leaf at the public
	// index of the tree behind the public root. The membership gadget
	// decomposes the index itself, so the path position is bound.
	limbs := packLimbsLE(api, clientBits)
	commitment, err := hashMiMC(api, append(append([]frontend.Variable{c.tag}, limbs...), c.Opening)...)
	if err != nil {
		return err
	}
	api.AssertIsEqual(c.MerklePath[0], commitment)
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	proof := merkle.MerkleProof{RootHash: c.Root, Path: c.MerklePath}
	proof.VerifyProof(api, &h, c.Index)

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

// ExpandPublic is the public input bundle of the Expand circuit, in ABI
// order.
type ExpandPublic struct {
	LDPValue         uint64
	TimeLowerBound   uint64
	TimeUpperBound   uint64
	ClientPublicKey  crypto.PublicKey
	Root             crypto.MerkleRoot
	Index            uint64
	ServerRandomness []byte
}

// ExpandSecret is the witness bundle of the Expand circuit.
type ExpandSecret struct {
	TrueValue          uint64
	Time               uint64
	TrueValueSignature crypto.Signature
	ClientRandomness   []byte
	Opening            crypto.Opening
	MerklePath         crypto.MerkleProof
}

// KeyGenExpand compiles the Expand circuit and runs the backend setup.
func KeyGenExpand(system crypto.ProofSystem, params protocol.ParamsExpand) (crypto.ProvingKey, crypto.VerifyingKey, error) {
	return system.KeyGen(NewExpand(params))
}

// ProveExpand produces a proof that public.LDPValue is the mechanism
// output for the secret input under the combined randomness of the
// epoch at public.Index.
func ProveExpand(system crypto.ProofSystem, pk crypto.ProvingKey, params protocol.ParamsExpand, public ExpandPublic, secret ExpandSecret) ([]byte, error) {
	assignment, err := expandAssignment(params, public, secret)
	if err != nil {
		return nil, err
	}
	return system.Prove(pk, assignment)
}

// expandAssignment builds the full witness, deriving the auxiliary
// values from the native mechanism trace.
func expandAssignment(params protocol.ParamsExpand, public ExpandPublic, secret ExpandSecret) (*Expand, error) {
	assignment := NewExpand(params)
	if err := assignExpandPublic(assignment, public, params); err != nil {
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
	if len(secret.MerklePath.Path) != params.Config.MerkleDepth+1 {
		return nil, fmt.Errorf("merkle path has %d nodes, want %d", len(secret.MerklePath.Path), params.Config.MerkleDepth+1)
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
	for i, node := range secret.MerklePath.Path {
		assignment.MerklePath[i] = node
	}
	assignment.UniformValue = trace.UniformValue
	assignment.CastMultiplicand = trace.CastMultiplicand
	assignment.CastRemainder = trace.CastRemainder
	return assignment, nil
}

// VerifyExpand checks a proof against the public inputs.
func VerifyExpand(system crypto.ProofSystem, vk crypto.VerifyingKey, params protocol.ParamsExpand, proof []byte, public ExpandPublic) (bool, error) {
	assignment := NewExpand(params)
	if err := assignExpandPublic(assignment, public, params); err != nil {
		return false, err
	}
	return system.Verify(vk, proof, assignment)
}

func assignExpandPublic(assignment *Expand, public ExpandPublic, params protocol.ParamsExpand) error {
	if len(public.ServerRandomness) != params.Config.RandomnessBytes {
		return fmt.Errorf("server randomness has %d bytes, want %d", len(public.ServerRandomness), params.Config.RandomnessBytes)
	}
	if public.Index >= uint64(params.Config.Epochs()) {
		return fmt.Errorf("epoch index %d out of range", public.Index)
	}
	assignment.LDPValue = public.LDPValue
	assignment.TimeLowerBound = public.TimeLowerBound
	assignment.TimeUpperBound = public.TimeUpperBound
	if err := assignPublicKey(&assignment.ClientPublicKey, public.ClientPublicKey); err != nil {
		return err
	}
	assignment.Root = public.Root.Bytes()
	assignment.Index = public.Index
	for i, b := range public.ServerRandomness {
		assignment.ServerRandomness[i] = b
	}
	return nil
}
