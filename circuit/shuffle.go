package circuit

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/signature/eddsa"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Shuffle is the circuit of the Shuffle variant. Everything that could
// identify the client moves into the witness: its public key, both seed
// shares, and the server's binding signature are verified in-circuit,
// leaving only the value, the window, the server key, and the PRF
// evaluation points public. The resulting message can cross a shuffler
// without linking back to its producer.
//
// Public input order is the field declaration order.
type Shuffle struct {
	LDPValue        frontend.Variable   `gnark:",public"`
	TimeLowerBound  frontend.Variable   `gnark:",public"`
	TimeUpperBound  frontend.Variable   `gnark:",public"`
	ServerPublicKey eddsa.PublicKey     `gnark:",public"`
	EvalPoints      []frontend.Variable `gnark:",public"`

	TrueValue          frontend.Variable
	Time               frontend.Variable
	TrueValueSignature eddsa.Signature
	ClientPublicKey    eddsa.PublicKey
	ClientSeed         []frontend.Variable
	ServerSeed         []frontend.Variable
	Opening            frontend.Variable
	ServerSignature    eddsa.Signature
	UniformValue       frontend.Variable
	CastMultiplicand   frontend.Variable
	CastRemainder      frontend.Variable

	cfg   protocol.Config
	gamma *big.Int
	tag   *big.Int
}

// NewShuffle returns a blank Shuffle circuit shaped for the given
// parameters, ready for compilation or assignment.
func NewShuffle(params protocol.ParamsShuffle) *Shuffle {
	return &Shuffle{
		EvalPoints: make([]frontend.Variable, params.PRFChunks()),
		ClientSeed: make([]frontend.Variable, crypto.SeedSize),
		ServerSeed: make([]frontend.Variable, crypto.SeedSize),
		cfg:        params.Config,
		gamma:      params.GammaInt(),
		tag:        new(big.Int).SetBytes(params.Tag),
	}
}

// Define declares the Shuffle constraints.
func (c *Shuffle) Define(api frontend.API) error {
	clientSeedBits := bytesToBits(api, c.ClientSeed)
	serverSeedBits := bytesToBits(api, c.ServerSeed)

	// The server signed the binding of the client's seed commitment,
	// the client's key, and the server seed. Verifying that signature
	// in-circuit replaces the Base variant's native prefilter.
	clientSeedPacked := packBytesLE(api, clientSeedBits, 0, len(c.ClientSeed))
	commitment, err := hashMiMC(api, c.tag, clientSeedPacked, c.Opening)
	if err != nil {
		return err
	}
	serverSeedPacked := packBytesLE(api, serverSeedBits, 0, len(c.ServerSeed))
	binding, err := hashMiMC(api, commitment, c.ClientPublicKey.A.X, c.ClientPublicKey.A.Y, serverSeedPacked)
	if err != nil {
		return err
	}
	if err := verifyEdDSA(api, c.ServerSignature, binding, c.ServerPublicKey); err != nil {
		return err
	}

	// Randomness is the PRF expansion of the combined seed at the
	// public evaluation points.
	prfSeed := packBytesLE(api, xorBits(api, clientSeedBits, serverSeedBits), 0, len(c.ClientSeed))
	randomness := make([][]frontend.Variable, 0, len(c.EvalPoints)*crypto.PRFBlockSize)
	for _, point := range c.EvalPoints {
		block, err := prfBlockBits(api, prfSeed, point)
		if err != nil {
			return err
		}
		randomness = append(randomness, block...)
	}
	randomness = randomness[:c.cfg.RandomnessBytes]

	// The input is signed together with its timestamp under the witness
	// key, which the server's binding signature vouches for.
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

// ShufflePublic is the public input bundle of the Shuffle circuit, in
// ABI order.
type ShufflePublic struct {
	LDPValue        uint64
	TimeLowerBound  uint64
	TimeUpperBound  uint64
	ServerPublicKey crypto.PublicKey
	EvalPoints      []crypto.EvalPoint
}

// ShuffleSecret is the witness bundle of the Shuffle circuit.
type ShuffleSecret struct {
	TrueValue          uint64
	Time               uint64
	TrueValueSignature crypto.Signature
	ClientPublicKey    crypto.PublicKey
	ClientSeed         crypto.Seed
	ServerSeed         crypto.Seed
	Opening            crypto.Opening
	ServerSignature    crypto.Signature
}

// KeyGenShuffle compiles the Shuffle circuit and runs the backend setup.
func KeyGenShuffle(system crypto.ProofSystem, params protocol.ParamsShuffle) (crypto.ProvingKey, crypto.VerifyingKey, error) {
	return system.KeyGen(NewShuffle(params))
}

// ProveShuffle produces a proof that public.LDPValue is the mechanism
// output for the secret input under randomness expanded from the
// combined seeds.
func ProveShuffle(system crypto.ProofSystem, pk crypto.ProvingKey, params protocol.ParamsShuffle, public ShufflePublic, secret ShuffleSecret) ([]byte, error) {
	assignment, err := shuffleAssignment(params, public, secret)
	if err != nil {
		return nil, err
	}
	return system.Prove(pk, assignment)
}

// shuffleAssignment builds the full witness, deriving the auxiliary
// values from the native mechanism trace.
func shuffleAssignment(params protocol.ParamsShuffle, public ShufflePublic, secret ShuffleSecret) (*Shuffle, error) {
	assignment := NewShuffle(params)
	if err := assignShufflePublic(assignment, public, params); err != nil {
		return nil, err
	}

	combined, err := secret.ClientSeed.Xor(secret.ServerSeed)
	if err != nil {
		return nil, err
	}
	randomness, err := crypto.MiMCPRF{}.Expand(combined, public.EvalPoints, params.Config.RandomnessBytes)
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
	if err := assignPublicKey(&assignment.ClientPublicKey, secret.ClientPublicKey); err != nil {
		return nil, err
	}
	for i, b := range secret.ClientSeed.Bytes() {
		assignment.ClientSeed[i] = b
	}
	for i, b := range secret.ServerSeed.Bytes() {
		assignment.ServerSeed[i] = b
	}
	assignment.Opening = secret.Opening.Bytes()
	if err := assignSignature(&assignment.ServerSignature, secret.ServerSignature); err != nil {
		return nil, err
	}
	assignment.UniformValue = trace.UniformValue
	assignment.CastMultiplicand = trace.CastMultiplicand
	assignment.CastRemainder = trace.CastRemainder
	return assignment, nil
}

// VerifyShuffle checks a proof against the public inputs.
func VerifyShuffle(system crypto.ProofSystem, vk crypto.VerifyingKey, params protocol.ParamsShuffle, proof []byte, public ShufflePublic) (bool, error) {
	assignment := NewShuffle(params)
	if err := assignShufflePublic(assignment, public, params); err != nil {
		return false, err
	}
	return system.Verify(vk, proof, assignment)
}

func assignShufflePublic(assignment *Shuffle, public ShufflePublic, params protocol.ParamsShuffle) error {
	if len(public.EvalPoints) != params.PRFChunks() {
		return fmt.Errorf("%d eval points, want %d", len(public.EvalPoints), params.PRFChunks())
	}
	assignment.LDPValue = public.LDPValue
	assignment.TimeLowerBound = public.TimeLowerBound
	assignment.TimeUpperBound = public.TimeUpperBound
	if err := assignPublicKey(&assignment.ServerPublicKey, public.ServerPublicKey); err != nil {
		return err
	}
	for i, point := range public.EvalPoints {
		assignment.EvalPoints[i] = point.Bytes()
	}
	return nil
}
