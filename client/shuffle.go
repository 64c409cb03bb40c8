package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Shuffle runs the client side of the Shuffle variant. The randomization
// message names neither the client nor its commitment, so it can travel
// through an anonymizing shuffler; the server's seed signature is checked
// inside the circuit instead of on the wire.
type Shuffle struct {
	params          protocol.ParamsShuffle
	suite           *crypto.Suite
	provingKey      crypto.ProvingKey
	publicKey       crypto.PublicKey
	serverPublicKey crypto.PublicKey
	rand            io.Reader

	pending *shufflePending
	ready   *shuffleReady
}

// shufflePending holds the committed client seed.
type shufflePending struct {
	clientSeed crypto.Seed
	opening    crypto.Opening
	commitment crypto.Commitment
}

// shuffleReady additionally holds the server contribution.
type shuffleReady struct {
	shufflePending
	serverSeed      crypto.Seed
	serverSignature crypto.Signature
}

// NewShuffle creates a Shuffle client. The parameters mirror NewBase.
func NewShuffle(params protocol.ParamsShuffle, suite *crypto.Suite, provingKey crypto.ProvingKey,
	clientPublicKey, serverPublicKey crypto.PublicKey, rand io.Reader) (*Shuffle, error) {
	if suite == nil {
		return nil, errors.New("suite cannot be nil")
	}
	if provingKey == nil {
		return nil, errors.New("proving key cannot be nil")
	}
	if rand == nil {
		return nil, errors.New("randomness source cannot be nil")
	}
	return &Shuffle{
		params:          params,
		suite:           suite,
		provingKey:      provingKey,
		publicKey:       clientPublicKey,
		serverPublicKey: serverPublicKey,
		rand:            rand,
	}, nil
}

// GenerateRandomnessCreate samples a client seed, commits to it, and
// returns the serialized first-round message. Calling it again discards
// any session in progress.
func (c *Shuffle) GenerateRandomnessCreate() ([]byte, error) {
	seed, err := crypto.NewRandomSeed(c.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to sample seed: %w", err)
	}
	opening, err := crypto.NewRandomOpening(c.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to sample opening: %w", err)
	}
	commitment, err := c.suite.Commitments.Commit(seed.Bytes(), opening)
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	c.pending = &shufflePending{clientSeed: seed, opening: opening, commitment: commitment}
	c.ready = nil

	msg := protocol.GenRandClientShuffle{
		Commitment:      commitment,
		ClientPublicKey: c.publicKey,
	}
	return msg.Encode(), nil
}

// GenerateRandomnessVerify checks the server's seed contribution against
// the pending commitment. A bad signature is reported as false, not an
// error.
func (c *Shuffle) GenerateRandomnessVerify(serverMsg []byte) (bool, error) {
	if c.pending == nil {
		return false, fmt.Errorf("no committed seed: %w", protocol.ErrSessionState)
	}
	msg, err := protocol.DecodeGenRandServer(serverMsg)
	if err != nil {
		return false, fmt.Errorf("failed to decode server message: %w", err)
	}
	digest, err := crypto.BindingDigest(c.pending.commitment.Bytes(), c.publicKey, msg.Seed)
	if err != nil {
		return false, fmt.Errorf("failed to compute binding digest: %w", err)
	}
	ok, err := c.suite.Signatures.Verify(c.serverPublicKey, digest, msg.Signature)
	if err != nil {
		return false, fmt.Errorf("failed to verify server signature: %w", err)
	}
	if !ok {
		return false, nil
	}

	c.ready = &shuffleReady{
		shufflePending:  *c.pending,
		serverSeed:      msg.Seed,
		serverSignature: msg.Signature,
	}
	c.pending = nil
	return true, nil
}

// VerifiableRandomizationCreate XORs both seeds, expands the combined
// seed at the given public evaluation points, applies the mechanism, and
// returns the serialized anonymous randomization message. The evaluation
// points are chosen by the round coordinator and must match the ones the
// server verifies against. The session is consumed.
func (c *Shuffle) VerifiableRandomizationCreate(timeLower, timeUpper, time, trueValue uint64,
	signature crypto.Signature, evalPoints []crypto.EvalPoint, skipProof bool) ([]byte, error) {
	if c.ready == nil {
		return nil, fmt.Errorf("no verified server seed: %w", protocol.ErrSessionState)
	}
	if len(evalPoints) != c.params.PRFChunks() {
		return nil, fmt.Errorf("got %d eval points, want %d", len(evalPoints), c.params.PRFChunks())
	}
	session := c.ready
	cfg := c.params.Config

	combined, err := session.clientSeed.Xor(session.serverSeed)
	if err != nil {
		return nil, err
	}
	randomness, err := c.suite.Randomness.Expand(combined, evalPoints, cfg.RandomnessBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to expand combined seed: %w", err)
	}
	trace, err := circuit.Apply(cfg, c.params.GammaEnc, randomness, trueValue)
	if err != nil {
		return nil, fmt.Errorf("failed to randomize input: %w", err)
	}

	public := circuit.ShufflePublic{
		LDPValue:        trace.Value,
		TimeLowerBound:  timeLower,
		TimeUpperBound:  timeUpper,
		ServerPublicKey: c.serverPublicKey,
		EvalPoints:      evalPoints,
	}
	secret := circuit.ShuffleSecret{
		TrueValue:          trueValue,
		Time:               time,
		TrueValueSignature: signature,
		ClientPublicKey:    c.publicKey,
		ClientSeed:         session.clientSeed,
		ServerSeed:         session.serverSeed,
		Opening:            session.opening,
		ServerSignature:    session.serverSignature,
	}

	var proof []byte
	if !skipProof {
		proof, err = circuit.ProveShuffle(c.suite.Proofs, c.provingKey, c.params, public, secret)
		if err != nil {
			return nil, fmt.Errorf("failed to prove: %w", err)
		}
	}

	c.ready = nil

	msg := protocol.RandomizeShuffle{
		Proof:    proof,
		LDPValue: trace.Value,
	}
	return msg.Encode(), nil
}
