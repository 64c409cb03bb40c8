package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Base runs the client side of the Base variant. The client stays
// identified by the public key of its trusted environment; the server
// learns which client contributed which randomized value.
type Base struct {
	params          protocol.ParamsBase
	suite           *crypto.Suite
	provingKey      crypto.ProvingKey
	publicKey       crypto.PublicKey
	serverPublicKey crypto.PublicKey
	rand            io.Reader

	pending *basePending
	ready   *baseReady
}

// basePending holds the session after the first message went out: the
// committed randomness and its opening, waiting for the server's
// contribution.
type basePending struct {
	randomness []byte
	opening    crypto.Opening
	commitment crypto.Commitment
}

// baseReady holds the session after the server's signature checked out.
type baseReady struct {
	basePending
	seed            crypto.Seed
	serverSignature crypto.Signature
}

// NewBase creates a Base client.
//
// The client requires:
// - params: the deployment parameters shared with the server
// - suite: the cryptographic suite, matching the server's
// - provingKey: the proving key from circuit.KeyGenBase
// - clientPublicKey: the trusted environment's verification key
// - serverPublicKey: the server's signature verification key
// - rand: the randomness source for seeds and openings
func NewBase(params protocol.ParamsBase, suite *crypto.Suite, provingKey crypto.ProvingKey,
	clientPublicKey, serverPublicKey crypto.PublicKey, rand io.Reader) (*Base, error) {
	if suite == nil {
		return nil, errors.New("suite cannot be nil")
	}
	if provingKey == nil {
		return nil, errors.New("proving key cannot be nil")
	}
	if rand == nil {
		return nil, errors.New("randomness source cannot be nil")
	}
	return &Base{
		params:          params,
		suite:           suite,
		provingKey:      provingKey,
		publicKey:       clientPublicKey,
		serverPublicKey: serverPublicKey,
		rand:            rand,
	}, nil
}

// GenerateRandomnessCreate samples fresh client randomness, commits to
// it, and returns the serialized first-round message. Calling it again
// discards any session in progress.
func (c *Base) GenerateRandomnessCreate(time uint64) ([]byte, error) {
	randomness := make([]byte, c.params.Config.RandomnessBytes)
	if _, err := io.ReadFull(c.rand, randomness); err != nil {
		return nil, fmt.Errorf("failed to sample randomness: %w", err)
	}
	opening, err := crypto.NewRandomOpening(c.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to sample opening: %w", err)
	}
	commitment, err := c.suite.Commitments.Commit(randomness, opening)
	if err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	c.pending = &basePending{randomness: randomness, opening: opening, commitment: commitment}
	c.ready = nil

	msg := protocol.GenRandClientBase{
		Commitment:      commitment,
		ClientPublicKey: c.publicKey,
		Time:            time,
	}
	return msg.Encode(), nil
}

// GenerateRandomnessVerify checks the server's seed contribution against
// the pending commitment. A bad signature is reported as false, not an
// error; the session stays pending so the round can be retried.
func (c *Base) GenerateRandomnessVerify(serverMsg []byte) (bool, error) {
	if c.pending == nil {
		return false, fmt.Errorf("no committed randomness: %w", protocol.ErrSessionState)
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

	c.ready = &baseReady{
		basePending:     *c.pending,
		seed:            msg.Seed,
		serverSignature: msg.Signature,
	}
	c.pending = nil
	return true, nil
}

// VerifiableRandomizationCreate combines both randomness contributions,
// applies the mechanism to the signed input, proves the result, and
// returns the serialized randomization message. The session is consumed.
//
// With skipProof the message carries an empty proof; it only passes a
// server that also skips proof checking, which is for benchmarks, never
// live use.
func (c *Base) VerifiableRandomizationCreate(timeLower, timeUpper, time, trueValue uint64,
	signature crypto.Signature, skipProof bool) ([]byte, error) {
	if c.ready == nil {
		return nil, fmt.Errorf("no verified server randomness: %w", protocol.ErrSessionState)
	}
	session := c.ready

	cfg := c.params.Config
	serverRandomness, err := c.suite.Randomness.Expand(session.seed, crypto.SequentialEvalPoints(0, cfg.RandomnessBytes), cfg.RandomnessBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to expand server seed: %w", err)
	}
	randomness, err := circuit.XorBytes(session.randomness, serverRandomness)
	if err != nil {
		return nil, err
	}
	trace, err := circuit.Apply(cfg, c.params.GammaEnc, randomness, trueValue)
	if err != nil {
		return nil, fmt.Errorf("failed to randomize input: %w", err)
	}

	public := circuit.BasePublic{
		LDPValue:         trace.Value,
		TimeLowerBound:   timeLower,
		TimeUpperBound:   timeUpper,
		ClientPublicKey:  c.publicKey,
		Commitment:       session.commitment,
		ServerRandomness: serverRandomness,
	}
	secret := circuit.BaseSecret{
		TrueValue:          trueValue,
		Time:               time,
		TrueValueSignature: signature,
		ClientRandomness:   session.randomness,
		Opening:            session.opening,
	}

	var proof []byte
	if !skipProof {
		proof, err = circuit.ProveBase(c.suite.Proofs, c.provingKey, c.params, public, secret)
		if err != nil {
			return nil, fmt.Errorf("failed to prove: %w", err)
		}
	}

	c.ready = nil

	msg := protocol.RandomizeBase{
		ClientPublicKey: c.publicKey,
		Commitment:      session.commitment,
		Seed:            session.seed,
		ServerSignature: session.serverSignature,
		Proof:           proof,
		LDPValue:        trace.Value,
	}
	return msg.Encode(), nil
}
