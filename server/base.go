package server

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// RejectedValue is returned in place of a randomized value whenever a
// randomization message fails verification.
const RejectedValue = uint64(math.MaxUint64)

// Base runs the server side of the Base variant.
type Base struct {
	params       protocol.ParamsBase
	suite        *crypto.Suite
	verifyingKey crypto.VerifyingKey
	publicKey    crypto.PublicKey
	privateKey   crypto.PrivateKey
	rand         io.Reader
}

// NewBase creates a Base server with a fresh long-term signing keypair.
//
// The server requires:
// - params: the deployment parameters shared with the clients
// - suite: the cryptographic suite, matching the clients'
// - verifyingKey: the verifying key from circuit.KeyGenBase
// - rand: the randomness source for keys and seeds
func NewBase(params protocol.ParamsBase, suite *crypto.Suite, verifyingKey crypto.VerifyingKey, rand io.Reader) (*Base, error) {
	if suite == nil {
		return nil, errors.New("suite cannot be nil")
	}
	if verifyingKey == nil {
		return nil, errors.New("verifying key cannot be nil")
	}
	if rand == nil {
		return nil, errors.New("randomness source cannot be nil")
	}
	pub, priv, err := suite.Signatures.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keys: %w", err)
	}
	return &Base{
		params:       params,
		suite:        suite,
		verifyingKey: verifyingKey,
		publicKey:    pub,
		privateKey:   priv,
		rand:         rand,
	}, nil
}

// PublicKey returns the server's signature verification key. Clients
// need it to check the seed contribution.
func (s *Base) PublicKey() crypto.PublicKey {
	return s.publicKey
}

// GenerateRandomnessCreate answers a client's first-round message with a
// fresh seed and a signature binding the seed to the client's commitment
// and identity. The message's Time field is informational; freshness
// policy is the caller's.
func (s *Base) GenerateRandomnessCreate(clientMsg []byte) ([]byte, error) {
	msg, err := protocol.DecodeGenRandClientBase(clientMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode client message: %w", err)
	}
	seed, err := crypto.NewRandomSeed(s.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to sample seed: %w", err)
	}
	digest, err := crypto.BindingDigest(msg.Commitment.Bytes(), msg.ClientPublicKey, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to compute binding digest: %w", err)
	}
	signature, err := s.suite.Signatures.Sign(s.privateKey, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	resp := protocol.GenRandServer{Seed: seed, Signature: signature}
	return resp.Encode(), nil
}

// VerifiableRandomizationVerify checks a randomization message. The
// server's own signature over the reconstructed binding input is checked
// first; on mismatch the proof is never touched and the result is
// (false, RejectedValue, nil). Only then is the proof verified against
// the public inputs reconstructed from the message and the time bounds.
//
// With skipProof the proof check is bypassed; only ever pair it with a
// client that also skipped proving, for benchmarks.
func (s *Base) VerifiableRandomizationVerify(clientMsg []byte, timeLower, timeUpper uint64, skipProof bool) (bool, uint64, error) {
	msg, err := protocol.DecodeRandomizeBase(clientMsg)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to decode client message: %w", err)
	}

	digest, err := crypto.BindingDigest(msg.Commitment.Bytes(), msg.ClientPublicKey, msg.Seed)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to compute binding digest: %w", err)
	}
	ok, err := s.suite.Signatures.Verify(s.publicKey, digest, msg.ServerSignature)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to verify own signature: %w", err)
	}
	if !ok {
		return false, RejectedValue, nil
	}

	if skipProof {
		return true, msg.LDPValue, nil
	}

	cfg := s.params.Config
	serverRandomness, err := s.suite.Randomness.Expand(msg.Seed, crypto.SequentialEvalPoints(0, cfg.RandomnessBytes), cfg.RandomnessBytes)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to expand seed: %w", err)
	}
	public := circuit.BasePublic{
		LDPValue:         msg.LDPValue,
		TimeLowerBound:   timeLower,
		TimeUpperBound:   timeUpper,
		ClientPublicKey:  msg.ClientPublicKey,
		Commitment:       msg.Commitment,
		ServerRandomness: serverRandomness,
	}
	ok, err = circuit.VerifyBase(s.suite.Proofs, s.verifyingKey, s.params, msg.Proof, public)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to verify proof: %w", err)
	}
	if !ok {
		return false, RejectedValue, nil
	}
	return true, msg.LDPValue, nil
}
