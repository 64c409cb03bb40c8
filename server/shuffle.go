package server

import (
	"errors"
	"fmt"
	"io"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Shuffle runs the server side of the Shuffle variant. Randomization
// messages arrive anonymized, so there is no signature to prefilter on;
// the binding between the seed signature and the client lives inside the
// circuit.
type Shuffle struct {
	params       protocol.ParamsShuffle
	suite        *crypto.Suite
	verifyingKey crypto.VerifyingKey
	publicKey    crypto.PublicKey
	privateKey   crypto.PrivateKey
	rand         io.Reader
}

// NewShuffle creates a Shuffle server with a fresh long-term signing
// keypair. The parameters mirror NewBase.
func NewShuffle(params protocol.ParamsShuffle, suite *crypto.Suite, verifyingKey crypto.VerifyingKey, rand io.Reader) (*Shuffle, error) {
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
	return &Shuffle{
		params:       params,
		suite:        suite,
		verifyingKey: verifyingKey,
		publicKey:    pub,
		privateKey:   priv,
		rand:         rand,
	}, nil
}

// PublicKey returns the server's signature verification key. In this
// variant it is also a public input of every proof.
func (s *Shuffle) PublicKey() crypto.PublicKey {
	return s.publicKey
}

// GenerateRandomnessCreate answers a client's seed commitment with a
// fresh seed and a signature binding the seed to the commitment and the
// client's identity. This round happens before anonymization, so the
// server still sees who it talks to.
func (s *Shuffle) GenerateRandomnessCreate(clientMsg []byte) ([]byte, error) {
	msg, err := protocol.DecodeGenRandClientShuffle(clientMsg)
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

// VerifiableRandomizationVerify checks an anonymous randomization
// message against the round's public evaluation points. Unlike Base and
// Expand there is no cheap signature prefilter; a failed proof is the
// only rejection signal, reported as (false, RejectedValue, nil).
func (s *Shuffle) VerifiableRandomizationVerify(clientMsg []byte, timeLower, timeUpper uint64, evalPoints []crypto.EvalPoint, skipProof bool) (bool, uint64, error) {
	msg, err := protocol.DecodeRandomizeShuffle(clientMsg)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to decode client message: %w", err)
	}
	if len(evalPoints) != s.params.PRFChunks() {
		return false, RejectedValue, fmt.Errorf("got %d eval points, want %d", len(evalPoints), s.params.PRFChunks())
	}

	if skipProof {
		return true, msg.LDPValue, nil
	}

	public := circuit.ShufflePublic{
		LDPValue:        msg.LDPValue,
		TimeLowerBound:  timeLower,
		TimeUpperBound:  timeUpper,
		ServerPublicKey: s.publicKey,
		EvalPoints:      evalPoints,
	}
	ok, err := circuit.VerifyShuffle(s.suite.Proofs, s.verifyingKey, s.params, msg.Proof, public)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to verify proof: %w", err)
	}
	if !ok {
		return false, RejectedValue, nil
	}
	return true, msg.LDPValue, nil
}
