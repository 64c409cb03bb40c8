package server

import (
	"errors"
	"fmt"
	"io"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Expand runs the server side of the Expand variant. One seed signature
// covers a whole batch of epochs; the epoch index never travels on the
// wire, so the caller supplies the index it expects next for each client.
type Expand struct {
	params       protocol.ParamsExpand
	suite        *crypto.Suite
	verifyingKey crypto.VerifyingKey
	publicKey    crypto.PublicKey
	privateKey   crypto.PrivateKey
	rand         io.Reader
}

// NewExpand creates an Expand server with a fresh long-term signing
// keypair. The parameters mirror NewBase.
func NewExpand(params protocol.ParamsExpand, suite *crypto.Suite, verifyingKey crypto.VerifyingKey, rand io.Reader) (*Expand, error) {
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
	return &Expand{
		params:       params,
		suite:        suite,
		verifyingKey: verifyingKey,
		publicKey:    pub,
		privateKey:   priv,
		rand:         rand,
	}, nil
}

// PublicKey returns the server's signature verification key.
func (s *Expand) PublicKey() crypto.PublicKey {
	return s.publicKey
}

// GenerateRandomnessCreate answers a client's batch commitment with a
// fresh seed and a signature binding the seed to the Merkle root and the
// client's identity.
func (s *Expand) GenerateRandomnessCreate(clientMsg []byte) ([]byte, error) {
	msg, err := protocol.DecodeGenRandClientExpand(clientMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode client message: %w", err)
	}
	seed, err := crypto.NewRandomSeed(s.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to sample seed: %w", err)
	}
	digest, err := crypto.BindingDigest(msg.Root.Bytes(), msg.ClientPublicKey, seed)
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

// VerifiableRandomizationVerify checks a randomization message against
// the given epoch index. The signature prefilter and the skipProof
// hazard work exactly as in Base.
func (s *Expand) VerifiableRandomizationVerify(clientMsg []byte, timeLower, timeUpper, epoch uint64, skipProof bool) (bool, uint64, error) {
	msg, err := protocol.DecodeRandomizeExpand(clientMsg)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to decode client message: %w", err)
	}
	if epoch >= uint64(s.params.Config.Epochs()) {
		return false, RejectedValue, fmt.Errorf("epoch %d outside batch of %d", epoch, s.params.Config.Epochs())
	}

	digest, err := crypto.BindingDigest(msg.Root.Bytes(), msg.ClientPublicKey, msg.Seed)
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
	serverRandomness, err := s.suite.Randomness.Expand(msg.Seed, crypto.SequentialEvalPoints(epoch, cfg.RandomnessBytes), cfg.RandomnessBytes)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to expand seed: %w", err)
	}
	public := circuit.ExpandPublic{
		LDPValue:         msg.LDPValue,
		TimeLowerBound:   timeLower,
		TimeUpperBound:   timeUpper,
		ClientPublicKey:  msg.ClientPublicKey,
		Root:             msg.Root,
		Index:            epoch,
		ServerRandomness: serverRandomness,
	}
	ok, err = circuit.VerifyExpand(s.suite.Proofs, s.verifyingKey, s.params, msg.Proof, public)
	if err != nil {
		return false, RejectedValue, fmt.Errorf("failed to verify proof: %w", err)
	}
	if !ok {
		return false, RejectedValue, nil
	}
	return true, msg.LDPValue, nil
}
