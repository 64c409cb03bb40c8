package client

import (
	"errors"
	"fmt"
	"io"

	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// Expand runs the client side of the Expand variant. One two-round
// session buys a whole batch of epochs: the client commits to one
// randomness string per epoch under a single Merkle root, and each
// subsequent randomization consumes the next epoch.
type Expand struct {
	params          protocol.ParamsExpand
	suite           *crypto.Suite
	provingKey      crypto.ProvingKey
	publicKey       crypto.PublicKey
	serverPublicKey crypto.PublicKey
	rand            io.Reader

	pending *expandPending
	ready   *expandReady
}

// expandPending holds the per-epoch commitment material for a batch.
type expandPending struct {
	randomness [][]byte
	openings   []crypto.Opening
	tree       *crypto.MerkleTree
}

// expandReady additionally holds the server contribution and the epoch
// cursor. The epoch index never travels on the wire; both sides count.
type expandReady struct {
	expandPending
	seed            crypto.Seed
	serverSignature crypto.Signature
	nextEpoch       uint64
}

// NewExpand creates an Expand client. The parameters mirror NewBase; the
// batch size is fixed by params.Config.MerkleDepth.
func NewExpand(params protocol.ParamsExpand, suite *crypto.Suite, provingKey crypto.ProvingKey,
	clientPublicKey, serverPublicKey crypto.PublicKey, rand io.Reader) (*Expand, error) {
	if suite == nil {
		return nil, errors.New("suite cannot be nil")
	}
	if provingKey == nil {
		return nil, errors.New("proving key cannot be nil")
	}
	if rand == nil {
		return nil, errors.New("randomness source cannot be nil")
	}
	return &Expand{
		params:          params,
		suite:           suite,
		provingKey:      provingKey,
		publicKey:       clientPublicKey,
		serverPublicKey: serverPublicKey,
		rand:            rand,
	}, nil
}

// GenerateRandomnessCreate samples and commits one randomness string per
// epoch, builds the Merkle tree over the commitments, and returns the
// serialized first-round message carrying the root. Calling it again
// discards any batch in progress, including unused epochs.
func (c *Expand) GenerateRandomnessCreate() ([]byte, error) {
	cfg := c.params.Config
	epochs := cfg.Epochs()
	randomness := make([][]byte, epochs)
	openings := make([]crypto.Opening, epochs)
	leaves := make([][]byte, epochs)
	for i := 0; i < epochs; i++ {
		randomness[i] = make([]byte, cfg.RandomnessBytes)
		if _, err := io.ReadFull(c.rand, randomness[i]); err != nil {
			return nil, fmt.Errorf("failed to sample randomness: %w", err)
		}
		opening, err := crypto.NewRandomOpening(c.rand)
		if err != nil {
			return nil, fmt.Errorf("failed to sample opening: %w", err)
		}
		commitment, err := c.suite.Commitments.Commit(randomness[i], opening)
		if err != nil {
			return nil, fmt.Errorf("failed to commit epoch %d: %w", i, err)
		}
		openings[i] = opening
		leaves[i] = commitment.Bytes()
	}
	tree, err := crypto.BuildMerkleTree(leaves, cfg.MerkleDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to build commitment tree: %w", err)
	}

	c.pending = &expandPending{randomness: randomness, openings: openings, tree: tree}
	c.ready = nil

	msg := protocol.GenRandClientExpand{
		Root:            tree.Root(),
		ClientPublicKey: c.publicKey,
	}
	return msg.Encode(), nil
}

// GenerateRandomnessVerify checks the server's seed contribution against
// the pending Merkle root. A bad signature is reported as false, not an
// error.
func (c *Expand) GenerateRandomnessVerify(serverMsg []byte) (bool, error) {
	if c.pending == nil {
		return false, fmt.Errorf("no committed batch: %w", protocol.ErrSessionState)
	}
	msg, err := protocol.DecodeGenRandServer(serverMsg)
	if err != nil {
		return false, fmt.Errorf("failed to decode server message: %w", err)
	}
	root := c.pending.tree.Root()
	digest, err := crypto.BindingDigest(root.Bytes(), c.publicKey, msg.Seed)
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

	c.ready = &expandReady{
		expandPending:   *c.pending,
		seed:            msg.Seed,
		serverSignature: msg.Signature,
	}
	c.pending = nil
	return true, nil
}

// NextEpoch returns the epoch index the next randomization will consume.
// The server must verify against the same index.
func (c *Expand) NextEpoch() (uint64, error) {
	if c.ready == nil {
		return 0, fmt.Errorf("no verified batch: %w", protocol.ErrSessionState)
	}
	return c.ready.nextEpoch, nil
}

// VerifiableRandomizationCreate consumes the next epoch of the batch:
// it combines that epoch's committed randomness with the server seed
// expanded at the epoch's evaluation points, applies the mechanism,
// proves membership of the epoch commitment under the root, and returns
// the serialized randomization message. The batch stays usable until all
// epochs are spent.
func (c *Expand) VerifiableRandomizationCreate(timeLower, timeUpper, time, trueValue uint64,
	signature crypto.Signature, skipProof bool) ([]byte, error) {
	if c.ready == nil {
		return nil, fmt.Errorf("no verified batch: %w", protocol.ErrSessionState)
	}
	session := c.ready
	cfg := c.params.Config
	if session.nextEpoch >= uint64(cfg.Epochs()) {
		return nil, fmt.Errorf("batch exhausted after %d epochs: %w", cfg.Epochs(), protocol.ErrSessionState)
	}
	epoch := session.nextEpoch

	serverRandomness, err := c.suite.Randomness.Expand(session.seed, crypto.SequentialEvalPoints(epoch, cfg.RandomnessBytes), cfg.RandomnessBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to expand server seed: %w", err)
	}
	randomness, err := circuit.XorBytes(session.randomness[epoch], serverRandomness)
	if err != nil {
		return nil, err
	}
	trace, err := circuit.Apply(cfg, c.params.GammaEnc, randomness, trueValue)
	if err != nil {
		return nil, fmt.Errorf("failed to randomize input: %w", err)
	}
	path, err := session.tree.Prove(epoch)
	if err != nil {
		return nil, fmt.Errorf("failed to prove tree membership: %w", err)
	}

	public := circuit.ExpandPublic{
		LDPValue:         trace.Value,
		TimeLowerBound:   timeLower,
		TimeUpperBound:   timeUpper,
		ClientPublicKey:  c.publicKey,
		Root:             session.tree.Root(),
		Index:            epoch,
		ServerRandomness: serverRandomness,
	}
	secret := circuit.ExpandSecret{
		TrueValue:          trueValue,
		Time:               time,
		TrueValueSignature: signature,
		ClientRandomness:   session.randomness[epoch],
		Opening:            session.openings[epoch],
		MerklePath:         path,
	}

	var proof []byte
	if !skipProof {
		proof, err = circuit.ProveExpand(c.suite.Proofs, c.provingKey, c.params, public, secret)
		if err != nil {
			return nil, fmt.Errorf("failed to prove: %w", err)
		}
	}

	session.nextEpoch++

	msg := protocol.RandomizeExpand{
		ClientPublicKey: c.publicKey,
		Root:            session.tree.Root(),
		Seed:            session.seed,
		ServerSignature: session.serverSignature,
		Proof:           proof,
		LDPValue:        trace.Value,
	}
	return msg.Encode(), nil
}
