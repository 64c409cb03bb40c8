package circuit

import (
	"crypto/rand"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
)

// baseFixture holds everything an honest Base prover knows.
type baseFixture struct {
	params protocol.ParamsBase
	public BasePublic
	secret BaseSecret
}

func newBaseFixture(t *testing.T, cfg protocol.Config, trueValue uint64, time uint64) baseFixture {
	t.Helper()
	suite, err := crypto.NewSuite(crypto.NewGroth16(), rand.Reader)
	require.NoError(t, err)
	params, err := protocol.SetupBase(0.5, cfg, suite)
	require.NoError(t, err)

	scheme := crypto.EdDSA{}
	clientPub, clientPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	clientRandomness := make([]byte, cfg.RandomnessBytes)
	_, err = rand.Read(clientRandomness)
	require.NoError(t, err)
	opening, err := crypto.NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	commitment, err := suite.Commitments.Commit(clientRandomness, opening)
	require.NoError(t, err)

	serverSeed, err := crypto.NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	serverRandomness, err := suite.Randomness.Expand(serverSeed, crypto.SequentialEvalPoints(0, cfg.RandomnessBytes), cfg.RandomnessBytes)
	require.NoError(t, err)

	randomness, err := XorBytes(clientRandomness, serverRandomness)
	require.NoError(t, err)
	trace, err := Apply(cfg, params.GammaEnc, randomness, trueValue)
	require.NoError(t, err)

	signature, err := scheme.Sign(clientPriv, crypto.DataDigest(trueValue, time))
	require.NoError(t, err)

	return baseFixture{
		params: params,
		public: BasePublic{
			LDPValue:         trace.Value,
			TimeLowerBound:   time - 50,
			TimeUpperBound:   time + 50,
			ClientPublicKey:  clientPub,
			Commitment:       commitment,
			ServerRandomness: serverRandomness,
		},
		secret: BaseSecret{
			TrueValue:          trueValue,
			Time:               time,
			TrueValueSignature: signature,
			ClientRandomness:   clientRandomness,
			Opening:            opening,
		},
	}
}

func TestBaseCircuitSatisfied(t *testing.T) {
	for _, cfg := range []protocol.Config{discConfig(), contConfig()} {
		fx := newBaseFixture(t, cfg, 3, 1000)
		assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
		require.NoError(t, err)
		require.NoError(t, test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField()))
	}
}

func TestBaseCircuitRejectsWrongValue(t *testing.T) {
	fx := newBaseFixture(t, discConfig(), 3, 1000)
	assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
	require.NoError(t, err)

	wrong := fx.public.LDPValue%fx.params.Config.K + 1
	if wrong == fx.public.LDPValue {
		wrong++
	}
	assignment.LDPValue = wrong
	require.Error(t, test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField()))
}

func TestBaseCircuitRejectsTamperedRandomness(t *testing.T) {
	fx := newBaseFixture(t, discConfig(), 3, 1000)
	assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
	require.NoError(t, err)

	// Flipping any committed byte breaks the commitment constraint.
	assignment.ClientRandomness[0] = fx.secret.ClientRandomness[0] ^ 1
	require.Error(t, test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField()))
}

func TestBaseCircuitRejectsForeignSignature(t *testing.T) {
	fx := newBaseFixture(t, discConfig(), 3, 1000)

	// A signature from a different key fails in-circuit verification.
	scheme := crypto.EdDSA{}
	_, otherPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	forged, err := scheme.Sign(otherPriv, crypto.DataDigest(fx.secret.TrueValue, fx.secret.Time))
	require.NoError(t, err)
	fx.secret.TrueValueSignature = forged

	assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
	require.NoError(t, err)
	require.Error(t, test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField()))
}

func TestBaseCircuitTimeWindowEdges(t *testing.T) {
	cfg := discConfig()
	cases := []struct {
		name  string
		time  uint64
		lower uint64
		upper uint64
		ok    bool
	}{
		{"inside", 100, 50, 150, true},
		{"at upper bound", 150, 50, 150, true},
		{"at lower bound", 50, 50, 150, false},
		{"just above lower", 51, 50, 150, true},
		{"above upper", 151, 50, 150, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newBaseFixture(t, cfg, 3, tc.time)
			fx.public.TimeLowerBound = tc.lower
			fx.public.TimeUpperBound = tc.upper
			assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
			require.NoError(t, err)
			err = test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField())
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestBaseCircuitRejectsShiftedBucket(t *testing.T) {
	cfg := discConfig()
	// Gamma 1 forces the uniform branch, so the bucket constraint is
	// the binding one.
	suite, err := crypto.NewSuite(crypto.NewGroth16(), rand.Reader)
	require.NoError(t, err)
	params, err := protocol.SetupBase(1.0, cfg, suite)
	require.NoError(t, err)
	fx := newBaseFixtureWithParams(t, params, 3, 1000)

	assignment, err := baseAssignment(fx.params, fx.public, fx.secret)
	require.NoError(t, err)

	// Claim the neighboring bucket.
	shifted := fx.public.LDPValue%cfg.K + 1
	assignment.UniformValue = shifted
	assignment.LDPValue = shifted
	require.Error(t, test.IsSolved(NewBase(fx.params), assignment, ecc.BN254.ScalarField()))
}

// newBaseFixtureWithParams rebuilds a fixture against existing
// parameters, so tests can pin gamma.
func newBaseFixtureWithParams(t *testing.T, params protocol.ParamsBase, trueValue, time uint64) baseFixture {
	t.Helper()
	cfg := params.Config

	scheme := crypto.EdDSA{}
	clientPub, clientPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	committer, err := crypto.NewMiMCCommitterFromTag(params.Tag)
	require.NoError(t, err)

	clientRandomness := make([]byte, cfg.RandomnessBytes)
	_, err = rand.Read(clientRandomness)
	require.NoError(t, err)
	opening, err := crypto.NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	commitment, err := committer.Commit(clientRandomness, opening)
	require.NoError(t, err)

	serverSeed, err := crypto.NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	serverRandomness, err := crypto.MiMCPRF{}.Expand(serverSeed, crypto.SequentialEvalPoints(0, cfg.RandomnessBytes), cfg.RandomnessBytes)
	require.NoError(t, err)

	randomness, err := XorBytes(clientRandomness, serverRandomness)
	require.NoError(t, err)
	trace, err := Apply(cfg, params.GammaEnc, randomness, trueValue)
	require.NoError(t, err)

	signature, err := scheme.Sign(clientPriv, crypto.DataDigest(trueValue, time))
	require.NoError(t, err)

	return baseFixture{
		params: params,
		public: BasePublic{
			LDPValue:         trace.Value,
			TimeLowerBound:   time - 50,
			TimeUpperBound:   time + 50,
			ClientPublicKey:  clientPub,
			Commitment:       commitment,
			ServerRandomness: serverRandomness,
		},
		secret: BaseSecret{
			TrueValue:          trueValue,
			Time:               time,
			TrueValueSignature: signature,
			ClientRandomness:   clientRandomness,
			Opening:            opening,
		},
	}
}

func TestExpandCircuitSatisfiedAndIndexBound(t *testing.T) {
	cfg := discConfig()
	suite, err := crypto.NewSuite(crypto.NewGroth16(), rand.Reader)
	require.NoError(t, err)
	params, err := protocol.SetupExpand(0.5, cfg, suite)
	require.NoError(t, err)

	scheme := crypto.EdDSA{}
	clientPub, clientPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	// One commitment per epoch, bound together by the tree.
	epochs := cfg.Epochs()
	randomnesses := make([][]byte, epochs)
	openings := make([]crypto.Opening, epochs)
	leaves := make([][]byte, epochs)
	for i := 0; i < epochs; i++ {
		randomnesses[i] = make([]byte, cfg.RandomnessBytes)
		_, err = rand.Read(randomnesses[i])
		require.NoError(t, err)
		openings[i], err = crypto.NewRandomOpening(rand.Reader)
		require.NoError(t, err)
		c, err := suite.Commitments.Commit(randomnesses[i], openings[i])
		require.NoError(t, err)
		leaves[i] = c.Bytes()
	}
	tree, err := crypto.BuildMerkleTree(leaves, cfg.MerkleDepth)
	require.NoError(t, err)

	serverSeed, err := crypto.NewRandomSeed(rand.Reader)
	require.NoError(t, err)

	const index = 2
	const trueValue = 4
	const time = 1000
	serverRandomness, err := suite.Randomness.Expand(serverSeed, crypto.SequentialEvalPoints(index, cfg.RandomnessBytes), cfg.RandomnessBytes)
	require.NoError(t, err)
	randomness, err := XorBytes(randomnesses[index], serverRandomness)
	require.NoError(t, err)
	trace, err := Apply(cfg, params.GammaEnc, randomness, trueValue)
	require.NoError(t, err)
	signature, err := scheme.Sign(clientPriv, crypto.DataDigest(trueValue, time))
	require.NoError(t, err)
	path, err := tree.Prove(index)
	require.NoError(t, err)

	public := ExpandPublic{
		LDPValue:         trace.Value,
		TimeLowerBound:   time - 50,
		TimeUpperBound:   time + 50,
		ClientPublicKey:  clientPub,
		Root:             tree.Root(),
		Index:            index,
		ServerRandomness: serverRandomness,
	}
	secret := ExpandSecret{
		TrueValue:          trueValue,
		Time:               time,
		TrueValueSignature: signature,
		ClientRandomness:   randomnesses[index],
		Opening:            openings[index],
		MerklePath:         path,
	}

	assignment, err := expandAssignment(params, public, secret)
	require.NoError(t, err)
	require.NoError(t, test.IsSolved(NewExpand(params), assignment, ecc.BN254.ScalarField()))

	// Replaying the same epoch material at another public index fails:
	// the membership gadget binds the path to the index.
	public.Index = 3
	replay, err := expandAssignment(params, public, secret)
	require.NoError(t, err)
	require.Error(t, test.IsSolved(NewExpand(params), replay, ecc.BN254.ScalarField()))
}

func TestShuffleCircuitSatisfied(t *testing.T) {
	cfg := discConfig()
	suite, err := crypto.NewSuite(crypto.NewGroth16(), rand.Reader)
	require.NoError(t, err)
	params, err := protocol.SetupShuffle(0.5, cfg, suite)
	require.NoError(t, err)

	scheme := crypto.EdDSA{}
	clientPub, clientPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	serverPub, serverPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	clientSeed, err := crypto.NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	serverSeed, err := crypto.NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	opening, err := crypto.NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	commitment, err := suite.Commitments.Commit(clientSeed.Bytes(), opening)
	require.NoError(t, err)

	binding, err := crypto.BindingDigest(commitment.Bytes(), clientPub, serverSeed)
	require.NoError(t, err)
	serverSig, err := scheme.Sign(serverPriv, binding)
	require.NoError(t, err)

	points, err := protocol.RandomEvalPoints(rand.Reader, params.PRFChunks())
	require.NoError(t, err)

	combined, err := clientSeed.Xor(serverSeed)
	require.NoError(t, err)
	randomness, err := suite.Randomness.Expand(combined, points, cfg.RandomnessBytes)
	require.NoError(t, err)

	const trueValue = 7
	const time = 1000
	trace, err := Apply(cfg, params.GammaEnc, randomness, trueValue)
	require.NoError(t, err)
	signature, err := scheme.Sign(clientPriv, crypto.DataDigest(trueValue, time))
	require.NoError(t, err)

	public := ShufflePublic{
		LDPValue:        trace.Value,
		TimeLowerBound:  time - 50,
		TimeUpperBound:  time + 50,
		ServerPublicKey: serverPub,
		EvalPoints:      points,
	}
	secret := ShuffleSecret{
		TrueValue:          trueValue,
		Time:               time,
		TrueValueSignature: signature,
		ClientPublicKey:    clientPub,
		ClientSeed:         clientSeed,
		ServerSeed:         serverSeed,
		Opening:            opening,
		ServerSignature:    serverSig,
	}

	assignment, err := shuffleAssignment(params, public, secret)
	require.NoError(t, err)
	require.NoError(t, test.IsSolved(NewShuffle(params), assignment, ecc.BN254.ScalarField()))

	// The in-circuit binding check replaces the server's native
	// prefilter: a signature from another server key fails.
	_, otherPriv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	forged, err := scheme.Sign(otherPriv, binding)
	require.NoError(t, err)
	secret.ServerSignature = forged
	bad, err := shuffleAssignment(params, public, secret)
	require.NoError(t, err)
	require.Error(t, test.IsSolved(NewShuffle(params), bad, ecc.BN254.ScalarField()))
}
