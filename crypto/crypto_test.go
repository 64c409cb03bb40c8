package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitmentRoundTrip(t *testing.T) {
	committer, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)

	data := []byte("twenty-three bytes of any shape")
	opening, err := NewRandomOpening(rand.Reader)
	require.NoError(t, err)

	commitment, err := committer.Commit(data, opening)
	require.NoError(t, err)
	require.Len(t, commitment.Bytes(), CommitmentSize)

	ok, err := committer.VerifyOpening(commitment, data, opening)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCommitmentBinding(t *testing.T) {
	committer, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)

	data := []byte{1, 2, 3, 4}
	opening, err := NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	commitment, err := committer.Commit(data, opening)
	require.NoError(t, err)

	ok, err := committer.VerifyOpening(commitment, []byte{1, 2, 3, 5}, opening)
	require.NoError(t, err)
	require.False(t, ok)

	otherOpening, err := NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	ok, err = committer.VerifyOpening(commitment, data, otherOpening)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitmentTagSeparatesDeployments(t *testing.T) {
	a, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)
	b, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)

	opening, err := NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	data := []byte{42}

	ca, err := a.Commit(data, opening)
	require.NoError(t, err)
	cb, err := b.Commit(data, opening)
	require.NoError(t, err)
	require.False(t, ca.Equal(cb))

	// Rebuilding from the exported tag reproduces the commitments.
	a2, err := NewMiMCCommitterFromTag(a.Tag())
	require.NoError(t, err)
	ca2, err := a2.Commit(data, opening)
	require.NoError(t, err)
	require.True(t, ca.Equal(ca2))
}

func TestPRFDeterministicBlocks(t *testing.T) {
	seed, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)

	prf := MiMCPRF{}
	point := EvalPointFromUint64(7)

	b1, err := prf.Evaluate(seed, point)
	require.NoError(t, err)
	require.Len(t, b1, PRFBlockSize)
	b2, err := prf.Evaluate(seed, point)
	require.NoError(t, err)
	require.Equal(t, b1, b2)

	other, err := prf.Evaluate(seed, EvalPointFromUint64(8))
	require.NoError(t, err)
	require.NotEqual(t, b1, other)

	seed2, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	crossSeed, err := prf.Evaluate(seed2, point)
	require.NoError(t, err)
	require.NotEqual(t, b1, crossSeed)
}

func TestPRFExpand(t *testing.T) {
	seed, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	prf := MiMCPRF{}

	points := SequentialEvalPoints(0, 20)
	require.Len(t, points, 2)

	out, err := prf.Expand(seed, points, 20)
	require.NoError(t, err)
	require.Len(t, out, 20)

	// The expansion is a truncation of the block concatenation.
	first, err := prf.Evaluate(seed, points[0])
	require.NoError(t, err)
	require.Equal(t, first, out[:PRFBlockSize])

	_, err = prf.Expand(seed, points[:1], 20)
	require.Error(t, err)
}

func TestSequentialEvalPointsDisjointEpochs(t *testing.T) {
	e0 := SequentialEvalPoints(0, 40)
	e1 := SequentialEvalPoints(1, 40)
	seen := make(map[string]bool)
	for _, p := range e0 {
		seen[string(p.Bytes())] = true
	}
	for _, p := range e1 {
		require.False(t, seen[string(p.Bytes())])
	}
}

func TestEdDSASignVerify(t *testing.T) {
	scheme := EdDSA{}
	pub, priv, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.Len(t, pub.Bytes(), PublicKeySize)

	digest := DataDigest(17, 100)
	sig, err := scheme.Sign(priv, digest)
	require.NoError(t, err)
	require.Len(t, sig.Bytes(), SignatureSize)

	ok, err := scheme.Verify(pub, digest, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = scheme.Verify(pub, DataDigest(18, 100), sig)
	require.NoError(t, err)
	require.False(t, ok)

	otherPub, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	ok, err = scheme.Verify(otherPub, digest, sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBindingDigestSensitivity(t *testing.T) {
	scheme := EdDSA{}
	pub, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := scheme.GenerateKey(rand.Reader)
	require.NoError(t, err)

	committer, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)
	opening, err := NewRandomOpening(rand.Reader)
	require.NoError(t, err)
	commitment, err := committer.Commit([]byte{1, 2, 3}, opening)
	require.NoError(t, err)

	seed, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)

	d1, err := BindingDigest(commitment.Bytes(), pub, seed)
	require.NoError(t, err)
	d2, err := BindingDigest(commitment.Bytes(), pub, seed)
	require.NoError(t, err)
	require.Equal(t, d1, d2)

	d3, err := BindingDigest(commitment.Bytes(), otherPub, seed)
	require.NoError(t, err)
	require.NotEqual(t, d1, d3)

	otherSeed, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)
	d4, err := BindingDigest(commitment.Bytes(), pub, otherSeed)
	require.NoError(t, err)
	require.NotEqual(t, d1, d4)
}

func TestMerkleTree(t *testing.T) {
	committer, err := NewMiMCCommitter(rand.Reader)
	require.NoError(t, err)

	const depth = 3
	leaves := make([][]byte, 1<<depth)
	for i := range leaves {
		opening, err := NewRandomOpening(rand.Reader)
		require.NoError(t, err)
		c, err := committer.Commit([]byte{byte(i)}, opening)
		require.NoError(t, err)
		leaves[i] = c.Bytes()
	}

	tree, err := BuildMerkleTree(leaves, depth)
	require.NoError(t, err)
	require.Len(t, tree.Root().Bytes(), MerkleRootSize)

	for i := range leaves {
		proof, err := tree.Prove(uint64(i))
		require.NoError(t, err)
		require.Equal(t, leaves[i], proof.Path[0])
		require.True(t, VerifyMerkleProof(tree.Root(), proof, uint64(i)))
	}

	// A proof does not verify at another index.
	proof, err := tree.Prove(2)
	require.NoError(t, err)
	require.False(t, VerifyMerkleProof(tree.Root(), proof, 3))

	_, err = BuildMerkleTree(leaves[:5], depth)
	require.Error(t, err)
}

func TestSeedXor(t *testing.T) {
	a := NewSeedFromBytes(make([]byte, SeedSize))
	b, err := NewRandomSeed(rand.Reader)
	require.NoError(t, err)

	x, err := a.Xor(b)
	require.NoError(t, err)
	require.Equal(t, b.Bytes(), x.Bytes())

	self, err := b.Xor(b)
	require.NoError(t, err)
	require.Equal(t, make([]byte, SeedSize), self.Bytes())

	_, err = b.Xor(NewSeedFromBytes([]byte{1}))
	require.Error(t, err)
}
