package crypto

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/accumulator/merkletree"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// MerkleProof is a membership proof for one leaf of a commitment tree.
// Path[0] is the leaf payload itself; the remaining entries are the
// sibling digests from leaf to root.
type MerkleProof struct {
	Path [][]byte
}

// MerkleTree is a MiMC Merkle tree over fixed-size leaf payloads. The
// Expand variant commits to a whole batch of randomness commitments with
// a single root.
type MerkleTree struct {
	depth  int
	leaves []byte
	root   MerkleRoot
}

// BuildMerkleTree builds a tree of the given depth over exactly 2^depth
// leaves, each one canonical field element.
func BuildMerkleTree(leaves [][]byte, depth int) (*MerkleTree, error) {
	if depth < 1 {
		return nil, fmt.Errorf("invalid tree depth: %d", depth)
	}
	if len(leaves) != 1<<depth {
		return nil, fmt.Errorf("tree of depth %d needs %d leaves, got %d", depth, 1<<depth, len(leaves))
	}
	buf := make([]byte, 0, len(leaves)*CommitmentSize)
	for i, leaf := range leaves {
		if len(leaf) != CommitmentSize {
			return nil, fmt.Errorf("leaf %d: invalid size %d", i, len(leaf))
		}
		buf = append(buf, leaf...)
	}
	root, _, _, err := merkletree.BuildReaderProof(bytes.NewReader(buf), mimc.NewMiMC(), CommitmentSize, 0)
	if err != nil {
		return nil, fmt.Errorf("build tree: %w", err)
	}
	return &MerkleTree{depth: depth, leaves: buf, root: NewMerkleRootFromBytes(root)}, nil
}

// Root returns the tree root.
func (t *MerkleTree) Root() MerkleRoot {
	return t.root
}

// Depth returns the tree depth.
func (t *MerkleTree) Depth() int {
	return t.depth
}

// Leaf returns a copy of the leaf payload at the given index.
func (t *MerkleTree) Leaf(index uint64) ([]byte, error) {
	if index >= uint64(1)<<t.depth {
		return nil, fmt.Errorf("leaf index %d out of range", index)
	}
	leaf := make([]byte, CommitmentSize)
	copy(leaf, t.leaves[index*CommitmentSize:])
	return leaf, nil
}

// Prove produces a membership proof for the leaf at the given index.
func (t *MerkleTree) Prove(index uint64) (MerkleProof, error) {
	if index >= uint64(1)<<t.depth {
		return MerkleProof{}, fmt.Errorf("leaf index %d out of range", index)
	}
	_, path, _, err := merkletree.BuildReaderProof(bytes.NewReader(t.leaves), mimc.NewMiMC(), CommitmentSize, index)
	if err != nil {
		return MerkleProof{}, fmt.Errorf("prove leaf %d: %w", index, err)
	}
	return MerkleProof{Path: path}, nil
}

// VerifyMerkleProof checks a membership proof against a root. The number
// of leaves is 2^depth where depth is len(proof.Path)-1.
func VerifyMerkleProof(root MerkleRoot, proof MerkleProof, index uint64) bool {
	if len(proof.Path) < 2 {
		return false
	}
	numLeaves := uint64(1) << (len(proof.Path) - 1)
	return merkletree.VerifyProof(mimc.NewMiMC(), root.Bytes(), proof.Path, index, numLeaves)
}
