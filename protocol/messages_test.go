package protocol

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/PlasmaXD/VLDP/crypto"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func randomUint64(t *testing.T) uint64 {
	t.Helper()
	b := randomBytes(t, 8)
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func TestMessageRoundTrips(t *testing.T) {
	for i := 0; i < 100; i++ {
		base := &GenRandClientBase{
			Commitment:      crypto.NewCommitmentFromBytes(randomBytes(t, crypto.CommitmentSize)),
			ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
			Time:            randomUint64(t),
		}
		decodedBase, err := DecodeGenRandClientBase(base.Encode())
		require.NoError(t, err)
		require.Equal(t, base, decodedBase)

		expand := &GenRandClientExpand{
			Root:            crypto.NewMerkleRootFromBytes(randomBytes(t, crypto.MerkleRootSize)),
			ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
		}
		decodedExpand, err := DecodeGenRandClientExpand(expand.Encode())
		require.NoError(t, err)
		require.Equal(t, expand, decodedExpand)

		shuffle := &GenRandClientShuffle{
			Commitment:      crypto.NewCommitmentFromBytes(randomBytes(t, crypto.CommitmentSize)),
			ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
		}
		decodedShuffle, err := DecodeGenRandClientShuffle(shuffle.Encode())
		require.NoError(t, err)
		require.Equal(t, shuffle, decodedShuffle)

		server := &GenRandServer{
			Seed:      crypto.NewSeedFromBytes(randomBytes(t, crypto.SeedSize)),
			Signature: crypto.NewSignature(randomBytes(t, crypto.SignatureSize)),
		}
		decodedServer, err := DecodeGenRandServer(server.Encode())
		require.NoError(t, err)
		require.Equal(t, server, decodedServer)

		randBase := &RandomizeBase{
			ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
			Commitment:      crypto.NewCommitmentFromBytes(randomBytes(t, crypto.CommitmentSize)),
			Seed:            crypto.NewSeedFromBytes(randomBytes(t, crypto.SeedSize)),
			ServerSignature: crypto.NewSignature(randomBytes(t, crypto.SignatureSize)),
			Proof:           randomBytes(t, i%257),
			LDPValue:        randomUint64(t),
		}
		decodedRandBase, err := DecodeRandomizeBase(randBase.Encode())
		require.NoError(t, err)
		require.Equal(t, randBase, decodedRandBase)

		randExpand := &RandomizeExpand{
			ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
			Root:            crypto.NewMerkleRootFromBytes(randomBytes(t, crypto.MerkleRootSize)),
			Seed:            crypto.NewSeedFromBytes(randomBytes(t, crypto.SeedSize)),
			ServerSignature: crypto.NewSignature(randomBytes(t, crypto.SignatureSize)),
			Proof:           randomBytes(t, i%257),
			LDPValue:        randomUint64(t),
		}
		decodedRandExpand, err := DecodeRandomizeExpand(randExpand.Encode())
		require.NoError(t, err)
		require.Equal(t, randExpand, decodedRandExpand)

		randShuffle := &RandomizeShuffle{
			Proof:    randomBytes(t, i%257),
			LDPValue: randomUint64(t),
		}
		decodedRandShuffle, err := DecodeRandomizeShuffle(randShuffle.Encode())
		require.NoError(t, err)
		require.Equal(t, randShuffle, decodedRandShuffle)
	}
}

func TestDecodeRejectsTruncation(t *testing.T) {
	msg := &RandomizeBase{
		ClientPublicKey: crypto.NewPublicKeyFromBytes(randomBytes(t, crypto.PublicKeySize)),
		Commitment:      crypto.NewCommitmentFromBytes(randomBytes(t, crypto.CommitmentSize)),
		Seed:            crypto.NewSeedFromBytes(randomBytes(t, crypto.SeedSize)),
		ServerSignature: crypto.NewSignature(randomBytes(t, crypto.SignatureSize)),
		Proof:           randomBytes(t, 64),
		LDPValue:        7,
	}
	encoded := msg.Encode()

	for cut := 1; cut <= len(encoded); cut++ {
		_, err := DecodeRandomizeBase(encoded[:len(encoded)-cut])
		require.Error(t, err, "truncated by %d bytes", cut)
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	msg := &GenRandServer{
		Seed:      crypto.NewSeedFromBytes(randomBytes(t, crypto.SeedSize)),
		Signature: crypto.NewSignature(randomBytes(t, crypto.SignatureSize)),
	}
	encoded := append(msg.Encode(), 0)
	_, err := DecodeGenRandServer(encoded)
	require.Error(t, err)
}

func TestDecodeRejectsOversizedLengthPrefix(t *testing.T) {
	msg := &RandomizeShuffle{Proof: []byte{1, 2, 3}, LDPValue: 1}
	encoded := msg.Encode()
	// Claim a proof longer than the buffer.
	encoded[0], encoded[1], encoded[2], encoded[3] = 0xFF, 0xFF, 0xFF, 0xFF
	_, err := DecodeRandomizeShuffle(encoded)
	require.Error(t, err)
}
