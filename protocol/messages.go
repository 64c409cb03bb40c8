package protocol

import (
	"github.com/PlasmaXD/VLDP/crypto"
)

// GenRandClientBase opens a Base randomness-generation round: the client
// binds its randomness with a commitment and announces the timestamp the
// eventual sample will carry.
type GenRandClientBase struct {
	Commitment      crypto.Commitment
	ClientPublicKey crypto.PublicKey
	Time            uint64
}

// Encode renders the message in canonical wire form.
func (m *GenRandClientBase) Encode() []byte {
	var w wireWriter
	w.bytes(m.Commitment.Bytes())
	w.bytes(m.ClientPublicKey.Bytes())
	w.uint64(m.Time)
	return w.buf
}

// DecodeGenRandClientBase parses a canonical GenRandClientBase encoding.
func DecodeGenRandClientBase(data []byte) (*GenRandClientBase, error) {
	r := wireReader{buf: data}
	m := &GenRandClientBase{
		Commitment:      crypto.Commitment(r.bytes(crypto.CommitmentSize, "commitment")),
		ClientPublicKey: crypto.PublicKey(r.bytes(crypto.PublicKeySize, "client public key")),
		Time:            r.uint64("time"),
	}
	if err := r.finish("genrand client base"); err != nil {
		return nil, err
	}
	return m, nil
}

// GenRandClientExpand opens an Expand randomness-generation round: one
// Merkle root binds a whole batch of per-epoch commitments.
type GenRandClientExpand struct {
	Root            crypto.MerkleRoot
	ClientPublicKey crypto.PublicKey
}

// Encode renders the message in canonical wire form.
func (m *GenRandClientExpand) Encode() []byte {
	var w wireWriter
	w.bytes(m.Root.Bytes())
	w.bytes(m.ClientPublicKey.Bytes())
	return w.buf
}

// DecodeGenRandClientExpand parses a canonical GenRandClientExpand encoding.
func DecodeGenRandClientExpand(data []byte) (*GenRandClientExpand, error) {
	r := wireReader{buf: data}
	m := &GenRandClientExpand{
		Root:            crypto.MerkleRoot(r.bytes(crypto.MerkleRootSize, "merkle root")),
		ClientPublicKey: crypto.PublicKey(r.bytes(crypto.PublicKeySize, "client public key")),
	}
	if err := r.finish("genrand client expand"); err != nil {
		return nil, err
	}
	return m, nil
}

// GenRandClientShuffle opens a Shuffle randomness-generation round: the
// client commits to its seed share.
type GenRandClientShuffle struct {
	Commitment      crypto.Commitment
	ClientPublicKey crypto.PublicKey
}

// Encode renders the message in canonical wire form.
func (m *GenRandClientShuffle) Encode() []byte {
	var w wireWriter
	w.bytes(m.Commitment.Bytes())
	w.bytes(m.ClientPublicKey.Bytes())
	return w.buf
}

// DecodeGenRandClientShuffle parses a canonical GenRandClientShuffle encoding.
func DecodeGenRandClientShuffle(data []byte) (*GenRandClientShuffle, error) {
	r := wireReader{buf: data}
	m := &GenRandClientShuffle{
		Commitment:      crypto.Commitment(r.bytes(crypto.CommitmentSize, "commitment")),
		ClientPublicKey: crypto.PublicKey(r.bytes(crypto.PublicKeySize, "client public key")),
	}
	if err := r.finish("genrand client shuffle"); err != nil {
		return nil, err
	}
	return m, nil
}

// GenRandServer closes the randomness-generation round for every
// variant: the server's seed share together with its signature over the
// binding digest. The binding input itself is never transmitted; both
// sides recompute it.
type GenRandServer struct {
	Seed      crypto.Seed
	Signature crypto.Signature
}

// Encode renders the message in canonical wire form.
func (m *GenRandServer) Encode() []byte {
	var w wireWriter
	w.bytes(m.Seed.Bytes())
	w.bytes(m.Signature.Bytes())
	return w.buf
}

// DecodeGenRandServer parses a canonical GenRandServer encoding.
func DecodeGenRandServer(data []byte) (*GenRandServer, error) {
	r := wireReader{buf: data}
	m := &GenRandServer{
		Seed:      crypto.Seed(r.bytes(crypto.SeedSize, "seed")),
		Signature: crypto.Signature(r.bytes(crypto.SignatureSize, "signature")),
	}
	if err := r.finish("genrand server"); err != nil {
		return nil, err
	}
	return m, nil
}

// RandomizeBase carries a Base sample: everything the server needs to
// re-verify its own signature and then the proof.
type RandomizeBase struct {
	ClientPublicKey crypto.PublicKey
	Commitment      crypto.Commitment
	Seed            crypto.Seed
	ServerSignature crypto.Signature
	Proof           []byte
	LDPValue        uint64
}

// Encode renders the message in canonical wire form.
func (m *RandomizeBase) Encode() []byte {
	var w wireWriter
	w.bytes(m.ClientPublicKey.Bytes())
	w.bytes(m.Commitment.Bytes())
	w.bytes(m.Seed.Bytes())
	w.bytes(m.ServerSignature.Bytes())
	w.lengthPrefixed(m.Proof)
	w.uint64(m.LDPValue)
	return w.buf
}

// DecodeRandomizeBase parses a canonical RandomizeBase encoding.
func DecodeRandomizeBase(data []byte) (*RandomizeBase, error) {
	r := wireReader{buf: data}
	m := &RandomizeBase{
		ClientPublicKey: crypto.PublicKey(r.bytes(crypto.PublicKeySize, "client public key")),
		Commitment:      crypto.Commitment(r.bytes(crypto.CommitmentSize, "commitment")),
		Seed:            crypto.Seed(r.bytes(crypto.SeedSize, "seed")),
		ServerSignature: crypto.Signature(r.bytes(crypto.SignatureSize, "server signature")),
		Proof:           r.lengthPrefixed("proof"),
		LDPValue:        r.uint64("ldp value"),
	}
	if err := r.finish("randomize base"); err != nil {
		return nil, err
	}
	return m, nil
}

// RandomizeExpand carries an Expand sample. The epoch index is not part
// of the message; both sides track the current epoch.
type RandomizeExpand struct {
	ClientPublicKey crypto.PublicKey
	Root            crypto.MerkleRoot
	Seed            crypto.Seed
	ServerSignature crypto.Signature
	Proof           []byte
	LDPValue        uint64
}

// Encode renders the message in canonical wire form.
func (m *RandomizeExpand) Encode() []byte {
	var w wireWriter
	w.bytes(m.ClientPublicKey.Bytes())
	w.bytes(m.Root.Bytes())
	w.bytes(m.Seed.Bytes())
	w.bytes(m.ServerSignature.Bytes())
	w.lengthPrefixed(m.Proof)
	w.uint64(m.LDPValue)
	return w.buf
}

// DecodeRandomizeExpand parses a canonical RandomizeExpand encoding.
func DecodeRandomizeExpand(data []byte) (*RandomizeExpand, error) {
	r := wireReader{buf: data}
	m := &RandomizeExpand{
		ClientPublicKey: crypto.PublicKey(r.bytes(crypto.PublicKeySize, "client public key")),
		Root:            crypto.MerkleRoot(r.bytes(crypto.MerkleRootSize, "merkle root")),
		Seed:            crypto.Seed(r.bytes(crypto.SeedSize, "seed")),
		ServerSignature: crypto.Signature(r.bytes(crypto.SignatureSize, "server signature")),
		Proof:           r.lengthPrefixed("proof"),
		LDPValue:        r.uint64("ldp value"),
	}
	if err := r.finish("randomize expand"); err != nil {
		return nil, err
	}
	return m, nil
}

// RandomizeShuffle carries a Shuffle sample. Only the proof and the
// value travel; everything identifying lives inside the proof witness,
// so the message survives a shuffler without linking back to the client.
type RandomizeShuffle struct {
	Proof    []byte
	LDPValue uint64
}

// Encode renders the message in canonical wire form.
func (m *RandomizeShuffle) Encode() []byte {
	var w wireWriter
	w.lengthPrefixed(m.Proof)
	w.uint64(m.LDPValue)
	return w.buf
}

// DecodeRandomizeShuffle parses a canonical RandomizeShuffle encoding.
func DecodeRandomizeShuffle(data []byte) (*RandomizeShuffle, error) {
	r := wireReader{buf: data}
	m := &RandomizeShuffle{
		Proof:    r.lengthPrefixed("proof"),
		LDPValue: r.uint64("ldp value"),
	}
	if err := r.finish("randomize shuffle"); err != nil {
		return nil, err
	}
	return m, nil
}
