package crypto

import (
	"fmt"
	"io"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards/eddsa"
)

// EdDSA signs digests on the BN254 twisted Edwards curve with MiMC as the
// inner hash. The same signatures verify natively and inside circuits.
type EdDSA struct{}

// GenerateKey samples a fresh key pair from rand.
func (EdDSA) GenerateKey(rand io.Reader) (PublicKey, PrivateKey, error) {
	key, err := eddsa.GenerateKey(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("generate eddsa key: %w", err)
	}
	pub := key.PublicKey.Bytes()
	priv := key.Bytes()
	return NewPublicKeyFromBytes(pub[:]), NewPrivateKeyFromBytes(priv[:]), nil
}

// Sign signs a digest with the private key. The digest must be one
// canonical field element, as produced by BindingDigest or DataDigest.
func (EdDSA) Sign(sk PrivateKey, digest []byte) (Signature, error) {
	var key eddsa.PrivateKey
	if _, err := key.SetBytes(sk.Bytes()); err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	sig, err := key.Sign(digest, mimc.NewMiMC())
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return NewSignature(sig), nil
}

// Verify reports whether sig is a valid signature on digest under pk.
// Undecodable keys or signatures verify as false.
func (EdDSA) Verify(pk PublicKey, digest []byte, sig Signature) (bool, error) {
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pk.Bytes()); err != nil {
		return false, nil
	}
	ok, err := pub.Verify(sig.Bytes(), digest, mimc.NewMiMC())
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// publicKeyCoordinates decompresses a public key into its affine curve
// coordinates. Digests and circuits bind keys by coordinates because the
// compressed encoding is not a canonical field element.
func publicKeyCoordinates(pk PublicKey) (x, y fr.Element, err error) {
	var pub eddsa.PublicKey
	if _, err := pub.SetBytes(pk.Bytes()); err != nil {
		return x, y, fmt.Errorf("decode public key: %w", err)
	}
	return pub.A.X, pub.A.Y, nil
}

// PublicKeyCoordinates exposes the affine coordinates of a public key as
// canonical field element bytes, for circuit assignment. Unlike the
// gnark assignment helpers it rejects malformed keys with an error
// instead of panicking, so wire input stays safe to assign.
func PublicKeyCoordinates(pk PublicKey) (x, y []byte, err error) {
	xe, ye, err := publicKeyCoordinates(pk)
	if err != nil {
		return nil, nil, err
	}
	return xe.Marshal(), ye.Marshal(), nil
}

// SignatureComponents splits a signature into the affine coordinates of
// R and the scalar S, for circuit assignment. Malformed signatures are
// rejected with an error instead of a panic.
func SignatureComponents(sig Signature) (rx, ry, s []byte, err error) {
	var native eddsa.Signature
	if _, err := native.SetBytes(sig.Bytes()); err != nil {
		return nil, nil, nil, fmt.Errorf("decode signature: %w", err)
	}
	scalar := make([]byte, len(native.S))
	copy(scalar, native.S[:])
	return native.R.X.Marshal(), native.R.Y.Marshal(), scalar, nil
}
