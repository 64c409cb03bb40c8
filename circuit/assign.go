package circuit

import (
	"fmt"

	"github.com/consensys/gnark/std/signature/eddsa"

	"github.com/PlasmaXD/VLDP/crypto"
)

// assignPublicKey hydrates an in-circuit public key from wire bytes.
// Malformed keys fail with an error, never a panic, so adversarial wire
// input cannot crash a verifier.
func assignPublicKey(dst *eddsa.PublicKey, pk crypto.PublicKey) error {
	x, y, err := crypto.PublicKeyCoordinates(pk)
	if err != nil {
		return fmt.Errorf("assign public key: %w", err)
	}
	dst.A.X = x
	dst.A.Y = y
	return nil
}

// assignSignature hydrates an in-circuit signature from wire bytes.
func assignSignature(dst *eddsa.Signature, sig crypto.Signature) error {
	rx, ry, s, err := crypto.SignatureComponents(sig)
	if err != nil {
		return fmt.Errorf("assign signature: %w", err)
	}
	dst.R.X = rx
	dst.R.Y = ry
	dst.S = s
	return nil
}
