// Package client implements the client side of the three VLDP variants.
//
// Each client walks the same two-round session: GenerateRandomnessCreate
// commits to fresh client randomness and produces the first message,
// GenerateRandomnessVerify checks the server's contribution, and
// VerifiableRandomizationCreate combines both contributions, applies the
// LDP mechanism to a signed input, and proves the result in zero
// knowledge. Calling an operation before its predecessor succeeded
// returns protocol.ErrSessionState.
package client
