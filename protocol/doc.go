// Package protocol defines the shared vocabulary of the VLDP protocol:
// the configuration and its invariants, the per-variant parameter
// bundles, the wire messages, and the canonical binary codec.
//
// # Variants
//
// Three protocol variants share the two-phase structure (randomness
// generation, then verifiable randomization) and differ in how client
// randomness is bound and who stays identifiable:
//
//   - Base: one commitment per sample, client identified to the server.
//   - Expand: one Merkle root binds a whole batch of per-epoch
//     commitments, amortizing the first phase.
//   - Shuffle: the randomization message carries only the proof and the
//     value, for use behind a shuffler; the server's signature is
//     verified inside the circuit.
//
// # Wire format
//
// Messages encode to a canonical, deterministic byte string: fixed-width
// fields in declaration order, variable-width proofs length-prefixed.
// Decoding rejects truncated input and trailing bytes with a DecodeError.
package protocol
