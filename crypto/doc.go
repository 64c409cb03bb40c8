// Package crypto provides the cryptographic primitives for verifiable
// local differential privacy.
//
// This package implements the capability set required by the protocol,
// including:
//
//   - MiMC-based commitments with random openings (randomness commitments)
//   - EdDSA signatures on the BN254 twisted Edwards curve (server and
//     client data signatures, verifiable both natively and in-circuit)
//   - A MiMC-based pseudorandom function for expanding short seeds into
//     protocol randomness
//   - MiMC Merkle trees for committing to batches of randomness (Expand)
//   - zk-SNARK proof systems (Groth16 and PLONK) over BN254
//
// All primitives hash through MiMC over the BN254 scalar field so that
// the exact same commitments, signatures, and PRF evaluations can be
// recomputed inside arithmetic circuits. Values crossing the wire are
// wrapped in typed byte containers with fixed sizes.
//
// # Suites
//
// A Suite bundles one concrete instance of every capability. Protocol
// code only ever talks to a Suite, so swapping the proof system (or any
// other primitive) is a single construction-time choice.
//
// Note: not all operations are constant-time (in particular field and
// Merkle tree math).
package crypto
