// Package circuit implements the arithmetic circuits that make local
// differential privacy verifiable, one per protocol variant, plus the
// native reference implementation of the randomization mechanism.
//
// Each circuit proves, over the BN254 scalar field, that a published
// value is the correct output of the LDP mechanism applied to a signed
// input under jointly generated randomness:
//
//   - the randomness is the XOR of the client's committed contribution
//     and the server's contribution;
//   - a biased coin drawn from the first randomness segment selects
//     between the true input and a uniform histogram bucket;
//   - the input carries a valid signature binding it to a timestamp
//     inside the public reporting window.
//
// The Base circuit binds client randomness with a public commitment, the
// Expand circuit with a Merkle membership proof at a public epoch index,
// and the Shuffle circuit moves the server's signature check and the
// randomness expansion inside the circuit so the proof reveals nothing
// about who produced it.
//
// The public input order of every circuit is its struct field
// declaration order and is part of the protocol's wire contract.
//
// Apply is the native counterpart the circuits constrain against;
// provers use its intermediate values as auxiliary witnesses.
package circuit
