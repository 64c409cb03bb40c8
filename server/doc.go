// Package server implements the server side of the three VLDP variants.
//
// A server holds only long-term material: its EdDSA keypair and the
// circuit verifying key. Sessions carry no server-side state; everything
// the server needs to verify a randomization message is reconstructed
// from the message itself, so a single server instance can serve any
// number of concurrent clients.
package server
