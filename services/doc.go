// Package services exposes the VLDP servers over HTTP.
//
// A collector couples one variant server with an aggregator: it answers
// the GenRand round, verifies randomization messages, and tallies the
// accepted values. Protocol messages travel as raw canonical bytes in
// request and response bodies; everything else (histograms, evaluation
// points, verification results) is JSON.
//
// Verified samples can additionally be persisted through a SampleStore,
// for deployments that audit accepted contributions.
package services
