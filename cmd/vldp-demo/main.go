// Command vldp-demo runs a VLDP variant end to end on random inputs.
//
// It generates circuit keys, plays both protocol rounds for a number of
// simulated clients against one server, tallies the verified values, and
// logs message sizes and per-phase timings.
//
//	go run ./cmd/vldp-demo --variant=base --clients=4
//	go run ./cmd/vldp-demo --variant=expand --depth=2 --gamma=0.25
//	go run ./cmd/vldp-demo --variant=shuffle --backend=plonk
//	go run ./cmd/vldp-demo --variant=base --skip-proof --clients=1000
package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/PlasmaXD/VLDP/aggregator"
	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/client"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
	"github.com/PlasmaXD/VLDP/server"
)

func main() {
	var (
		variant    = flag.String("variant", "base", "protocol variant: base, expand, or shuffle")
		backend    = flag.String("backend", "groth16", "proof system: groth16 or plonk")
		gamma      = flag.Float64("gamma", 0.5, "sampling probability of the LDP mechanism")
		clients    = flag.Int("clients", 3, "number of simulated clients")
		buckets    = flag.Uint64("k", 8, "number of histogram buckets")
		depth      = flag.Int("depth", 2, "commitment tree depth (expand only)")
		continuous = flag.Bool("continuous", false, "use the continuous mechanism")
		skipProof  = flag.Bool("skip-proof", false, "skip proving and verification, for throughput measurements")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(log, *variant, *backend, *gamma, *clients, *buckets, *depth, *continuous, *skipProof); err != nil {
		log.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, variant, backend string, gamma float64, clients int, buckets uint64, depth int, continuous, skipProof bool) error {
	cfg := protocol.Config{
		InputBytes:      4,
		TimeBytes:       4,
		GammaBytes:      2,
		RandomnessBytes: 4 + 2,
		K:               buckets,
		MerkleDepth:     depth,
	}
	if continuous {
		cfg.RealInput = true
		cfg.RandomnessBytes = 2*4 + 2
	}

	var proofs crypto.ProofSystem
	switch backend {
	case "groth16":
		proofs = crypto.NewGroth16()
	case "plonk":
		proofs = crypto.NewPlonk()
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}
	suite, err := crypto.NewSuite(proofs, rand.Reader)
	if err != nil {
		return err
	}

	log.Info("starting demo",
		"variant", variant,
		"backend", proofs.Name(),
		"gamma", gamma,
		"clients", clients,
		"buckets", buckets,
		"continuous", continuous,
		"skipProof", skipProof,
	)

	switch variant {
	case "base":
		return runBase(log, cfg, gamma, clients, suite, skipProof)
	case "expand":
		return runExpand(log, cfg, gamma, clients, suite, skipProof)
	case "shuffle":
		return runShuffle(log, cfg, gamma, clients, suite, skipProof)
	default:
		return fmt.Errorf("unknown variant %q", variant)
	}
}

// reading is one signed trusted-environment sample.
type reading struct {
	value     uint64
	time      uint64
	signature crypto.Signature
}

// environment holds a simulated trusted environment keypair.
type environment struct {
	publicKey  crypto.PublicKey
	privateKey crypto.PrivateKey
	scheme     crypto.SignatureScheme
}

func newEnvironment(scheme crypto.SignatureScheme) (*environment, error) {
	pub, priv, err := scheme.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &environment{publicKey: pub, privateKey: priv, scheme: scheme}, nil
}

// sample draws a random in-domain value at the given time and signs it.
func (e *environment) sample(cfg protocol.Config, time uint64) (reading, error) {
	var max *big.Int
	if cfg.RealInput {
		max = cfg.MaxInput()
	} else {
		max = new(big.Int).SetUint64(cfg.K)
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return reading{}, err
	}
	value := n.Uint64()
	if !cfg.RealInput {
		value++
	}
	sig, err := e.scheme.Sign(e.privateKey, crypto.DataDigest(value, time))
	if err != nil {
		return reading{}, err
	}
	return reading{value: value, time: time, signature: sig}, nil
}

// window is the demo's accepted time range.
const (
	timeLower = uint64(999)
	timeUpper = uint64(2000)
	timeNow   = uint64(1500)
)

func runBase(log *slog.Logger, cfg protocol.Config, gamma float64, clients int, suite *crypto.Suite, skipProof bool) error {
	params, err := protocol.SetupBase(gamma, cfg, suite)
	if err != nil {
		return err
	}

	start := time.Now()
	pk, vk, err := circuit.KeyGenBase(suite.Proofs, params)
	if err != nil {
		return err
	}
	log.Info("key generation done", "took", time.Since(start))

	srv, err := server.NewBase(params, suite, vk, rand.Reader)
	if err != nil {
		return err
	}
	agg, err := aggregator.New(cfg)
	if err != nil {
		return err
	}

	for i := 0; i < clients; i++ {
		env, err := newEnvironment(suite.Signatures)
		if err != nil {
			return err
		}
		cl, err := client.NewBase(params, suite, pk, env.publicKey, srv.PublicKey(), rand.Reader)
		if err != nil {
			return err
		}

		genRand, err := cl.GenerateRandomnessCreate(timeNow)
		if err != nil {
			return err
		}
		resp, err := srv.GenerateRandomnessCreate(genRand)
		if err != nil {
			return err
		}
		ok, err := cl.GenerateRandomnessVerify(resp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("client %d rejected server randomness", i)
		}
		log.Info("randomness generated", "client", i, "genRandBytes", len(genRand), "responseBytes", len(resp))

		r, err := env.sample(cfg, timeNow)
		if err != nil {
			return err
		}
		proveStart := time.Now()
		randomize, err := cl.VerifiableRandomizationCreate(timeLower, timeUpper, r.time, r.value, r.signature, skipProof)
		if err != nil {
			return err
		}
		proveTook := time.Since(proveStart)

		verifyStart := time.Now()
		accepted, value, err := srv.VerifiableRandomizationVerify(randomize, timeLower, timeUpper, skipProof)
		if err != nil {
			return err
		}
		log.Info("randomization verified",
			"client", i,
			"trueValue", r.value,
			"ldpValue", value,
			"accepted", accepted,
			"messageBytes", len(randomize),
			"prove", proveTook,
			"verify", time.Since(verifyStart),
		)
		if err := agg.Record(aggregator.ContributorID(env.publicKey), accepted, value); err != nil {
			return err
		}
	}

	return report(log, agg, gamma)
}

func runExpand(log *slog.Logger, cfg protocol.Config, gamma float64, clients int, suite *crypto.Suite, skipProof bool) error {
	params, err := protocol.SetupExpand(gamma, cfg, suite)
	if err != nil {
		return err
	}

	start := time.Now()
	pk, vk, err := circuit.KeyGenExpand(suite.Proofs, params)
	if err != nil {
		return err
	}
	log.Info("key generation done", "took", time.Since(start))

	srv, err := server.NewExpand(params, suite, vk, rand.Reader)
	if err != nil {
		return err
	}
	agg, err := aggregator.New(cfg)
	if err != nil {
		return err
	}

	for i := 0; i < clients; i++ {
		env, err := newEnvironment(suite.Signatures)
		if err != nil {
			return err
		}
		cl, err := client.NewExpand(params, suite, pk, env.publicKey, srv.PublicKey(), rand.Reader)
		if err != nil {
			return err
		}

		genRand, err := cl.GenerateRandomnessCreate()
		if err != nil {
			return err
		}
		resp, err := srv.GenerateRandomnessCreate(genRand)
		if err != nil {
			return err
		}
		ok, err := cl.GenerateRandomnessVerify(resp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("client %d rejected server randomness", i)
		}
		log.Info("batch committed", "client", i, "epochs", cfg.Epochs(), "genRandBytes", len(genRand), "responseBytes", len(resp))

		// One session covers the whole batch; spend every epoch.
		for epoch := uint64(0); epoch < uint64(cfg.Epochs()); epoch++ {
			r, err := env.sample(cfg, timeNow+epoch)
			if err != nil {
				return err
			}
			proveStart := time.Now()
			randomize, err := cl.VerifiableRandomizationCreate(timeLower, timeUpper, r.time, r.value, r.signature, skipProof)
			if err != nil {
				return err
			}
			proveTook := time.Since(proveStart)

			verifyStart := time.Now()
			accepted, value, err := srv.VerifiableRandomizationVerify(randomize, timeLower, timeUpper, epoch, skipProof)
			if err != nil {
				return err
			}
			log.Info("randomization verified",
				"client", i,
				"epoch", epoch,
				"trueValue", r.value,
				"ldpValue", value,
				"accepted", accepted,
				"messageBytes", len(randomize),
				"prove", proveTook,
				"verify", time.Since(verifyStart),
			)
			id := fmt.Sprintf("%s/%d", aggregator.ContributorID(env.publicKey), epoch)
			if err := agg.Record(id, accepted, value); err != nil {
				return err
			}
		}
	}

	return report(log, agg, gamma)
}

func runShuffle(log *slog.Logger, cfg protocol.Config, gamma float64, clients int, suite *crypto.Suite, skipProof bool) error {
	params, err := protocol.SetupShuffle(gamma, cfg, suite)
	if err != nil {
		return err
	}

	start := time.Now()
	pk, vk, err := circuit.KeyGenShuffle(suite.Proofs, params)
	if err != nil {
		return err
	}
	log.Info("key generation done", "took", time.Since(start))

	srv, err := server.NewShuffle(params, suite, vk, rand.Reader)
	if err != nil {
		return err
	}
	agg, err := aggregator.New(cfg)
	if err != nil {
		return err
	}

	// The round coordinator fixes one set of evaluation points per
	// collection round; all clients prove against it.
	points, err := protocol.RandomEvalPoints(rand.Reader, params.PRFChunks())
	if err != nil {
		return err
	}

	// First everyone finishes the identified seed agreement, then the
	// anonymous randomization messages arrive in arbitrary order.
	randomizations := make([][]byte, 0, clients)
	for i := 0; i < clients; i++ {
		env, err := newEnvironment(suite.Signatures)
		if err != nil {
			return err
		}
		cl, err := client.NewShuffle(params, suite, pk, env.publicKey, srv.PublicKey(), rand.Reader)
		if err != nil {
			return err
		}

		genRand, err := cl.GenerateRandomnessCreate()
		if err != nil {
			return err
		}
		resp, err := srv.GenerateRandomnessCreate(genRand)
		if err != nil {
			return err
		}
		ok, err := cl.GenerateRandomnessVerify(resp)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("client %d rejected server randomness", i)
		}

		r, err := env.sample(cfg, timeNow)
		if err != nil {
			return err
		}
		proveStart := time.Now()
		randomize, err := cl.VerifiableRandomizationCreate(timeLower, timeUpper, r.time, r.value, r.signature, points, skipProof)
		if err != nil {
			return err
		}
		log.Info("randomization created", "client", i, "trueValue", r.value, "messageBytes", len(randomize), "prove", time.Since(proveStart))
		randomizations = append(randomizations, randomize)
	}

	for _, randomize := range randomizations {
		verifyStart := time.Now()
		accepted, value, err := srv.VerifiableRandomizationVerify(randomize, timeLower, timeUpper, points, skipProof)
		if err != nil {
			return err
		}
		log.Info("randomization verified", "ldpValue", value, "accepted", accepted, "verify", time.Since(verifyStart))
		if err := agg.RecordAnonymous(accepted, value); err != nil {
			return err
		}
	}

	return report(log, agg, gamma)
}

func report(log *slog.Logger, agg *aggregator.Aggregator, gamma float64) error {
	log.Info("tally", "accepted", agg.Accepted(), "rejected", agg.Rejected(), "histogram", agg.Histogram())
	if gamma >= 1 {
		return nil
	}
	est, err := agg.EstimateFrequencies(gamma)
	if err != nil {
		return err
	}
	log.Info("debiased frequency estimates", "estimates", est)
	return nil
}
