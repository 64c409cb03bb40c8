// Command vldp-collector runs a VLDP collector over HTTP.
//
// The collector couples one variant server with an aggregator: it plays
// the server side of the GenRand round, verifies randomization messages,
// and tallies the accepted values. Verified samples can additionally be
// persisted to PostgreSQL, and the server's signing key can be attested
// through TDX so clients verify the key before contributing.
//
// # Usage
//
//	go run ./cmd/vldp-collector --config=collector.yaml
//	go run ./cmd/vldp-collector --variant=base --addr=:8080
//
// # Configuration File
//
//	addr: ":8080"
//	variant: expand
//	gamma: 0.25
//	buckets: 16
//	depth: 3
//	time_lower: 999
//	time_upper: 2000
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: vldp
//	  database: vldp
//	attestation:
//	  mode: tdx          # none, dummy, tdx, or remote
//	  remote_url: ""
//	  timeout_seconds: 30
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PlasmaXD/VLDP/aggregator"
	"github.com/PlasmaXD/VLDP/circuit"
	"github.com/PlasmaXD/VLDP/crypto"
	"github.com/PlasmaXD/VLDP/protocol"
	"github.com/PlasmaXD/VLDP/server"
	"github.com/PlasmaXD/VLDP/services"
	"github.com/PlasmaXD/VLDP/tdx"
)

type attestationConfig struct {
	Mode           string `yaml:"mode"`
	RemoteURL      string `yaml:"remote_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type config struct {
	Addr        string                   `yaml:"addr"`
	Variant     string                   `yaml:"variant"`
	Backend     string                   `yaml:"backend"`
	Gamma       float64                  `yaml:"gamma"`
	Buckets     uint64                   `yaml:"buckets"`
	Depth       int                      `yaml:"depth"`
	Continuous  bool                     `yaml:"continuous"`
	SkipProof   bool                     `yaml:"skip_proof"`
	TimeLower   uint64                   `yaml:"time_lower"`
	TimeUpper   uint64                   `yaml:"time_upper"`
	Postgres    *services.PostgresConfig `yaml:"postgres"`
	Attestation attestationConfig        `yaml:"attestation"`
}

func defaultConfig() *config {
	return &config{
		Addr:      ":8080",
		Variant:   "base",
		Backend:   "groth16",
		Gamma:     0.5,
		Buckets:   8,
		Depth:     2,
		TimeLower: 999,
		TimeUpper: 2000,
		Attestation: attestationConfig{
			Mode:           "none",
			TimeoutSeconds: 30,
		},
	}
}

func loadConfig(path string) (*config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		addr       = flag.String("addr", "", "HTTP listen address (overrides config)")
		variant    = flag.String("variant", "", "protocol variant: base, expand, or shuffle (overrides config)")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *variant != "" {
		cfg.Variant = *variant
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("collector failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg *config) error {
	protoCfg := protocol.Config{
		InputBytes:      4,
		TimeBytes:       4,
		GammaBytes:      2,
		RandomnessBytes: 4 + 2,
		K:               cfg.Buckets,
		MerkleDepth:     cfg.Depth,
	}
	if cfg.Continuous {
		protoCfg.RealInput = true
		protoCfg.RandomnessBytes = 2*4 + 2
	}

	var proofs crypto.ProofSystem
	switch cfg.Backend {
	case "groth16":
		proofs = crypto.NewGroth16()
	case "plonk":
		proofs = crypto.NewPlonk()
	default:
		return fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	suite, err := crypto.NewSuite(proofs, rand.Reader)
	if err != nil {
		return err
	}

	agg, err := aggregator.New(protoCfg)
	if err != nil {
		return err
	}

	var store services.SampleStore
	if cfg.Postgres != nil {
		pgStore, err := services.NewPostgresStore(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
		log.Info("persisting samples to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	var collector services.RouteRegistrar
	var serverKey crypto.PublicKey

	start := time.Now()
	switch cfg.Variant {
	case "base":
		params, err := protocol.SetupBase(cfg.Gamma, protoCfg, suite)
		if err != nil {
			return err
		}
		_, vk, err := circuit.KeyGenBase(suite.Proofs, params)
		if err != nil {
			return err
		}
		srv, err := server.NewBase(params, suite, vk, rand.Reader)
		if err != nil {
			return err
		}
		serverKey = srv.PublicKey()
		collector, err = services.NewBaseCollector(log, srv, agg, store, cfg.TimeLower, cfg.TimeUpper, cfg.SkipProof)
		if err != nil {
			return err
		}
	case "expand":
		params, err := protocol.SetupExpand(cfg.Gamma, protoCfg, suite)
		if err != nil {
			return err
		}
		_, vk, err := circuit.KeyGenExpand(suite.Proofs, params)
		if err != nil {
			return err
		}
		srv, err := server.NewExpand(params, suite, vk, rand.Reader)
		if err != nil {
			return err
		}
		serverKey = srv.PublicKey()
		collector, err = services.NewExpandCollector(log, srv, agg, store, cfg.TimeLower, cfg.TimeUpper, cfg.SkipProof)
		if err != nil {
			return err
		}
	case "shuffle":
		params, err := protocol.SetupShuffle(cfg.Gamma, protoCfg, suite)
		if err != nil {
			return err
		}
		_, vk, err := circuit.KeyGenShuffle(suite.Proofs, params)
		if err != nil {
			return err
		}
		srv, err := server.NewShuffle(params, suite, vk, rand.Reader)
		if err != nil {
			return err
		}
		serverKey = srv.PublicKey()
		points, err := protocol.RandomEvalPoints(rand.Reader, params.PRFChunks())
		if err != nil {
			return err
		}
		collector, err = services.NewShuffleCollector(log, srv, agg, store, cfg.TimeLower, cfg.TimeUpper, points, cfg.SkipProof)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown variant %q", cfg.Variant)
	}
	log.Info("collector ready",
		"variant", cfg.Variant,
		"backend", proofs.Name(),
		"setupTook", time.Since(start),
		"serverKey", hex.EncodeToString(serverKey.Bytes()),
	)

	if err := attestServerKey(log, cfg.Attestation, serverKey); err != nil {
		return err
	}

	return services.Serve(ctx, log, cfg.Addr, collector)
}

// attestServerKey binds the collector's signing key into a hardware
// quote so clients can check it before contributing.
func attestServerKey(log *slog.Logger, cfg attestationConfig, key crypto.PublicKey) error {
	var provider tdx.Provider
	switch cfg.Mode {
	case "", "none":
		return nil
	case "dummy":
		provider = &tdx.DummyProvider{}
	case "tdx":
		provider = &tdx.TDXProvider{}
	case "remote":
		provider = &tdx.RemoteDCAPProvider{URL: cfg.RemoteURL, Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	default:
		return fmt.Errorf("unknown attestation mode %q", cfg.Mode)
	}

	quote, err := tdx.AttestEnvironmentKey(provider, key)
	if err != nil {
		return fmt.Errorf("attesting server key: %w", err)
	}
	log.Info("server key attested", "type", provider.AttestationType(), "quoteBytes", len(quote))
	return nil
}
