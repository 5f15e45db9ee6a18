package main

import (
	"strings"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vulpemventures/go-elements-ct/network"
	"github.com/vulpemventures/go-elements-ct/sigcache"
	"github.com/vulpemventures/go-elements-ct/transaction"
)

const (
	envPrefix = "CTX"

	compatKey      = "compat"
	noWitnessKey   = "no-witness"
	blockKey       = "block"
	verifyKey      = "verify"
	assetTagKey    = "asset-tag"
	cacheSizeKey   = "cache-size-mb"
	workersKey     = "workers"
	logLevelKey    = "log-level"
	networkKey     = "network"
	defaultLogLvl  = "info"
	defaultWorkers = 0
)

var errNoInput = errors.New("no input given")

type config struct {
	Compat      bool
	NoWitness   bool
	Block       bool
	Verify      bool
	AssetTag    string
	CacheSizeMB uint
	Workers     int
	LogLevel    string
	Network     string
}

// serializeFlags returns the codec flags selected by the configuration.
func (c config) serializeFlags() transaction.SerializeFlags {
	var flags transaction.SerializeFlags
	if c.Compat {
		flags |= transaction.Compatibility
	}
	if c.NoWitness {
		flags |= transaction.NoWitness
	}
	return flags
}

func (c config) cacheConfig() sigcache.Config {
	return sigcache.Config{MaxSizeMB: c.CacheSizeMB}
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("ctxinspect", flag.ContinueOnError)
	fs.Bool(compatKey, false, "decode with plain little-endian amounts and no fee output")
	fs.Bool(noWitnessKey, false, "decode without the extended witness encoding")
	fs.Bool(blockKey, false, "input is a block instead of a transaction")
	fs.Bool(verifyKey, false, "verify the range proofs of blinded outputs")
	fs.String(assetTagKey, "", "hex asset tag the range proofs are bound to")
	fs.Uint(cacheSizeKey, sigcache.DefaultMaxSizeMB, "verification cache size in MB, 0 disables it")
	fs.Int(workersKey, defaultWorkers, "parallel range proof checks, 0 uses all CPUs")
	fs.String(networkKey, network.Liquid.Name, "network whose policy asset keys the explicit totals")
	fs.String(logLevelKey, defaultLogLvl, "log level: trace, debug, info, warn, error, critical, off")
	return fs
}

// loadConfig parses args and merges them with CTX_* environment variables.
// Explicit flags take precedence over the environment.
func loadConfig(args []string) (config, []string, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return config{}, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return config{}, nil, err
	}

	cfg := config{
		Compat:      v.GetBool(compatKey),
		NoWitness:   v.GetBool(noWitnessKey),
		Block:       v.GetBool(blockKey),
		Verify:      v.GetBool(verifyKey),
		AssetTag:    v.GetString(assetTagKey),
		CacheSizeMB: v.GetUint(cacheSizeKey),
		Workers:     v.GetInt(workersKey),
		LogLevel:    v.GetString(logLevelKey),
		Network:     v.GetString(networkKey),
	}
	if cfg.Verify && cfg.AssetTag == "" {
		return config{}, nil, errors.Errorf("--%s requires --%s", verifyKey, assetTagKey)
	}
	return cfg, fs.Args(), nil
}
