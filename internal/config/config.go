// Package config loads ambient configuration for the orchestrator and
// dispatcher from a TOML file, grounded on vovakirdan-surge's use of
// github.com/BurntSushi/toml for its build-pipeline configuration.
package config

import (
	"github.com/BurntSushi/toml"
)

// Thresholds mirrors optimizer.Thresholds without importing the optimizer
// package, so config stays a leaf dependency.
type Thresholds struct {
	MaxBlocksCold      int `toml:"max_blocks_cold"`
	MaxLoopsCold       int `toml:"max_loops_cold"`
	MaxBlocksHot       int `toml:"max_blocks_hot"`
	MaxLoopsHot        int `toml:"max_loops_hot"`
	MaxBlocksOptServer int `toml:"max_blocks_opt_server"`
	MaxLoopsOptServer  int `toml:"max_loops_opt_server"`
}

// DispatcherOptions mirrors the dispatcher's global options mask
// (spec.md §4.2 setOptions) in a config-friendly boolean form.
type DispatcherOptions struct {
	ReducedSignalsSynchronous  bool `toml:"reduced_signals_synchronous"`
	ReducedSignalsAsynchronous bool `toml:"reduced_signals_asynchronous"`
	AllowSIGXFSZ               bool `toml:"allow_sigxfsz"`
	NoChain                    bool `toml:"no_chain"`
	CooperativeShutdown        bool `toml:"cooperative_shutdown"`
	// UseCondvarReporter names the condvar-style reporter loop (handle one
	// signal per wakeup, re-wait) instead of the semaphore-style drain-all
	// loop. It is decoded only; the loop is selected by passing
	// signal.WithCondvarReporter to signal.New, which nothing here does.
	UseCondvarReporter bool `toml:"use_condvar_reporter"`
}

// Config is the root of the TOML document this module loads.
type Config struct {
	Optimizer struct {
		Thresholds Thresholds `toml:"thresholds"`
	} `toml:"optimizer"`
	Signal struct {
		Options DispatcherOptions `toml:"options"`
	} `toml:"signal"`
}

// Default returns the built-in defaults used when no config file is
// supplied.
func Default() Config {
	return Config{
		Optimizer: struct {
			Thresholds Thresholds `toml:"thresholds"`
		}{Thresholds: Thresholds{
			MaxBlocksCold: 2000, MaxLoopsCold: 200,
			MaxBlocksHot: 8000, MaxLoopsHot: 800,
			MaxBlocksOptServer: 20000, MaxLoopsOptServer: 2000,
		}},
	}
}

// Load reads and decodes a TOML config file, starting from Default() so
// unspecified fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
