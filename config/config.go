//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package config implements the protocol topology configuration.
package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/kep/party"
	"go.uber.org/zap"
)

// Config defines the protocol topology and parameters.
type Config struct {
	// Modulus is the decimal prime field modulus. Empty selects
	// spdz.DefaultModulus.
	Modulus      string  `toml:"modulus"`
	MaxProviders int     `toml:"max_providers"`
	CompareBits  int     `toml:"compare_bits"`
	Workers      int     `toml:"workers"`
	AuditTriples int     `toml:"audit_triples"`
	Parties      []Party `toml:"party"`

	modulus *big.Int
}

// Party defines a computing party.
type Party struct {
	ID              int    `toml:"id"`
	Address         string `toml:"address"`
	ProviderAddress string `toml:"provider_address"`
}

// Load loads the configuration from the TOML file.
func Load(path string) (*Config, error) {
	conf := new(Config)
	md, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return conf, nil
}

// Parse parses the configuration from the TOML data.
func Parse(data string) (*Config, error) {
	conf := new(Config)
	md, err := toml.Decode(data, conf)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func checkUndecoded(md toml.MetaData) error {
	undecoded := md.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	var keys []string
	for _, key := range undecoded {
		keys = append(keys, key.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

func (conf *Config) validate() error {
	if len(conf.Modulus) == 0 {
		conf.modulus = spdz.DefaultModulus
	} else {
		m, ok := new(big.Int).SetString(conf.Modulus, 0)
		if !ok {
			return fmt.Errorf("invalid modulus: %s", conf.Modulus)
		}
		if _, err := spdz.NewField(m); err != nil {
			return err
		}
		conf.modulus = m
	}
	if conf.MaxProviders < 0 {
		return fmt.Errorf("invalid max_providers: %d", conf.MaxProviders)
	}
	if conf.CompareBits < 0 || conf.Workers < 0 || conf.AuditTriples < 0 {
		return fmt.Errorf("negative engine parameters")
	}
	if len(conf.Parties) == 0 {
		return fmt.Errorf("no parties defined")
	}
	for idx, p := range conf.Parties {
		if p.ID != idx {
			return fmt.Errorf("party %d: unexpected ID %d", idx, p.ID)
		}
		if len(conf.Parties) > 1 && len(p.Address) == 0 {
			return fmt.Errorf("party %d: no address", idx)
		}
		if len(p.ProviderAddress) == 0 {
			return fmt.Errorf("party %d: no provider_address", idx)
		}
	}
	return nil
}

// Field returns the prime field modulus.
func (conf *Config) Field() *big.Int {
	return conf.modulus
}

// ProviderAddrs returns the provider endpoints of all parties.
func (conf *Config) ProviderAddrs() []string {
	var result []string
	for _, p := range conf.Parties {
		result = append(result, p.ProviderAddress)
	}
	return result
}

// PartyParams returns the computing party parameters for the party id.
func (conf *Config) PartyParams(id int, log *zap.SugaredLogger) (
	*party.Params, error) {

	if id < 0 || id >= len(conf.Parties) {
		return nil, fmt.Errorf("unknown party %d", id)
	}
	var addrs []string
	for _, p := range conf.Parties {
		addrs = append(addrs, p.Address)
	}
	return &party.Params{
		ID:           id,
		Parties:      addrs,
		ProviderAddr: conf.Parties[id].ProviderAddress,
		MaxProviders: conf.MaxProviders,
		Modulus:      conf.modulus,
		CompareBits:  conf.CompareBits,
		Workers:      conf.Workers,
		AuditTriples: conf.AuditTriples,
		Solver:       kep.NoExchange{},
		Log:          log,
	}, nil
}
