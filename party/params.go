//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"io"
	"math/big"
	"time"

	"github.com/markkurossi/kep/kep"
	"go.uber.org/zap"
)

// Default parameters.
const (
	DefaultMaxProviders = 1024
	DefaultDialDelay    = time.Second
)

// Params define computing party parameters.
type Params struct {
	// ID is the party ID in [0, len(Parties)).
	ID int

	// Parties lists the mesh addresses of all parties by party ID.
	Parties []string

	// ProviderAddr is the listen address of the provider endpoint.
	ProviderAddr string

	// MaxProviders is the configured maximum number of providers.
	MaxProviders int

	// Modulus is the prime field modulus.
	Modulus *big.Int

	CompareBits  int
	Workers      int
	AuditTriples int
	DialDelay    time.Duration

	// Solver selects the exchanges. It defaults to kep.NoExchange.
	Solver kep.Solver

	// Timing enables the timing report written to TimingOut.
	Timing    bool
	TimingOut io.Writer

	Log *zap.SugaredLogger
}
