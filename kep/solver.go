//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"fmt"

	"github.com/markkurossi/kep/crypto/spdz"
)

// Match holds the shared match result of one provider.
type Match struct {
	Donor   *spdz.Share
	Patient *spdz.Share
}

// Solver selects the exchanges from the compatibility and priority
// matrices. It returns one match for each provider in identity order.
type Solver interface {
	Solve(e *spdz.Engine, compat, prio [][]*spdz.Share) ([]Match, error)
}

// NoExchange is a solver that matches every pair with itself.
type NoExchange struct{}

// Solve implements Solver.Solve.
func (s NoExchange) Solve(e *spdz.Engine, compat, prio [][]*spdz.Share) (
	[]Match, error) {

	if len(compat) != len(prio) {
		return nil, fmt.Errorf("matrix size mismatch: %d != %d",
			len(compat), len(prio))
	}
	result := make([]Match, len(compat))
	for i := range result {
		result[i] = Match{
			Donor:   e.Const(int64(i)),
			Patient: e.Const(int64(i)),
		}
	}
	return result, nil
}
