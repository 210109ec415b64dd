//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"bytes"
	"testing"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/mpc/circuit"
	"github.com/markkurossi/mpc/p2p"
	"github.com/stretchr/testify/require"
)

func TestTimingReport(t *testing.T) {
	var buf bytes.Buffer

	timing := circuit.NewTiming()
	printTiming(&buf, timing, p2p.NewIOStats(), spdz.NewStats())
	require.Zero(t, buf.Len())

	stats := spdz.NewStats()
	stats.Triples.Add(42)
	stats.Randoms.Add(7)

	timing.Sample("Setup", nil)
	timing.Sample("Rendezvous", []string{"3"})
	printTiming(&buf, timing, p2p.NewIOStats(), stats)

	report := buf.String()
	for _, s := range []string{"Setup", "Rendezvous", "Total", "Triples", "42",
		"Randoms", "7"} {
		require.Contains(t, report, s)
	}
}
