//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"
	"io"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/mpc/circuit"
	"github.com/markkurossi/mpc/p2p"
	"github.com/markkurossi/tabulate"
)

// printTiming prints the protocol phase report with the transfer and
// arithmetic engine counters to out.
func printTiming(out io.Writer, t *circuit.Timing, ioStats p2p.IOStats,
	stats spdz.Stats) {

	if len(t.Samples) == 0 {
		return
	}
	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Phase").SetAlign(tabulate.ML)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)
	tab.Header("Info").SetAlign(tabulate.MR)

	total := t.Samples[len(t.Samples)-1].End.Sub(t.Start)
	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(sample.Label)

		duration := sample.End.Sub(sample.Start)
		row.Column(duration.String())
		row.Column(fmt.Sprintf("%.2f%%",
			float64(duration)/float64(total)*100))
		for _, col := range sample.Cols {
			row.Column(col)
		}
	}
	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(circuit.FileSize(ioStats.Sum()).String()).SetFormat(tabulate.FmtBold)

	for _, item := range []struct {
		label string
		value uint64
	}{
		{"├╴Rounds", stats.Rounds.Load()},
		{"├╴Opened", stats.Opened.Load()},
		{"├╴Triples", stats.Triples.Load()},
		{"├╴Bits", stats.Bits.Load()},
		{"╰╴Randoms", stats.Randoms.Load()},
	} {
		row = tab.Row()
		row.Column(item.label).SetFormat(tabulate.FmtItalic)
		row.Column("")
		row.Column("")
		row.Column(fmt.Sprintf("%d", item.value)).SetFormat(tabulate.FmtItalic)
	}
	tab.Print(out)
}
