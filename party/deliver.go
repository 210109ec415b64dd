//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
)

// deliver sends each provider its authenticated match result. Every
// delivered value v gets its own random mask r from a fresh triple and
// the provider receives the shares of (v, r, v*r) for the matched donor
// and the matched patient.
func (p *Party) deliver(matches []kep.Match) error {
	n := len(p.providers)
	if len(matches) != n {
		return fmt.Errorf("solver returned %d matches for %d providers",
			len(matches), n)
	}
	values := make([]*spdz.Share, 0, 2*n)
	for _, m := range matches {
		values = append(values, m.Donor, m.Patient)
	}
	triples, err := p.engine.Triples(len(values))
	if err != nil {
		return err
	}
	masks := make([]*spdz.Share, len(values))
	for i, t := range triples {
		masks[i] = t.A
	}
	tags, err := p.engine.Mul(values, masks)
	if err != nil {
		return err
	}

	for id, conn := range p.providers {
		for k := 2 * id; k < 2*id+2; k++ {
			for _, share := range []*spdz.Share{values[k], masks[k], tags[k]} {
				if err := p.field.SendField(conn, share.V); err != nil {
					return fmt.Errorf("provider %d: %w", id, err)
				}
			}
		}
		if err := conn.Flush(); err != nil {
			return fmt.Errorf("provider %d: %w", id, err)
		}
	}
	return nil
}
