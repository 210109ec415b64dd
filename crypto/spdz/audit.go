//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"
)

// AuditTriples sacrifices count fresh triples. The triples
// are opened and the function fails with ErrTripleAudit if any of
// them does not satisfy c = a*b.
func (e *Engine) AuditTriples(count int) error {
	if count <= 0 {
		return nil
	}
	triples, err := e.Triples(count)
	if err != nil {
		return err
	}
	shares := make([]*Share, 0, 3*count)
	for _, t := range triples {
		shares = append(shares, t.A, t.B, t.C)
	}
	values, err := e.Open(shares)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		a := values[3*i]
		b := values[3*i+1]
		c := values[3*i+2]
		if e.field.Mul(a, b).Cmp(c) != 0 {
			return fmt.Errorf("%w: triple %d", ErrTripleAudit, i)
		}
	}
	e.log.Debugf("spdz %d: audited %d triples", e.id, count)
	return nil
}
