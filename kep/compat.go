//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"github.com/markkurossi/kep/crypto/spdz"
)

// CompatibilityMatrix computes the shared compatibility matrix of the
// providers' inputs. The element [i][j] is 1 if the donor of provider
// i may give to the patient of provider j, and 0 otherwise. All
// pairs are evaluated in one dot product round, one comparison batch,
// and one multiplication round.
func CompatibilityMatrix(e *spdz.Engine, inputs []*Inputs) (
	[][]*spdz.Share, error) {

	n := len(inputs)
	pairs := n * n

	donorAntigens := make([][]*spdz.Share, n)
	patientAntibodies := make([][]*spdz.Share, n)
	for i, in := range inputs {
		donorAntigens[i] = in.Concat(donorAntigenSlots)
		patientAntibodies[i] = in.Concat(patientAntibodySlots)
	}

	// Blood dot products in [0,pairs), antigen dot products in
	// [pairs,2*pairs).
	as := make([][]*spdz.Share, 2*pairs)
	bs := make([][]*spdz.Share, 2*pairs)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k := i*n + j
			as[k] = inputs[j].Slot(SlotPatientBlood)
			bs[k] = inputs[i].Slot(SlotDonorBlood)
			as[pairs+k] = patientAntibodies[j]
			bs[pairs+k] = donorAntigens[i]
		}
	}
	dots, err := e.Dot(as, bs)
	if err != nil {
		return nil, err
	}

	// bloodOK = dot > 0 = [-dot < 0]
	// antigenOK = dot < 1 = [dot - 1 < 0]
	one := e.Const(1)
	cmp := make([]*spdz.Share, 2*pairs)
	for k := 0; k < pairs; k++ {
		cmp[k] = e.Neg(dots[k])
		cmp[pairs+k] = e.Sub(dots[pairs+k], one)
	}
	ok, err := e.LTZ(cmp)
	if err != nil {
		return nil, err
	}
	compat, err := e.Mul(ok[:pairs], ok[pairs:])
	if err != nil {
		return nil, err
	}
	return square(compat, n), nil
}

func square(values []*spdz.Share, n int) [][]*spdz.Share {
	result := make([][]*spdz.Share, n)
	for i := range result {
		result[i] = values[i*n : (i+1)*n]
	}
	return result
}
