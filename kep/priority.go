//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"github.com/markkurossi/kep/crypto/spdz"
)

// Age differences below this squared limit score an age point.
const ageLimit = 10

// PriorityMatrix computes the shared priority matrix of the providers'
// inputs. The element [i][j] is the score of assigning the donor of
// provider i to the patient of provider j. The patient side values
// (prescore, patient antigens, blood type, age, paired donor age, and
// region) are provider j's, and the donor side values are provider
// i's.
func PriorityMatrix(e *spdz.Engine, inputs []*Inputs) (
	[][]*spdz.Share, error) {

	n := len(inputs)
	pairs := n * n

	// Region selectors: patient regions in [0,n), donor regions in
	// [n,2n).
	regions := make([]*spdz.Share, 2*n)
	for i, in := range inputs {
		regions[i] = in.Scalar(SlotPatientRegion)
		regions[n+i] = in.Scalar(SlotDonorRegion)
	}
	sel, err := e.OneHot(regions, RegionBits)
	if err != nil {
		return nil, err
	}
	table := RegionMatrix()
	donorColumns := make([][]*spdz.Share, n)
	for i := 0; i < n; i++ {
		donorColumns[i], err = e.TableColumns(table, sel[n+i])
		if err != nil {
			return nil, err
		}
	}

	patientAntigens := make([][]*spdz.Share, n)
	donorAntigens := make([][]*spdz.Share, n)
	for i, in := range inputs {
		patientAntigens[i] = in.Concat(patientAntigenSlots)
		donorAntigens[i] = in.Concat(donorPrioAntigenSlots)
	}

	// Dot products: antigen matches, squared patient age difference,
	// squared paired donor age difference, and region lookup.
	as := make([][]*spdz.Share, 4*pairs)
	bs := make([][]*spdz.Share, 4*pairs)
	for i := 0; i < n; i++ {
		donorAge := inputs[i].Scalar(SlotDonorAge)
		for j := 0; j < n; j++ {
			k := i*n + j
			d1 := e.Sub(inputs[j].Scalar(SlotPatientAge), donorAge)
			d2 := e.Sub(inputs[j].Scalar(SlotDonorAge), donorAge)

			as[k] = patientAntigens[j]
			bs[k] = donorAntigens[i]
			as[pairs+k] = []*spdz.Share{d1}
			bs[pairs+k] = []*spdz.Share{d1}
			as[2*pairs+k] = []*spdz.Share{d2}
			bs[2*pairs+k] = []*spdz.Share{d2}
			as[3*pairs+k] = sel[j][:NumRegions]
			bs[3*pairs+k] = donorColumns[i]
		}
	}
	dots, err := e.Dot(as, bs)
	if err != nil {
		return nil, err
	}

	two := e.Const(2)
	limit := e.Const(ageLimit)
	cmp := make([]*spdz.Share, 5*pairs)
	for i := 0; i < n; i++ {
		donorBloodtype := inputs[i].Scalar(SlotDonorBloodtype)
		for j := 0; j < n; j++ {
			k := i*n + j
			patientBloodtype := inputs[j].Scalar(SlotPatientBloodtype)

			cmp[k] = e.Sub(dots[k], two)
			cmp[pairs+k] = e.Sub(dots[pairs+k], limit)
			cmp[2*pairs+k] = e.Sub(dots[2*pairs+k], limit)
			cmp[3*pairs+k] = e.Sub(patientBloodtype, donorBloodtype)
			cmp[4*pairs+k] = e.Sub(donorBloodtype, patientBloodtype)
		}
	}
	lt, err := e.LTZ(cmp)
	if err != nil {
		return nil, err
	}

	result := make([]*spdz.Share, pairs)
	one := e.Const(1)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k := i*n + j
			bloodtype := e.Sub(e.Sub(one, lt[3*pairs+k]), lt[4*pairs+k])
			result[k] = e.Sum(
				inputs[j].Scalar(SlotPrescore),
				lt[k],
				bloodtype,
				lt[pairs+k],
				lt[2*pairs+k],
				dots[3*pairs+k])
		}
	}
	return square(result, n), nil
}
