//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"bytes"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/stretchr/testify/require"
)

type testPair struct {
	donor      BloodType
	patient    BloodType
	antigens   []int
	antibodies []int
	hla        []int
	prescore   int64
	patientBT  int64
	donorBT    int64
	patientAge int64
	donorAge   int64
	patientReg int64
	donorReg   int64
}

func setConcat(r *Record, slots []Slot, idxs []int) {
	for _, idx := range idxs {
		for _, s := range slots {
			if idx < s.Len() {
				r.Values[s.Field()][idx] = 1
				break
			}
			idx -= s.Len()
		}
	}
}

func (p testPair) record() *Record {
	r := NewRecord()
	r.Values[DonorBlood] = p.donor.DonorVector()
	r.Values[PatientBlood] = p.patient.PatientVector()
	setConcat(r, donorAntigenSlots, p.antigens)
	setConcat(r, patientAntibodySlots, p.antibodies)
	setConcat(r, patientAntigenSlots, p.hla)
	r.Set(Prescore, p.prescore)
	r.Set(PatientBloodtype, p.patientBT)
	r.Set(DonorBloodtype, p.donorBT)
	r.Set(PatientAge, p.patientAge)
	r.Set(DonorAge, p.donorAge)
	r.Set(PatientRegion, p.patientReg)
	r.Set(DonorRegion, p.donorReg)
	return r
}

var testPairs = []testPair{
	{
		donor:      BloodO,
		patient:    BloodA,
		antigens:   []int{0, 70},
		antibodies: []int{5},
		hla:        []int{0, 70, 200},
		prescore:   7,
		patientBT:  2,
		donorBT:    1,
		patientAge: 40,
		donorAge:   42,
		patientReg: 3,
		donorReg:   5,
	},
	{
		donor:      BloodA,
		patient:    BloodO,
		antigens:   []int{5, 300},
		antibodies: []int{70},
		hla:        []int{1},
		prescore:   0,
		patientBT:  1,
		donorBT:    2,
		patientAge: 60,
		donorAge:   61,
		patientReg: 0,
		donorReg:   11,
	},
	{
		donor:      BloodAB,
		patient:    BloodAB,
		hla:        []int{0, 1, 250},
		prescore:   100,
		patientBT:  4,
		donorBT:    4,
		patientAge: 20,
		donorAge:   90,
		patientReg: 7,
		donorReg:   7,
	},
}

func testRecords(t *testing.T) []*Record {
	var result []*Record
	for _, p := range testPairs {
		r := p.record()
		require.NoError(t, r.Validate())
		result = append(result, r)
	}
	return result
}

func TestLayout(t *testing.T) {
	var total int
	for id := FieldID(0); id < NumFields; id++ {
		total += id.Len()
	}
	require.Equal(t, 2*LenBlood+2*(LenA+LenB+LenC+LenDR+LenDQ+LenDP)+
		(LenA+LenB+LenDR)+7, total)

	require.Equal(t, 27, int(NumSlots))
	require.Equal(t, DonorBlood, SlotDonorBlood.Field())
	require.Equal(t, PatientBlood, SlotPatientBlood.Field())
	require.Equal(t, DonorRegion, SlotDonorRegion.Field())
	require.Equal(t, LenB, SlotDonorPrioAntigenB.Len())
	require.Equal(t, "donor-antigen-DR/prio", SlotDonorPrioAntigenDR.String())

	seen := make(map[FieldID]int)
	for s := Slot(0); s < NumSlots; s++ {
		seen[s.Field()]++
	}
	require.Len(t, seen, int(NumFields))
	require.Equal(t, 2, seen[DonorAntigenA])
	require.Equal(t, 1, seen[DonorAntigenC])
}

func TestRegionMatrix(t *testing.T) {
	m := RegionMatrix()
	require.Len(t, m, NumRegions)
	for i := 0; i < NumRegions; i++ {
		for j := 0; j < NumRegions; j++ {
			require.Equal(t, 0, m[i][j].Cmp(m[j][i]), "[%d][%d]", i, j)
		}
	}
	require.Equal(t, int64(100), m[4][4].Int64())
	require.Equal(t, int64(75), m[4][5].Int64())
	require.Equal(t, int64(50), m[2][0].Int64())
	require.Equal(t, int64(25), m[8][11].Int64())
	require.Equal(t, int64(0), m[0][4].Int64())
	require.Equal(t, int64(0), m[11][0].Int64())
}

func TestBloodCompatibility(t *testing.T) {
	types := []BloodType{BloodO, BloodA, BloodB, BloodAB}
	allowed := map[BloodType][]BloodType{
		BloodO:  {BloodO, BloodA, BloodB, BloodAB},
		BloodA:  {BloodA, BloodAB},
		BloodB:  {BloodB, BloodAB},
		BloodAB: {BloodAB},
	}
	none := make([]int64, LenA)
	for _, donor := range types {
		for _, patient := range types {
			var expected bool
			for _, bt := range allowed[donor] {
				if bt == patient {
					expected = true
				}
			}
			got := Compatible(donor.DonorVector(), none,
				patient.PatientVector(), none)
			if got != expected {
				t.Errorf("Compatible(%v, %v)=%v, expected %v",
					donor, patient, got, expected)
			}
		}
	}
}

func TestAntibodyCompatibility(t *testing.T) {
	antigen := make([]int64, LenA)
	antibody := make([]int64, LenA)
	antigen[10] = 1
	antibody[11] = 1

	blood := BloodO.DonorVector()
	patient := BloodO.PatientVector()
	require.True(t, Compatible(blood, antigen, patient, antibody))

	antibody[10] = 1
	require.False(t, Compatible(blood, antigen, patient, antibody))
}

func TestPriorityPrescoreOnly(t *testing.T) {
	patient := make([]int64, 3)
	donor := make([]int64, 3)
	patient[0], patient[1] = 1, 1
	donor[0], donor[1] = 1, 1

	score := Priority(42, patient, donor, 1, 2, 20, 30, 80, 0, 4)
	require.Equal(t, int64(42), score)

	// All sub-scores true.
	score = Priority(42, []int64{1, 0}, []int64{1, 0}, 3, 3, 50, 52, 51, 6, 6)
	require.Equal(t, int64(42+4+100), score)
}

func TestRecordRoundTrip(t *testing.T) {
	for _, r := range testRecords(t) {
		var buf bytes.Buffer
		require.NoError(t, r.Write(&buf))

		parsed, err := ParseRecord(&buf)
		require.NoError(t, err)
		require.Equal(t, r.Values, parsed.Values)
	}
}

func TestRecordErrors(t *testing.T) {
	valid := func() []string {
		var buf bytes.Buffer
		require.NoError(t, testPairs[0].record().Write(&buf))
		return strings.Split(strings.TrimSpace(buf.String()), "\n")
	}
	tests := []func(lines []string) []string{
		func(lines []string) []string {
			return lines[:len(lines)-1]
		},
		func(lines []string) []string {
			return append(lines, "1")
		},
		func(lines []string) []string {
			lines[DonorBlood] = "1 1 1"
			return lines
		},
		func(lines []string) []string {
			lines[DonorBlood] = "1 2 1 1"
			return lines
		},
		func(lines []string) []string {
			lines[PatientBlood] = "1 1 1 1"
			return lines
		},
		func(lines []string) []string {
			lines[PatientBlood] = "0 0 0 0"
			return lines
		},
		func(lines []string) []string {
			lines[PatientBlood] = "0 1 0 1"
			return lines
		},
		func(lines []string) []string {
			lines[DonorRegion] = "12"
			return lines
		},
		func(lines []string) []string {
			lines[PatientAge] = "-1"
			return lines
		},
		func(lines []string) []string {
			lines[Prescore] = "x"
			return lines
		},
	}
	for i, test := range tests {
		lines := test(valid())
		_, err := ParseRecord(strings.NewReader(strings.Join(lines, "\n")))
		if !errors.Is(err, MalformedInput) {
			t.Errorf("test-%d: expected MalformedInput, got %v", i, err)
		}
	}
}

func TestErrno(t *testing.T) {
	require.Equal(t, "DuplicateIdentity", DuplicateIdentity.Name())
	require.Equal(t, "Output authentication failed",
		AuthenticationFailed.Description())
	require.Equal(t, "{Errno 99}", Errno(99).String())

	var err error = IdentityOutOfRange
	require.True(t, errors.Is(err, IdentityOutOfRange))
}

// shareInputs splits the records into additive shares for n parties.
func shareInputs(t *testing.T, field *spdz.Field, n int,
	records []*Record) [][]*Inputs {

	result := make([][]*Inputs, n)
	for party := range result {
		result[party] = make([]*Inputs, len(records))
		for i := range records {
			result[party][i] = new(Inputs)
		}
	}
	for i, r := range records {
		for s := Slot(0); s < NumSlots; s++ {
			for _, v := range r.Slot(s) {
				last := field.Reduce(big.NewInt(v))
				for party := 1; party < n; party++ {
					rnd, err := field.Random(rand.Reader)
					require.NoError(t, err)
					in := result[party][i]
					in.Slots[s] = append(in.Slots[s], &spdz.Share{V: rnd})
					last = field.Sub(last, rnd)
				}
				in := result[0][i]
				in.Slots[s] = append(in.Slots[s], &spdz.Share{V: last})
			}
		}
	}
	return result
}

func reveal(field *spdz.Field, matrices [][][]*spdz.Share) [][]int64 {
	n := len(matrices[0])
	result := make([][]int64, n)
	for i := 0; i < n; i++ {
		result[i] = make([]int64, n)
		for j := 0; j < n; j++ {
			sum := new(big.Int)
			for _, m := range matrices {
				sum.Add(sum, m[i][j].V)
			}
			result[i][j] = field.Signed(sum).Int64()
		}
	}
	return result
}

func TestMatrices(t *testing.T) {
	records := testRecords(t)
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	for _, nparties := range []int{1, 3} {
		inputs := shareInputs(t, field, nparties, records)
		mesh := spdz.PipeMesh(nparties)

		compat := make([][][]*spdz.Share, nparties)
		prio := make([][][]*spdz.Share, nparties)
		errs := make([]error, nparties)

		var wg sync.WaitGroup
		for id := 0; id < nparties; id++ {
			wg.Go(func() {
				e, err := spdz.NewEngine(id, mesh[id], field, nil)
				if err != nil {
					errs[id] = err
					return
				}
				if err := e.Setup(); err != nil {
					errs[id] = err
					return
				}
				for _, in := range inputs[id] {
					if err := in.Validate(); err != nil {
						errs[id] = err
						return
					}
				}
				compat[id], err = CompatibilityMatrix(e, inputs[id])
				if err != nil {
					errs[id] = err
					return
				}
				prio[id], errs[id] = PriorityMatrix(e, inputs[id])
			})
		}
		wg.Wait()
		for id, err := range errs {
			require.NoError(t, err, "party %d", id)
		}

		expectedCompat := CompatibilityMatrixPlain(records)
		gotCompat := reveal(field, compat)
		for i := range records {
			for j := range records {
				require.Equal(t, b2i(expectedCompat[i][j]), gotCompat[i][j],
					"P=%d: compat[%d][%d]", nparties, i, j)
			}
		}
		require.Equal(t, PriorityMatrixPlain(records), reveal(field, prio),
			"P=%d: priority", nparties)
	}
}
