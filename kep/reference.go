//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

func dot(a, b []int64) int64 {
	var sum int64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// Compatible tests if the donor may give to the patient: the blood
// vectors must overlap and the patient may not have antibodies
// against any of the donor antigens.
func Compatible(donorBlood, donorAntigen, patientBlood,
	patientAntibody []int64) bool {

	return dot(patientBlood, donorBlood) > 0 &&
		dot(patientAntibody, donorAntigen) < 1
}

// Priority computes the priority score of assigning a donor to a
// patient.
func Priority(prescore int64, patientAntigens, donorAntigens []int64,
	patientBloodtype, donorBloodtype, patientAge, pairedDonorAge, donorAge,
	patientRegion, donorRegion int64) int64 {

	score := prescore
	score += b2i(dot(patientAntigens, donorAntigens) < 2)
	score += b2i(patientBloodtype == donorBloodtype)

	d := patientAge - donorAge
	score += b2i(d*d < 10)
	d = pairedDonorAge - donorAge
	score += b2i(d*d < 10)

	return score + RegionScore(int(patientRegion), int(donorRegion))
}

// CompatiblePair tests if the donor of the donor record may give to
// the patient of the patient record.
func CompatiblePair(donor, patient *Record) bool {
	return Compatible(donor.Slot(SlotDonorBlood),
		donor.Concat(donorAntigenSlots),
		patient.Slot(SlotPatientBlood),
		patient.Concat(patientAntibodySlots))
}

// PriorityPair computes the priority of assigning the donor of the
// donor record to the patient of the patient record.
func PriorityPair(donor, patient *Record) int64 {
	return Priority(patient.Get(Prescore),
		patient.Concat(patientAntigenSlots),
		donor.Concat(donorPrioAntigenSlots),
		patient.Get(PatientBloodtype),
		donor.Get(DonorBloodtype),
		patient.Get(PatientAge),
		patient.Get(DonorAge),
		donor.Get(DonorAge),
		patient.Get(PatientRegion),
		donor.Get(DonorRegion))
}

// CompatibilityMatrixPlain computes the plaintext compatibility
// matrix of the records.
func CompatibilityMatrixPlain(records []*Record) [][]bool {
	result := make([][]bool, len(records))
	for i, donor := range records {
		result[i] = make([]bool, len(records))
		for j, patient := range records {
			result[i][j] = CompatiblePair(donor, patient)
		}
	}
	return result
}

// PriorityMatrixPlain computes the plaintext priority matrix of the
// records.
func PriorityMatrixPlain(records []*Record) [][]int64 {
	result := make([][]int64, len(records))
	for i, donor := range records {
		result[i] = make([]int64, len(records))
		for j, patient := range records {
			result[i][j] = PriorityPair(donor, patient)
		}
	}
	return result
}
