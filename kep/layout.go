//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package kep implements the kidney exchange compatibility and
// prioritization circuits over secret-shared donor-patient pairs.
package kep

import (
	"fmt"
)

// HLA locus lengths.
const (
	LenBlood = 4
	LenA     = 59
	LenB     = 132
	LenC     = 48
	LenDR    = 61
	LenDQ    = 26
	LenDP    = 22
)

// NumRegions defines the number of regions.
const NumRegions = 12

// RegionBits defines the bit size of region selectors.
const RegionBits = 4

// FieldID identifies the records of the provider input file.
type FieldID int

// Provider input fields in the input file order.
const (
	DonorBlood FieldID = iota
	DonorAntigenA
	DonorAntigenB
	DonorAntigenC
	DonorAntigenDR
	DonorAntigenDQ
	DonorAntigenDP
	PatientBlood
	PatientAntibodyA
	PatientAntibodyB
	PatientAntibodyC
	PatientAntibodyDR
	PatientAntibodyDQ
	PatientAntibodyDP
	Prescore
	PatientAntigenA
	PatientAntigenB
	PatientAntigenDR
	PatientBloodtype
	DonorBloodtype
	PatientAge
	DonorAge
	PatientRegion
	DonorRegion
	NumFields
)

// Kind defines the value domain of a field.
type Kind int

// Field kinds.
const (
	KindBinary Kind = iota
	KindPrescore
	KindBloodtype
	KindAge
	KindRegion
)

// FieldInfo describes an input field.
type FieldInfo struct {
	Name   string
	Length int
	Kind   Kind
}

// Fields describes the provider input fields in file order.
var Fields = [NumFields]FieldInfo{
	DonorBlood:        {"donor-blood", LenBlood, KindBinary},
	DonorAntigenA:     {"donor-antigen-A", LenA, KindBinary},
	DonorAntigenB:     {"donor-antigen-B", LenB, KindBinary},
	DonorAntigenC:     {"donor-antigen-C", LenC, KindBinary},
	DonorAntigenDR:    {"donor-antigen-DR", LenDR, KindBinary},
	DonorAntigenDQ:    {"donor-antigen-DQ", LenDQ, KindBinary},
	DonorAntigenDP:    {"donor-antigen-DP", LenDP, KindBinary},
	PatientBlood:      {"patient-blood", LenBlood, KindBinary},
	PatientAntibodyA:  {"patient-antibody-A", LenA, KindBinary},
	PatientAntibodyB:  {"patient-antibody-B", LenB, KindBinary},
	PatientAntibodyC:  {"patient-antibody-C", LenC, KindBinary},
	PatientAntibodyDR: {"patient-antibody-DR", LenDR, KindBinary},
	PatientAntibodyDQ: {"patient-antibody-DQ", LenDQ, KindBinary},
	PatientAntibodyDP: {"patient-antibody-DP", LenDP, KindBinary},
	Prescore:          {"prescore", 1, KindPrescore},
	PatientAntigenA:   {"patient-antigen-A", LenA, KindBinary},
	PatientAntigenB:   {"patient-antigen-B", LenB, KindBinary},
	PatientAntigenDR:  {"patient-antigen-DR", LenDR, KindBinary},
	PatientBloodtype:  {"patient-bloodtype", 1, KindBloodtype},
	DonorBloodtype:    {"donor-bloodtype", 1, KindBloodtype},
	PatientAge:        {"patient-age", 1, KindAge},
	DonorAge:          {"donor-age", 1, KindAge},
	PatientRegion:     {"patient-region", 1, KindRegion},
	DonorRegion:       {"donor-region", 1, KindRegion},
}

func (id FieldID) String() string {
	if id >= 0 && id < NumFields {
		return Fields[id].Name
	}
	return fmt.Sprintf("{FieldID %d}", int(id))
}

// Len returns the vector length of the field.
func (id FieldID) Len() int {
	return Fields[id].Length
}

// Slot identifies a length-tagged send in the provider wire order.
type Slot int

// Wire slots in the order the providers send them.
const (
	SlotDonorBlood Slot = iota
	SlotPatientBlood
	SlotDonorAntigenA
	SlotPatientAntibodyA
	SlotDonorAntigenB
	SlotPatientAntibodyB
	SlotDonorAntigenC
	SlotPatientAntibodyC
	SlotDonorAntigenDR
	SlotPatientAntibodyDR
	SlotDonorAntigenDQ
	SlotPatientAntibodyDQ
	SlotDonorAntigenDP
	SlotPatientAntibodyDP
	SlotPrescore
	SlotPatientAntigenA
	SlotPatientAntigenB
	SlotPatientAntigenDR
	SlotDonorPrioAntigenA
	SlotDonorPrioAntigenB
	SlotDonorPrioAntigenDR
	SlotPatientBloodtype
	SlotDonorBloodtype
	SlotPatientAge
	SlotDonorAge
	SlotPatientRegion
	SlotDonorRegion
	NumSlots
)

// Wire maps the wire slots to their input fields. The donor antigens
// of loci A, B, and DR are sent twice: the prioritization copy is an
// independently shared vector.
var Wire = [NumSlots]FieldID{
	SlotDonorBlood:         DonorBlood,
	SlotPatientBlood:       PatientBlood,
	SlotDonorAntigenA:      DonorAntigenA,
	SlotPatientAntibodyA:   PatientAntibodyA,
	SlotDonorAntigenB:      DonorAntigenB,
	SlotPatientAntibodyB:   PatientAntibodyB,
	SlotDonorAntigenC:      DonorAntigenC,
	SlotPatientAntibodyC:   PatientAntibodyC,
	SlotDonorAntigenDR:     DonorAntigenDR,
	SlotPatientAntibodyDR:  PatientAntibodyDR,
	SlotDonorAntigenDQ:     DonorAntigenDQ,
	SlotPatientAntibodyDQ:  PatientAntibodyDQ,
	SlotDonorAntigenDP:     DonorAntigenDP,
	SlotPatientAntibodyDP:  PatientAntibodyDP,
	SlotPrescore:           Prescore,
	SlotPatientAntigenA:    PatientAntigenA,
	SlotPatientAntigenB:    PatientAntigenB,
	SlotPatientAntigenDR:   PatientAntigenDR,
	SlotDonorPrioAntigenA:  DonorAntigenA,
	SlotDonorPrioAntigenB:  DonorAntigenB,
	SlotDonorPrioAntigenDR: DonorAntigenDR,
	SlotPatientBloodtype:   PatientBloodtype,
	SlotDonorBloodtype:     DonorBloodtype,
	SlotPatientAge:         PatientAge,
	SlotDonorAge:           DonorAge,
	SlotPatientRegion:      PatientRegion,
	SlotDonorRegion:        DonorRegion,
}

// Field returns the input field of the slot.
func (s Slot) Field() FieldID {
	return Wire[s]
}

// Len returns the vector length of the slot.
func (s Slot) Len() int {
	return Wire[s].Len()
}

func (s Slot) String() string {
	if s >= 0 && s < NumSlots {
		if s >= SlotDonorPrioAntigenA && s <= SlotDonorPrioAntigenDR {
			return Wire[s].String() + "/prio"
		}
		return Wire[s].String()
	}
	return fmt.Sprintf("{Slot %d}", int(s))
}

// Compatibility loci in wire order.
var (
	donorAntigenSlots = []Slot{
		SlotDonorAntigenA, SlotDonorAntigenB, SlotDonorAntigenC,
		SlotDonorAntigenDR, SlotDonorAntigenDQ, SlotDonorAntigenDP,
	}
	patientAntibodySlots = []Slot{
		SlotPatientAntibodyA, SlotPatientAntibodyB, SlotPatientAntibodyC,
		SlotPatientAntibodyDR, SlotPatientAntibodyDQ, SlotPatientAntibodyDP,
	}
	patientAntigenSlots = []Slot{
		SlotPatientAntigenA, SlotPatientAntigenB, SlotPatientAntigenDR,
	}
	donorPrioAntigenSlots = []Slot{
		SlotDonorPrioAntigenA, SlotDonorPrioAntigenB, SlotDonorPrioAntigenDR,
	}
)
