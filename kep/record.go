//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Value limits.
const (
	MaxPrescore  = 1 << 24
	MaxBloodtype = 16
	MaxAge       = 256
)

// BloodType defines the ABO blood types.
type BloodType int

// Blood types.
const (
	BloodO BloodType = iota + 1
	BloodA
	BloodB
	BloodAB
)

var bloodTypeNames = map[BloodType]string{
	BloodO:  "O",
	BloodA:  "A",
	BloodB:  "B",
	BloodAB: "AB",
}

func (bt BloodType) String() string {
	name, ok := bloodTypeNames[bt]
	if ok {
		return name
	}
	return fmt.Sprintf("{BloodType %d}", int(bt))
}

// DonorVector returns the donor blood vector of the blood type. The
// vector has 1 at every position a patient vector may match.
func (bt BloodType) DonorVector() []int64 {
	switch bt {
	case BloodO:
		return []int64{1, 1, 1, 1}
	case BloodA:
		return []int64{0, 1, 0, 1}
	case BloodB:
		return []int64{0, 0, 1, 1}
	default:
		return []int64{0, 0, 0, 1}
	}
}

// PatientVector returns the one-hot patient blood vector of the blood
// type.
func (bt BloodType) PatientVector() []int64 {
	switch bt {
	case BloodO:
		return []int64{1, 0, 0, 0}
	case BloodA:
		return []int64{0, 1, 0, 0}
	case BloodB:
		return []int64{0, 0, 1, 0}
	default:
		return []int64{0, 0, 0, 1}
	}
}

// Record holds the plaintext input of one donor-patient pair.
type Record struct {
	Values [NumFields][]int64
}

// NewRecord creates a new record with zero values.
func NewRecord() *Record {
	r := new(Record)
	for id := FieldID(0); id < NumFields; id++ {
		r.Values[id] = make([]int64, id.Len())
	}
	return r
}

// Set sets the scalar field id to v.
func (r *Record) Set(id FieldID, v int64) {
	r.Values[id][0] = v
}

// Get returns the value of the scalar field id.
func (r *Record) Get(id FieldID) int64 {
	return r.Values[id][0]
}

// Slot returns the values of the wire slot.
func (r *Record) Slot(s Slot) []int64 {
	return r.Values[s.Field()]
}

// Concat returns the concatenation of the slot vectors.
func (r *Record) Concat(slots []Slot) []int64 {
	var result []int64
	for _, s := range slots {
		result = append(result, r.Slot(s)...)
	}
	return result
}

// Validate checks that the record field lengths and values are valid.
func (r *Record) Validate() error {
	for id := FieldID(0); id < NumFields; id++ {
		info := Fields[id]
		values := r.Values[id]
		if len(values) != info.Length {
			return fmt.Errorf("%s: %d values, expected %d: %w",
				id, len(values), info.Length, MalformedInput)
		}
		var limit int64
		switch info.Kind {
		case KindBinary:
			limit = 2
		case KindPrescore:
			limit = MaxPrescore
		case KindBloodtype:
			limit = MaxBloodtype
		case KindAge:
			limit = MaxAge
		case KindRegion:
			limit = NumRegions
		}
		for idx, v := range values {
			if v < 0 || v >= limit {
				return fmt.Errorf("%s[%d]: value %d not in range [0,%d): %w",
					id, idx, v, limit, MalformedInput)
			}
		}
	}
	var bloodTypes int64
	for _, v := range r.Values[PatientBlood] {
		bloodTypes += v
	}
	if bloodTypes != 1 {
		return fmt.Errorf("%s: %d blood types set, expected one: %w",
			PatientBlood, bloodTypes, MalformedInput)
	}
	return nil
}

// ParseRecord parses a record from the input. The input contains the
// fields in file order, one field per line, values separated by
// whitespace.
func ParseRecord(in io.Reader) (*Record, error) {
	r := new(Record)
	var id FieldID

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 4096), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) == 0 {
			continue
		}
		if id >= NumFields {
			return nil, fmt.Errorf("trailing data after %d fields: %w",
				NumFields, MalformedInput)
		}
		parts := strings.Fields(line)
		values := make([]int64, len(parts))
		for i, part := range parts {
			v, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %v: %w", id, err, MalformedInput)
			}
			values[i] = v
		}
		r.Values[id] = values
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if id != NumFields {
		return nil, fmt.Errorf("got %d fields, expected %d: %w",
			id, NumFields, MalformedInput)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ReadRecordFile reads the record from the file.
func ReadRecordFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRecord(f)
}

// Write writes the record in the input file format.
func (r *Record) Write(out io.Writer) error {
	w := bufio.NewWriter(out)
	for id := FieldID(0); id < NumFields; id++ {
		for i, v := range r.Values[id] {
			if i > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			if _, err := w.WriteString(strconv.FormatInt(v, 10)); err != nil {
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}
