//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"fmt"

	"github.com/markkurossi/kep/crypto/spdz"
)

// Inputs holds one party's shares of a provider's wire slots.
type Inputs struct {
	Slots [NumSlots][]*spdz.Share
}

// Validate checks that all slots have their layout lengths.
func (in *Inputs) Validate() error {
	for s := Slot(0); s < NumSlots; s++ {
		if len(in.Slots[s]) != s.Len() {
			return fmt.Errorf("%s: %d shares, expected %d: %w",
				s, len(in.Slots[s]), s.Len(), MalformedInput)
		}
	}
	return nil
}

// Slot returns the shares of the wire slot.
func (in *Inputs) Slot(s Slot) []*spdz.Share {
	return in.Slots[s]
}

// Scalar returns the share of the scalar wire slot.
func (in *Inputs) Scalar(s Slot) *spdz.Share {
	return in.Slots[s][0]
}

// Concat returns the concatenation of the slot vectors.
func (in *Inputs) Concat(slots []Slot) []*spdz.Share {
	var result []*spdz.Share
	for _, s := range slots {
		result = append(result, in.Slots[s]...)
	}
	return result
}
