//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"
)

// Phase defines the protocol phases of a computing party.
type Phase int

// Protocol phases.
const (
	PhaseIdle Phase = iota
	PhaseDiscovering
	PhaseIngesting
	PhaseScoring
	PhaseSolving
	PhaseDelivering
	PhaseDone
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhaseIdle:        "idle",
	PhaseDiscovering: "discovering",
	PhaseIngesting:   "ingesting",
	PhaseScoring:     "scoring",
	PhaseSolving:     "solving",
	PhaseDelivering:  "delivering",
	PhaseDone:        "done",
	PhaseFailed:      "failed",
}

func (ph Phase) String() string {
	name, ok := phaseNames[ph]
	if ok {
		return name
	}
	return fmt.Sprintf("{Phase %d}", int(ph))
}
