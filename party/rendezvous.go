//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"

	"github.com/markkurossi/kep/kep"
)

// Rendezvous tracks the providers admitted to the protocol run. The
// number of providers is unknown until a provider with the terminal
// flag connects: its identity plus one is the declared total. The
// rendezvous is complete when the total is known and every identity
// below it has connected.
type Rendezvous struct {
	max      int
	declared int
	seen     map[int]bool
	phase    Phase
}

// NewRendezvous creates a rendezvous accepting identities below max.
func NewRendezvous(max int) *Rendezvous {
	return &Rendezvous{
		max:   max,
		seen:  make(map[int]bool),
		phase: PhaseDiscovering,
	}
}

// Admit admits the provider id. The last flag marks the terminal
// provider. All returned errors are fatal for the protocol run.
func (rv *Rendezvous) Admit(id int, last bool) error {
	if rv.phase != PhaseDiscovering {
		return fmt.Errorf("provider %d: rendezvous is %s", id, rv.phase)
	}
	if id < 0 || id >= rv.max {
		return fmt.Errorf("provider %d: maximum is %d: %w",
			id, rv.max, kep.IdentityOutOfRange)
	}
	if rv.seen[id] {
		return fmt.Errorf("provider %d: %w", id, kep.DuplicateIdentity)
	}
	if rv.declared > 0 && id >= rv.declared {
		return fmt.Errorf("provider %d: declared count is %d: %w",
			id, rv.declared, kep.IdentityOutOfRange)
	}
	if last {
		count := id + 1
		if rv.declared > 0 && rv.declared != count {
			return fmt.Errorf("provider %d: declared count %d, previous %d: %w",
				id, count, rv.declared, kep.TerminalConflict)
		}
		for other := range rv.seen {
			if other >= count {
				return fmt.Errorf("provider %d: declared count is %d: %w",
					other, count, kep.IdentityOutOfRange)
			}
		}
		rv.declared = count
	}
	rv.seen[id] = true
	if rv.Done() {
		rv.phase = PhaseIngesting
	}
	return nil
}

// Done tests if the rendezvous is complete.
func (rv *Rendezvous) Done() bool {
	return rv.declared > 0 && len(rv.seen) >= rv.declared
}

// Declared returns the declared provider count or 0 if no terminal
// provider has connected yet.
func (rv *Rendezvous) Declared() int {
	return rv.declared
}

// Seen returns the number of admitted providers.
func (rv *Rendezvous) Seen() int {
	return len(rv.seen)
}

// Phase returns the rendezvous phase.
func (rv *Rendezvous) Phase() Phase {
	return rv.phase
}
