//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package party implements the computing party of the private kidney
// exchange protocol.
package party

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/mpc/circuit"
	"github.com/markkurossi/mpc/p2p"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Result holds the outcome of a protocol run.
type Result struct {
	Providers int
	Compat    [][]*spdz.Share
	Priority  [][]*spdz.Share
	Matches   []kep.Match
}

// Party implements a computing party.
type Party struct {
	params    Params
	log       *zap.SugaredLogger
	field     *spdz.Field
	solver    kep.Solver
	phase     *atomic.Int32
	listener  net.Listener
	peers     []*p2p.Conn
	providers []*p2p.Conn
	engine    *spdz.Engine
	timing    *circuit.Timing

	m         sync.Mutex
	closers   []io.Closer
	closeOnce sync.Once
	closeErr  error
}

// New creates a new computing party.
func New(params *Params) (*Party, error) {
	p := &Party{
		params: *params,
		log:    params.Log,
		solver: params.Solver,
		phase:  atomic.NewInt32(int32(PhaseIdle)),
	}
	if len(p.params.Parties) == 0 {
		return nil, errors.New("no parties")
	}
	if p.params.ID < 0 || p.params.ID >= len(p.params.Parties) {
		return nil, fmt.Errorf("invalid party ID %d for %d parties",
			p.params.ID, len(p.params.Parties))
	}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	if p.solver == nil {
		p.solver = kep.NoExchange{}
	}
	if p.params.MaxProviders <= 0 {
		p.params.MaxProviders = DefaultMaxProviders
	}
	if len(p.params.ProviderAddr) == 0 {
		p.params.ProviderAddr = ":" + kep.DefaultProviderPort
	}
	if p.params.TimingOut == nil {
		p.params.TimingOut = os.Stdout
	}
	modulus := p.params.Modulus
	if modulus == nil {
		modulus = spdz.DefaultModulus
	}
	field, err := spdz.NewField(modulus)
	if err != nil {
		return nil, err
	}
	p.field = field
	return p, nil
}

// ID returns the party ID.
func (p *Party) ID() int {
	return p.params.ID
}

// Phase returns the current protocol phase.
func (p *Party) Phase() Phase {
	return Phase(p.phase.Load())
}

func (p *Party) setPhase(phase Phase) {
	p.phase.Store(int32(phase))
	p.log.Debugf("party %d: %s", p.params.ID, phase)
}

func (p *Party) addCloser(c io.Closer) {
	p.m.Lock()
	p.closers = append(p.closers, c)
	p.m.Unlock()
}

// abort closes the underlying network connections, failing all
// pending I/O operations.
func (p *Party) abort() {
	p.m.Lock()
	defer p.m.Unlock()
	for _, c := range p.closers {
		c.Close()
	}
}

// Listen opens the provider endpoint.
func (p *Party) Listen() error {
	if p.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", p.params.ProviderAddr)
	if err != nil {
		return err
	}
	p.listener = listener
	p.addCloser(listener)
	p.log.Infof("party %d: listening for providers at %s",
		p.params.ID, listener.Addr())
	return nil
}

// ProviderAddr returns the address of the provider endpoint.
func (p *Party) ProviderAddr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Connect connects the party mesh over TCP.
func (p *Party) Connect(ctx context.Context) error {
	if p.peers != nil {
		return nil
	}
	peers, err := p.connectMesh(ctx)
	if err != nil {
		return err
	}
	p.peers = peers
	return nil
}

// SetPeers sets the party's connections to the other parties,
// indexed by party ID.
func (p *Party) SetPeers(peers []*p2p.Conn) error {
	if len(peers) != len(p.params.Parties) {
		return fmt.Errorf("got %d peers, expected %d",
			len(peers), len(p.params.Parties))
	}
	p.peers = peers
	return nil
}

// Run runs the protocol. It opens the provider endpoint and connects
// the mesh unless they are already set up. The network connections
// are closed if ctx is cancelled.
func (p *Party) Run(ctx context.Context) (*Result, error) {
	stop := context.AfterFunc(ctx, p.abort)
	defer stop()

	result, err := p.run(ctx)
	if err != nil {
		p.setPhase(PhaseFailed)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("party %d: %w: %v", p.params.ID,
				ctx.Err(), err)
		}
		return nil, fmt.Errorf("party %d: %w", p.params.ID, err)
	}
	p.setPhase(PhaseDone)
	return result, nil
}

func (p *Party) run(ctx context.Context) (*Result, error) {
	p.timing = circuit.NewTiming()

	if err := p.Listen(); err != nil {
		return nil, err
	}
	if err := p.Connect(ctx); err != nil {
		return nil, err
	}
	engine, err := spdz.NewEngine(p.params.ID, p.peers, p.field,
		&spdz.Config{
			CompareBits: p.params.CompareBits,
			Workers:     p.params.Workers,
			Log:         p.log,
		})
	if err != nil {
		return nil, err
	}
	p.engine = engine
	if err := engine.Setup(); err != nil {
		return nil, err
	}
	if err := engine.AuditTriples(p.params.AuditTriples); err != nil {
		return nil, err
	}
	p.timing.Sample("Setup", nil)

	p.setPhase(PhaseDiscovering)
	if err := p.rendezvous(); err != nil {
		return nil, err
	}
	p.timing.Sample("Rendezvous", []string{fmt.Sprintf("%d", len(p.providers))})

	p.setPhase(PhaseIngesting)
	inputs, err := p.ingest()
	if err != nil {
		return nil, err
	}
	p.timing.Sample("Ingest", nil)

	p.setPhase(PhaseScoring)
	compat, err := kep.CompatibilityMatrix(engine, inputs)
	if err != nil {
		return nil, err
	}
	p.timing.Sample("Compat", nil)
	prio, err := kep.PriorityMatrix(engine, inputs)
	if err != nil {
		return nil, err
	}
	p.timing.Sample("Priority", nil)

	p.setPhase(PhaseSolving)
	matches, err := p.solver.Solve(engine, compat, prio)
	if err != nil {
		return nil, err
	}
	p.timing.Sample("Solve", nil)

	p.setPhase(PhaseDelivering)
	if err := p.deliver(matches); err != nil {
		return nil, err
	}
	p.timing.Sample("Deliver", nil)

	if err := p.closeProviders(); err != nil {
		p.log.Warnf("party %d: close providers: %v", p.params.ID, err)
	}
	if p.params.Timing {
		printTiming(p.params.TimingOut, p.timing, p.ioStats(), engine.Stats)
	}
	p.log.Infof("party %d: %d providers, %d rounds, %d triples",
		p.params.ID, len(p.providers), engine.Stats.Rounds.Load(),
		engine.Stats.Triples.Load())

	return &Result{
		Providers: len(p.providers),
		Compat:    compat,
		Priority:  prio,
		Matches:   matches,
	}, nil
}

func (p *Party) ioStats() p2p.IOStats {
	stats := p2p.NewIOStats()
	for _, conn := range p.peers {
		if conn != nil {
			stats = stats.Add(conn.Stats)
		}
	}
	for _, conn := range p.providers {
		if conn != nil {
			stats = stats.Add(conn.Stats)
		}
	}
	return stats
}

func (p *Party) closeProviders() error {
	var result error
	for id, conn := range p.providers {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			result = multierror.Append(result,
				fmt.Errorf("provider %d: %w", id, err))
		}
		p.providers[id] = nil
	}
	return result
}

// Close closes the provider endpoint and all connections.
func (p *Party) Close() error {
	p.closeOnce.Do(func() {
		var result error
		if p.listener != nil {
			if err := p.listener.Close(); err != nil &&
				!errors.Is(err, net.ErrClosed) {
				result = multierror.Append(result, err)
			}
		}
		if err := p.closeProviders(); err != nil {
			result = multierror.Append(result, err)
		}
		for id, conn := range p.peers {
			if conn == nil || id == p.params.ID {
				continue
			}
			if err := conn.Close(); err != nil &&
				!errors.Is(err, net.ErrClosed) {
				result = multierror.Append(result,
					fmt.Errorf("party %d: %w", id, err))
			}
		}
		p.closeErr = result
	})
	return p.closeErr
}
