//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"math/bits"

	"github.com/markkurossi/mpc/p2p"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default engine parameters.
const (
	DefaultCompareBits = 32
	DefaultKappa       = 40
)

// Local operations on batches smaller than this run on the calling
// goroutine.
const parallelThreshold = 256

var (
	// ErrDesynchronized is returned when the peers disagree about the
	// protocol message layout.
	ErrDesynchronized = errors.New("spdz: protocol desynchronized")

	// ErrTripleAudit is returned when an audited triple is invalid.
	ErrTripleAudit = errors.New("spdz: triple audit failed")
)

// Config defines engine parameters.
type Config struct {
	// CompareBits is the bit size k of the signed values the
	// comparison operations accept.
	CompareBits int

	// Kappa is the statistical security parameter of masked openings.
	Kappa int

	// Workers limits the goroutines running local batch operations.
	Workers int

	// Rand is the source of the engine seed. It defaults to
	// crypto/rand.Reader.
	Rand io.Reader

	Log *zap.SugaredLogger
}

// Stats holds engine statistics.
type Stats struct {
	Rounds  *atomic.Uint64
	Opened  *atomic.Uint64
	Triples *atomic.Uint64
	Bits    *atomic.Uint64
	Randoms *atomic.Uint64
}

// NewStats creates a new statistics object.
func NewStats() Stats {
	return Stats{
		Rounds:  atomic.NewUint64(0),
		Opened:  atomic.NewUint64(0),
		Triples: atomic.NewUint64(0),
		Bits:    atomic.NewUint64(0),
		Randoms: atomic.NewUint64(0),
	}
}

// Engine implements the secure arithmetic of one party.
type Engine struct {
	id          int
	field       *Field
	peers       []*p2p.Conn
	links       []*oleLink
	prg         io.Reader
	compareBits int
	kappa       int
	workers     int
	rand        io.Reader
	log         *zap.SugaredLogger
	Stats       Stats
}

// NewEngine creates a new engine for the party id. The peers slice
// holds a connection to every other party, indexed by party ID. The
// entry peers[id] is ignored.
func NewEngine(id int, peers []*p2p.Conn, field *Field, cfg *Config) (
	*Engine, error) {

	if id < 0 || id >= len(peers) {
		return nil, fmt.Errorf("spdz: invalid party ID %d for %d parties",
			id, len(peers))
	}
	for i, conn := range peers {
		if i != id && conn == nil {
			return nil, fmt.Errorf("spdz: no connection to party %d", i)
		}
	}
	e := &Engine{
		id:          id,
		field:       field,
		peers:       peers,
		compareBits: DefaultCompareBits,
		kappa:       DefaultKappa,
		workers:     1,
		rand:        rand.Reader,
		log:         zap.NewNop().Sugar(),
		Stats:       NewStats(),
	}
	if cfg != nil {
		if cfg.CompareBits > 0 {
			e.compareBits = cfg.CompareBits
		}
		if cfg.Kappa > 0 {
			e.kappa = cfg.Kappa
		}
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		if cfg.Rand != nil {
			e.rand = cfg.Rand
		}
		if cfg.Log != nil {
			e.log = cfg.Log
		}
	}
	// The masks of the comparisons are sums of one bounded random
	// integer per party.
	if field.P.BitLen() <= e.compareBits+e.kappa+2+bits.Len(uint(len(peers))) {
		return nil, fmt.Errorf("spdz: %d-bit modulus too small for %d-bit comparisons",
			field.P.BitLen(), e.compareBits)
	}
	return e, nil
}

// ID returns the party ID.
func (e *Engine) ID() int {
	return e.id
}

// Parties returns the number of parties.
func (e *Engine) Parties() int {
	return len(e.peers)
}

// Field returns the engine's field.
func (e *Engine) Field() *Field {
	return e.field
}

// CompareBits returns the bit size of the comparison inputs.
func (e *Engine) CompareBits() int {
	return e.compareBits
}

// Const returns a share of the public constant v.
func (e *Engine) Const(v int64) *Share {
	return e.ConstBig(big.NewInt(v))
}

// ConstBig returns a share of the public constant v.
func (e *Engine) ConstBig(v *big.Int) *Share {
	if e.id == 0 {
		return &Share{V: e.field.Reduce(v)}
	}
	return &Share{V: new(big.Int)}
}

// Add returns a+b.
func (e *Engine) Add(a, b *Share) *Share {
	return &Share{V: e.field.Add(a.V, b.V)}
}

// Sub returns a-b.
func (e *Engine) Sub(a, b *Share) *Share {
	return &Share{V: e.field.Sub(a.V, b.V)}
}

// Neg returns -a.
func (e *Engine) Neg(a *Share) *Share {
	return &Share{V: e.field.Neg(a.V)}
}

// AddConst returns a+c for the public constant c.
func (e *Engine) AddConst(a *Share, c *big.Int) *Share {
	if e.id != 0 {
		return &Share{V: new(big.Int).Set(a.V)}
	}
	return &Share{V: e.field.Add(a.V, c)}
}

// MulConst returns a*c for the public constant c.
func (e *Engine) MulConst(a *Share, c *big.Int) *Share {
	return &Share{V: e.field.Mul(a.V, c)}
}

// Sum returns the sum of the shares.
func (e *Engine) Sum(shares ...*Share) *Share {
	sum := new(big.Int)
	for _, s := range shares {
		sum.Add(sum, s.V)
	}
	return &Share{V: e.field.Reduce(sum)}
}

// FromMasked returns the share of x from the public masked value
// x+a and the share of the mask a.
func (e *Engine) FromMasked(masked *big.Int, a *Share) *Share {
	return e.Sub(e.ConstBig(masked), a)
}

// Open reveals the shared values. Every party sends its shares to
// all other parties in one round.
func (e *Engine) Open(xs []*Share) ([]*big.Int, error) {
	e.Stats.Rounds.Inc()
	e.Stats.Opened.Add(uint64(len(xs)))

	values := make([]*big.Int, len(xs))
	for i, x := range xs {
		values[i] = x.V
	}
	received := make([][]*big.Int, len(e.peers))

	var g errgroup.Group
	for peer, conn := range e.peers {
		if peer == e.id {
			continue
		}
		g.Go(func() error {
			if err := e.field.SendFields(conn, values); err != nil {
				return err
			}
			return conn.Flush()
		})
		g.Go(func() error {
			v, err := e.field.ReceiveFields(conn, len(values))
			if err != nil {
				return fmt.Errorf("party %d: %w", peer, err)
			}
			received[peer] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*big.Int, len(xs))
	e.parallel(len(xs), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sum := new(big.Int).Set(values[i])
			for _, r := range received {
				if r != nil {
					sum.Add(sum, r[i])
				}
			}
			result[i] = e.field.Reduce(sum)
		}
	})
	return result, nil
}

// Mul multiplies the shares pairwise with Beaver triples. All
// multiplications are done in one round.
func (e *Engine) Mul(xs, ys []*Share) ([]*Share, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spdz: Mul: length mismatch: %d != %d",
			len(xs), len(ys))
	}
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	triples, err := e.Triples(n)
	if err != nil {
		return nil, err
	}
	masked := make([]*Share, 2*n)
	for i := 0; i < n; i++ {
		masked[i] = e.Sub(xs[i], triples[i].A)
		masked[n+i] = e.Sub(ys[i], triples[i].B)
	}
	opened, err := e.Open(masked)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, n)
	e.parallel(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			d := opened[i]
			f := opened[n+i]
			t := triples[i]

			z := new(big.Int).Set(t.C.V)
			z.Add(z, new(big.Int).Mul(d, t.B.V))
			z.Add(z, new(big.Int).Mul(f, t.A.V))
			if e.id == 0 {
				z.Add(z, new(big.Int).Mul(d, f))
			}
			result[i] = &Share{V: e.field.Reduce(z)}
		}
	})
	return result, nil
}

// Dot computes the inner products of the vector pairs as[i] and
// bs[i]. All products are computed in one round.
func (e *Engine) Dot(as, bs [][]*Share) ([]*Share, error) {
	if len(as) != len(bs) {
		return nil, fmt.Errorf("spdz: Dot: length mismatch: %d != %d",
			len(as), len(bs))
	}
	var xs, ys []*Share
	for i := range as {
		if len(as[i]) != len(bs[i]) {
			return nil, fmt.Errorf("spdz: Dot: vector %d: length mismatch: %d != %d",
				i, len(as[i]), len(bs[i]))
		}
		xs = append(xs, as[i]...)
		ys = append(ys, bs[i]...)
	}
	products, err := e.Mul(xs, ys)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, len(as))
	var pos int
	for i := range as {
		result[i] = e.Sum(products[pos : pos+len(as[i])]...)
		pos += len(as[i])
	}
	return result, nil
}

// parallel runs fn over the index range [0, n) split between the
// engine's workers.
func (e *Engine) parallel(n int, fn func(lo, hi int)) {
	if n < parallelThreshold || e.workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + e.workers - 1) / e.workers

	var g errgroup.Group
	g.SetLimit(e.workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
