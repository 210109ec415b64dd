//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"errors"
	"fmt"
	"io"
	"math/big"

	"golang.org/x/sync/errgroup"
)

var (
	errNotSetUp = errors.New("spdz: engine not set up")

	// ErrDegenerate is returned when a random bit could not be
	// derived from its opened square.
	ErrDegenerate = errors.New("spdz: degenerate random square")
)

// Setup seeds the engine's local randomness and creates the OT
// extensions with all other parties. The links are set up
// concurrently, one goroutine per peer.
func (e *Engine) Setup() error {
	seed := make([]byte, SeedSize)
	if _, err := io.ReadFull(e.rand, seed); err != nil {
		return err
	}
	prg, err := newStream(seed, labelShares)
	if err != nil {
		return err
	}
	links := make([]*oleLink, len(e.peers))

	var g errgroup.Group
	for peer, conn := range e.peers {
		if peer == e.id {
			continue
		}
		r, err := newStream(seed, labelLink, byte(peer>>8), byte(peer))
		if err != nil {
			return err
		}
		g.Go(func() error {
			link, err := newOLELink(e.field, conn, e.id < peer, r)
			if err != nil {
				return fmt.Errorf("party %d: %w", peer, err)
			}
			links[peer] = link
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	e.prg = prg
	e.links = links
	e.log.Debugf("spdz %d: %d OT links ready", e.id, len(e.peers)-1)
	return nil
}

// Triples creates n Beaver triples. Every party draws its shares of a
// and b locally and computes its share of c as a_i*b_i plus its
// shares of the cross terms a_i*b_j and a_j*b_i with every other
// party j.
func (e *Engine) Triples(n int) ([]*Triple, error) {
	if e.prg == nil {
		return nil, errNotSetUp
	}
	if n <= 0 {
		return nil, nil
	}
	e.Stats.Triples.Add(uint64(n))

	as := make([]*big.Int, n)
	bs := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		var err error
		as[i], err = e.field.Random(e.prg)
		if err != nil {
			return nil, err
		}
		bs[i], err = e.field.Random(e.prg)
		if err != nil {
			return nil, err
		}
	}

	cross := make([][]*big.Int, len(e.peers))
	var g errgroup.Group
	for peer, link := range e.links {
		if link == nil {
			continue
		}
		g.Go(func() error {
			v, err := link.cross(e.id < peer, as, bs)
			if err != nil {
				return fmt.Errorf("party %d: %w", peer, err)
			}
			cross[peer] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*Triple, n)
	e.parallel(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			c := new(big.Int).Mul(as[i], bs[i])
			for _, v := range cross {
				if v != nil {
					c.Add(c, v[i])
				}
			}
			result[i] = &Triple{
				A: &Share{V: as[i]},
				B: &Share{V: bs[i]},
				C: &Share{V: e.field.Reduce(c)},
			}
		}
	})
	return result, nil
}

// Bits creates n shared random bits. The parties share a random r,
// open r^2 and compute the bit (r/sqrt(r^2) + 1)/2 where sqrt is the
// canonical square root. The result is uniform because r and -r have
// the same square.
func (e *Engine) Bits(n int) ([]*Share, error) {
	if e.prg == nil {
		return nil, errNotSetUp
	}
	if n <= 0 {
		return nil, nil
	}
	e.Stats.Bits.Add(uint64(n))

	rs := make([]*Share, n)
	for i := range rs {
		r, err := e.field.Random(e.prg)
		if err != nil {
			return nil, err
		}
		rs[i] = &Share{V: r}
	}
	squares, err := e.Mul(rs, rs)
	if err != nil {
		return nil, err
	}
	opened, err := e.Open(squares)
	if err != nil {
		return nil, err
	}
	one := big.NewInt(1)
	inv2 := e.field.Inv(big.NewInt(2))

	result := make([]*Share, n)
	for i, sq := range opened {
		if sq.Sign() == 0 {
			return nil, ErrDegenerate
		}
		root := new(big.Int).ModSqrt(sq, e.field.P)
		if root == nil {
			return nil, ErrDegenerate
		}
		sign := e.MulConst(rs[i], e.field.Inv(root))
		result[i] = e.MulConst(e.AddConst(sign, one), inv2)
	}
	return result, nil
}

// RandInts creates n shared random integers. Every party contributes
// a uniform share from [0, 2^bits) so the shared value is in the
// range [0, P*2^bits) for P parties. The value is statistically
// hidden when it masks values much smaller than 2^bits.
func (e *Engine) RandInts(n, bits int) ([]*Share, error) {
	if e.prg == nil {
		return nil, errNotSetUp
	}
	e.Stats.Randoms.Add(uint64(n))

	buf := make([]byte, (bits+7)/8)
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)),
		big.NewInt(1))

	result := make([]*Share, n)
	for i := range result {
		if _, err := io.ReadFull(e.prg, buf); err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(buf)
		result[i] = &Share{V: v.And(v, mask)}
	}
	return result, nil
}
