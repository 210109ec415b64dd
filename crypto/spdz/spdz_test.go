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
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var partyCounts = []int{1, 2, 3}

func newTestField(t *testing.T) *Field {
	field, err := NewField(DefaultModulus)
	require.NoError(t, err)
	return field
}

// shareValues splits the values into random additive shares for n
// parties.
func shareValues(t *testing.T, field *Field, n int, values []int64) [][]*Share {
	result := make([][]*Share, n)
	for i := range result {
		result[i] = make([]*Share, len(values))
	}
	for idx, v := range values {
		last := field.Reduce(big.NewInt(v))
		for i := 1; i < n; i++ {
			r, err := field.Random(rand.Reader)
			require.NoError(t, err)
			result[i][idx] = &Share{V: r}
			last = field.Sub(last, r)
		}
		result[0][idx] = &Share{V: last}
	}
	return result
}

// runParties runs fn for n parties connected with a pipe mesh and
// returns the output shares of each party.
func runParties(t *testing.T, n int,
	fn func(e *Engine) ([]*Share, error)) [][]*Share {

	return runPartiesConfig(t, n, func(id int) *Config {
		return &Config{
			Workers: 2,
		}
	}, fn)
}

// runPartiesConfig runs fn like runParties, creating the engine of
// each party with the configuration returned by cfg.
func runPartiesConfig(t *testing.T, n int, cfg func(id int) *Config,
	fn func(e *Engine) ([]*Share, error)) [][]*Share {

	field := newTestField(t)
	mesh := PipeMesh(n)

	outputs := make([][]*Share, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for id := 0; id < n; id++ {
		wg.Go(func() {
			e, err := NewEngine(id, mesh[id], field, cfg(id))
			if err != nil {
				errs[id] = err
				return
			}
			if err := e.Setup(); err != nil {
				errs[id] = err
				return
			}
			outputs[id], errs[id] = fn(e)
		})
	}
	wg.Wait()

	for id, err := range errs {
		if err != nil {
			t.Fatalf("party %d failed: %v", id, err)
		}
	}
	for id := range mesh {
		CloseMesh(mesh[id])
	}
	return outputs
}

func reconstruct(field *Field, outputs [][]*Share) []*big.Int {
	result := make([]*big.Int, len(outputs[0]))
	for i := range result {
		sum := new(big.Int)
		for _, party := range outputs {
			sum.Add(sum, party[i].V)
		}
		result[i] = field.Signed(sum)
	}
	return result
}

func requireValues(t *testing.T, field *Field, outputs [][]*Share,
	expected []int64) {

	values := reconstruct(field, outputs)
	require.Len(t, values, len(expected))
	for i, v := range values {
		if v.Cmp(big.NewInt(expected[i])) != 0 {
			t.Errorf("value %d: got %v, expected %v", i, v, expected[i])
		}
	}
}

func TestFieldEncoding(t *testing.T) {
	field := newTestField(t)
	require.Equal(t, 16, field.Size())

	for _, v := range []int64{0, 1, -1, 12345, -98765} {
		x := field.Reduce(big.NewInt(v))
		data := field.Bytes(x)
		require.Len(t, data, field.Size())

		y, err := field.SetBytes(data)
		require.NoError(t, err)
		require.Equal(t, 0, x.Cmp(y))
		require.Equal(t, int64(v), field.Signed(y).Int64())
	}
	_, err := field.SetBytes(make([]byte, 3))
	require.Error(t, err)

	_, err = NewField(big.NewInt(15))
	require.Error(t, err)
}

func TestPreprocessing(t *testing.T) {
	for _, n := range partyCounts {
		t.Run(fmt.Sprintf("P=%d", n), func(t *testing.T) {
			field := newTestField(t)
			outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
				triples, err := e.Triples(10)
				if err != nil {
					return nil, err
				}
				bits, err := e.Bits(20)
				if err != nil {
					return nil, err
				}
				ints, err := e.RandInts(20, 8)
				if err != nil {
					return nil, err
				}
				if e.Stats.Randoms.Load() != 20 {
					return nil, fmt.Errorf("randoms: got %v",
						e.Stats.Randoms.Load())
				}
				var result []*Share
				for _, tr := range triples {
					result = append(result, tr.A, tr.B, tr.C)
				}
				result = append(result, bits...)
				return append(result, ints...), nil
			})
			values := reconstruct(field, outputs)
			for i := 0; i < 10; i++ {
				a := values[3*i]
				b := values[3*i+1]
				c := values[3*i+2]
				require.Equal(t, 0, field.Mul(a, b).Cmp(field.Reduce(c)),
					"triple %d", i)
			}
			for _, v := range values[30:50] {
				require.True(t, v.Int64() == 0 || v.Int64() == 1,
					"invalid bit %v", v)
			}
			for _, v := range values[50:] {
				require.True(t, v.Sign() >= 0 && v.Int64() < int64(n*256),
					"invalid random integer %v", v)
			}
		})
	}
}

// zeroReader returns an endless stream of zero bytes.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// TestTriplesUnknownToParty0 runs the preprocessing twice with party
// 0 seeded from a fixed source. Party 0 draws identical shares in
// both runs but the triple values differ, so its own randomness does
// not determine them.
func TestTriplesUnknownToParty0(t *testing.T) {
	const n = 3
	const count = 8

	field := newTestField(t)
	cfg := func(id int) *Config {
		c := &Config{
			Workers: 2,
		}
		if id == 0 {
			c.Rand = zeroReader{}
		}
		return c
	}
	fn := func(e *Engine) ([]*Share, error) {
		triples, err := e.Triples(count)
		if err != nil {
			return nil, err
		}
		var result []*Share
		for _, tr := range triples {
			result = append(result, tr.A, tr.B, tr.C)
		}
		return result, nil
	}
	run1 := runPartiesConfig(t, n, cfg, fn)
	run2 := runPartiesConfig(t, n, cfg, fn)

	values1 := reconstruct(field, run1)
	values2 := reconstruct(field, run2)
	for i := 0; i < count; i++ {
		// Shares of a and b of party 0.
		require.Equal(t, 0, run1[0][3*i].V.Cmp(run2[0][3*i].V))
		require.Equal(t, 0, run1[0][3*i+1].V.Cmp(run2[0][3*i+1].V))

		require.NotEqual(t, 0, values1[3*i].Cmp(values2[3*i]),
			"triple %d: a determined by party 0", i)
		require.NotEqual(t, 0, values1[3*i+1].Cmp(values2[3*i+1]),
			"triple %d: b determined by party 0", i)

		for _, values := range [][]*big.Int{values1, values2} {
			c := field.Mul(values[3*i], values[3*i+1])
			require.Equal(t, 0, c.Cmp(field.Reduce(values[3*i+2])))
		}
	}
}

func TestNotSetUp(t *testing.T) {
	field := newTestField(t)
	mesh := PipeMesh(2)
	defer func() {
		for id := range mesh {
			CloseMesh(mesh[id])
		}
	}()
	e, err := NewEngine(0, mesh[0], field, nil)
	require.NoError(t, err)

	_, err = e.Triples(1)
	require.True(t, errors.Is(err, errNotSetUp), "got %v", err)
	_, err = e.Bits(1)
	require.True(t, errors.Is(err, errNotSetUp), "got %v", err)
	_, err = e.RandInts(1, 8)
	require.True(t, errors.Is(err, errNotSetUp), "got %v", err)
}

func TestOpenMul(t *testing.T) {
	xs := []int64{0, 1, 2, -3, 1000, 65535}
	ys := []int64{5, 0, 7, 11, -1000, 65535}

	for _, n := range partyCounts {
		t.Run(fmt.Sprintf("P=%d", n), func(t *testing.T) {
			field := newTestField(t)
			xShares := shareValues(t, field, n, xs)
			yShares := shareValues(t, field, n, ys)

			outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
				opened, err := e.Open(xShares[e.ID()])
				if err != nil {
					return nil, err
				}
				for i, v := range opened {
					if field.Signed(v).Int64() != xs[i] {
						return nil, fmt.Errorf("open %d: got %v", i, v)
					}
				}
				return e.Mul(xShares[e.ID()], yShares[e.ID()])
			})
			expected := make([]int64, len(xs))
			for i := range xs {
				expected[i] = xs[i] * ys[i]
			}
			requireValues(t, field, outputs, expected)
		})
	}
}

func TestDot(t *testing.T) {
	a := []int64{1, 0, 1, 1}
	b := []int64{0, 1, 1, 1}
	c := []int64{3}
	d := []int64{-4}

	for _, n := range partyCounts {
		field := newTestField(t)
		as := shareValues(t, field, n, a)
		bs := shareValues(t, field, n, b)
		cs := shareValues(t, field, n, c)
		ds := shareValues(t, field, n, d)

		outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
			id := e.ID()
			return e.Dot([][]*Share{as[id], cs[id]}, [][]*Share{bs[id], ds[id]})
		})
		requireValues(t, field, outputs, []int64{2, -12})
	}
}

func TestCompare(t *testing.T) {
	xs := []int64{0, 1, -1, 2, -2, 100, -100, 1<<30 + 7, -(1 << 30)}

	for _, n := range partyCounts {
		t.Run(fmt.Sprintf("P=%d", n), func(t *testing.T) {
			field := newTestField(t)
			shares := shareValues(t, field, n, xs)

			outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
				ltz, err := e.LTZ(shares[e.ID()])
				if err != nil {
					return nil, err
				}
				gtz, err := e.GTZ(shares[e.ID()])
				if err != nil {
					return nil, err
				}
				lt, err := e.LTConst(shares[e.ID()], 2)
				if err != nil {
					return nil, err
				}
				return append(append(ltz, gtz...), lt...), nil
			})
			var expected []int64
			for _, x := range xs {
				expected = append(expected, b2i(x < 0))
			}
			for _, x := range xs {
				expected = append(expected, b2i(x > 0))
			}
			for _, x := range xs {
				expected = append(expected, b2i(x < 2))
			}
			requireValues(t, field, outputs, expected)
		})
	}
}

func TestEQ(t *testing.T) {
	as := []int64{1, 2, 3, 4, 0}
	bs := []int64{1, 3, 3, 1, 0}

	for _, n := range partyCounts {
		field := newTestField(t)
		aShares := shareValues(t, field, n, as)
		bShares := shareValues(t, field, n, bs)

		outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
			eq, err := e.EQ(aShares[e.ID()], bShares[e.ID()])
			if err != nil {
				return nil, err
			}
			lt, err := e.LT(aShares[e.ID()], bShares[e.ID()])
			if err != nil {
				return nil, err
			}
			return append(eq, lt...), nil
		})
		requireValues(t, field, outputs,
			[]int64{1, 0, 1, 0, 1, 0, 1, 0, 0, 0})
	}
}

func TestBitDecomposeDemux(t *testing.T) {
	xs := []int64{0, 1, 5, 11, 12, 15}
	const nbits = 4

	for _, n := range partyCounts {
		t.Run(fmt.Sprintf("P=%d", n), func(t *testing.T) {
			field := newTestField(t)
			shares := shareValues(t, field, n, xs)

			outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
				bits, err := e.BitDecompose(shares[e.ID()], nbits)
				if err != nil {
					return nil, err
				}
				onehot, err := e.Demux(bits)
				if err != nil {
					return nil, err
				}
				var result []*Share
				for _, b := range bits {
					result = append(result, b...)
				}
				for _, o := range onehot {
					result = append(result, o...)
				}
				return result, nil
			})
			var expected []int64
			for _, x := range xs {
				for j := 0; j < nbits; j++ {
					expected = append(expected, (x>>j)&1)
				}
			}
			for _, x := range xs {
				for slot := int64(0); slot < 1<<nbits; slot++ {
					expected = append(expected, b2i(slot == x))
				}
			}
			requireValues(t, field, outputs, expected)
		})
	}
}

func TestLookup(t *testing.T) {
	table := make([][]*big.Int, 3)
	for i := range table {
		table[i] = make([]*big.Int, 3)
		for j := range table[i] {
			table[i][j] = big.NewInt(int64(10*i + j))
		}
	}
	rows := []int64{0, 2, 1}
	cols := []int64{1, 2, 0}

	for _, n := range partyCounts {
		field := newTestField(t)
		rowShares := shareValues(t, field, n, rows)
		colShares := shareValues(t, field, n, cols)

		outputs := runParties(t, n, func(e *Engine) ([]*Share, error) {
			rowSel, err := e.OneHot(rowShares[e.ID()], 2)
			if err != nil {
				return nil, err
			}
			colSel, err := e.OneHot(colShares[e.ID()], 2)
			if err != nil {
				return nil, err
			}
			return e.Lookup(table, rowSel, colSel)
		})
		requireValues(t, field, outputs, []int64{1, 22, 10})
	}
}

func TestAuditTriples(t *testing.T) {
	for _, n := range partyCounts {
		runParties(t, n, func(e *Engine) ([]*Share, error) {
			return nil, e.AuditTriples(16)
		})
	}
}

func TestDesynchronized(t *testing.T) {
	field := newTestField(t)
	mesh := PipeMesh(2)

	var wg sync.WaitGroup
	var err1 error
	wg.Go(func() {
		e, err := NewEngine(1, mesh[1], field, nil)
		if err != nil {
			err1 = err
			return
		}
		_, err1 = e.Open([]*Share{e.Const(1), e.Const(2)})
	})
	e, err := NewEngine(0, mesh[0], field, nil)
	require.NoError(t, err)
	_, err0 := e.Open([]*Share{e.Const(1)})
	wg.Wait()

	if !errors.Is(err0, ErrDesynchronized) && !errors.Is(err1, ErrDesynchronized) {
		t.Fatalf("desynchronization not detected: %v, %v", err0, err1)
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
