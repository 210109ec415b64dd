//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"
	"math/big"
)

// LTZ computes [x < 0] for the signed CompareBits-bit values xs. The
// values are truncated with a statistically masked opening: with
// m=k-1, x mod 2^m is computed from the public c = 2^(k-1)+x+r and
// the shared bits of r mod 2^m, and the sign is -(x - x mod 2^m)/2^m.
func (e *Engine) LTZ(xs []*Share) ([]*Share, error) {
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	k := e.compareBits
	m := k - 1

	bits, err := e.Bits(n * m)
	if err != nil {
		return nil, err
	}
	high, err := e.RandInts(n, k+e.kappa-m)
	if err != nil {
		return nil, err
	}

	two := big.NewInt(2)
	pow2m := new(big.Int).Lsh(big.NewInt(1), uint(m))
	offset := new(big.Int).Lsh(big.NewInt(1), uint(k-1))

	// r' = sum(2^i * r_i), r = 2^m * r'' + r'
	low := make([]*Share, n)
	masked := make([]*Share, n)
	for i := 0; i < n; i++ {
		rl := new(big.Int)
		coef := big.NewInt(1)
		for j := 0; j < m; j++ {
			rl.Add(rl, new(big.Int).Mul(coef, bits[i*m+j].V))
			coef = new(big.Int).Mul(coef, two)
		}
		low[i] = &Share{V: e.field.Reduce(rl)}

		r := e.Add(e.MulConst(high[i], pow2m), low[i])
		masked[i] = e.AddConst(e.Add(xs[i], r), offset)
	}
	opened, err := e.Open(masked)
	if err != nil {
		return nil, err
	}
	cs := make([]*big.Int, n)
	for i, c := range opened {
		cs[i] = new(big.Int).Mod(c, pow2m)
	}

	lt, err := e.bitLT(cs, bits, m)
	if err != nil {
		return nil, err
	}

	inv := e.field.Inv(pow2m)
	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		// x mod 2^m = c' - r' + 2^m * [c' < r']
		mod := e.Add(e.AddConst(e.Neg(low[i]), cs[i]),
			e.MulConst(lt[i], pow2m))
		result[i] = e.MulConst(e.Sub(mod, xs[i]), inv)
	}
	return result, nil
}

// bitLT computes [c < r] for the public values cs and the shared
// little-endian bits of r. The bits are scanned from the least
// significant bit with one multiplication round per bit.
func (e *Engine) bitLT(cs []*big.Int, bits []*Share, m int) ([]*Share, error) {
	n := len(cs)
	lt := make([]*Share, n)
	for i := range lt {
		lt[i] = e.Const(0)
	}
	rs := make([]*Share, n)
	for j := 0; j < m; j++ {
		for i := 0; i < n; i++ {
			rs[i] = bits[i*m+j]
		}
		t, err := e.Mul(rs, lt)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if cs[i].Bit(j) == 0 {
				// r_i OR lt
				lt[i] = e.Sub(e.Add(rs[i], lt[i]), t[i])
			} else {
				// r_i AND lt
				lt[i] = t[i]
			}
		}
	}
	return lt, nil
}

// LT computes [a < b] pairwise.
func (e *Engine) LT(as, bs []*Share) ([]*Share, error) {
	if len(as) != len(bs) {
		return nil, fmt.Errorf("spdz: LT: length mismatch: %d != %d",
			len(as), len(bs))
	}
	diff := make([]*Share, len(as))
	for i := range as {
		diff[i] = e.Sub(as[i], bs[i])
	}
	return e.LTZ(diff)
}

// LTConst computes [x < c] for the public constant c.
func (e *Engine) LTConst(xs []*Share, c int64) ([]*Share, error) {
	neg := big.NewInt(-c)
	diff := make([]*Share, len(xs))
	for i, x := range xs {
		diff[i] = e.AddConst(x, neg)
	}
	return e.LTZ(diff)
}

// GTZ computes [x > 0].
func (e *Engine) GTZ(xs []*Share) ([]*Share, error) {
	neg := make([]*Share, len(xs))
	for i, x := range xs {
		neg[i] = e.Neg(x)
	}
	return e.LTZ(neg)
}

// EQ computes [a == b] pairwise as 1 - [a < b] - [b < a].
func (e *Engine) EQ(as, bs []*Share) ([]*Share, error) {
	n := len(as)
	if n != len(bs) {
		return nil, fmt.Errorf("spdz: EQ: length mismatch: %d != %d",
			n, len(bs))
	}
	diff := make([]*Share, 2*n)
	for i := 0; i < n; i++ {
		diff[i] = e.Sub(as[i], bs[i])
		diff[n+i] = e.Sub(bs[i], as[i])
	}
	lt, err := e.LTZ(diff)
	if err != nil {
		return nil, err
	}
	result := make([]*Share, n)
	for i := 0; i < n; i++ {
		result[i] = e.Sub(e.Sub(e.Const(1), lt[i]), lt[n+i])
	}
	return result, nil
}
