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

// BitDecompose returns the little-endian shared bits of the values
// xs from the range [0, 2^nbits). The values are masked with random
// bits and a kappa-bit random high part, and the masked value is
// opened. The bits of x are then computed with a borrow chain
// subtracting the shared mask bits from the public low bits.
func (e *Engine) BitDecompose(xs []*Share, nbits int) ([][]*Share, error) {
	n := len(xs)
	if n == 0 {
		return nil, nil
	}
	if nbits <= 0 || nbits >= e.compareBits {
		return nil, fmt.Errorf("spdz: BitDecompose: invalid bit count %d", nbits)
	}
	bits, err := e.Bits(n * nbits)
	if err != nil {
		return nil, err
	}
	high, err := e.RandInts(n, e.kappa)
	if err != nil {
		return nil, err
	}
	pow2n := new(big.Int).Lsh(big.NewInt(1), uint(nbits))

	masked := make([]*Share, n)
	for i := 0; i < n; i++ {
		r := e.MulConst(high[i], pow2n)
		coef := big.NewInt(1)
		for j := 0; j < nbits; j++ {
			r = e.Add(r, e.MulConst(bits[i*nbits+j], coef))
			coef = new(big.Int).Lsh(coef, 1)
		}
		masked[i] = e.Add(xs[i], r)
	}
	opened, err := e.Open(masked)
	if err != nil {
		return nil, err
	}

	result := make([][]*Share, n)
	borrow := make([]*Share, n)
	for i := 0; i < n; i++ {
		result[i] = make([]*Share, nbits)
		borrow[i] = e.Const(0)
	}
	rs := make([]*Share, n)
	for j := 0; j < nbits; j++ {
		for i := 0; i < n; i++ {
			rs[i] = bits[i*nbits+j]
		}
		t, err := e.Mul(rs, borrow)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			// r XOR borrow
			xor := e.Sub(e.Add(rs[i], borrow[i]), e.MulConst(t[i], big.NewInt(2)))
			if opened[i].Bit(j) == 0 {
				result[i][j] = xor
				borrow[i] = e.Sub(e.Add(rs[i], borrow[i]), t[i])
			} else {
				result[i][j] = e.Sub(e.Const(1), xor)
				borrow[i] = t[i]
			}
		}
	}
	return result, nil
}

// Demux converts the little-endian bit vectors into one-hot vectors
// of 2^len(bits) slots where the slot of the encoded value is 1 and
// all other slots are 0.
func (e *Engine) Demux(bits [][]*Share) ([][]*Share, error) {
	n := len(bits)
	if n == 0 {
		return nil, nil
	}
	nbits := len(bits[0])
	for i, b := range bits {
		if len(b) != nbits {
			return nil, fmt.Errorf("spdz: Demux: vector %d: %d bits, expected %d",
				i, len(b), nbits)
		}
	}
	if nbits == 0 {
		return nil, fmt.Errorf("spdz: Demux: empty bit vectors")
	}

	result := make([][]*Share, n)
	for i := 0; i < n; i++ {
		result[i] = []*Share{
			e.Sub(e.Const(1), bits[i][0]),
			bits[i][0],
		}
	}
	for j := 1; j < nbits; j++ {
		width := len(result[0])
		var xs, ys []*Share
		for i := 0; i < n; i++ {
			for k := 0; k < width; k++ {
				xs = append(xs, result[i][k])
				ys = append(ys, bits[i][j])
			}
		}
		t, err := e.Mul(xs, ys)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			next := make([]*Share, 2*width)
			for k := 0; k < width; k++ {
				prod := t[i*width+k]
				next[k] = e.Sub(result[i][k], prod)
				next[k+width] = prod
			}
			result[i] = next
		}
	}
	return result, nil
}

// OneHot computes the one-hot selector vectors of 2^nbits slots for
// the values xs from the range [0, 2^nbits).
func (e *Engine) OneHot(xs []*Share, nbits int) ([][]*Share, error) {
	bits, err := e.BitDecompose(xs, nbits)
	if err != nil {
		return nil, err
	}
	return e.Demux(bits)
}
