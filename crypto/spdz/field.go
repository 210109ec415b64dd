//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"fmt"
	"io"
	"math/big"
)

// DefaultModulus is the Mersenne prime 2^127-1.
var DefaultModulus = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127),
	big.NewInt(1))

// Field implements arithmetic modulo a prime P.
type Field struct {
	P    *big.Int
	size int
	half *big.Int
}

// NewField creates a new prime field with the modulus p.
func NewField(p *big.Int) (*Field, error) {
	if p == nil || p.Cmp(big.NewInt(2)) <= 0 {
		return nil, fmt.Errorf("spdz: invalid modulus %v", p)
	}
	if !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("spdz: modulus %v is not a prime", p)
	}
	return &Field{
		P:    new(big.Int).Set(p),
		size: (p.BitLen() + 7) / 8,
		half: new(big.Int).Rsh(p, 1),
	}, nil
}

// Size returns the byte size of the field elements.
func (f *Field) Size() int {
	return f.size
}

// Reduce returns x mod P in the range [0, P).
func (f *Field) Reduce(x *big.Int) *big.Int {
	z := new(big.Int).Mod(x, f.P)
	if z.Sign() < 0 {
		z.Add(z, f.P)
	}
	return z
}

// Add returns a+b mod P.
func (f *Field) Add(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Add(a, b))
}

// Sub returns a-b mod P.
func (f *Field) Sub(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Sub(a, b))
}

// Mul returns a*b mod P.
func (f *Field) Mul(a, b *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Mul(a, b))
}

// Neg returns -a mod P.
func (f *Field) Neg(a *big.Int) *big.Int {
	return f.Reduce(new(big.Int).Neg(a))
}

// Inv returns the multiplicative inverse of a.
func (f *Field) Inv(a *big.Int) *big.Int {
	return new(big.Int).ModInverse(f.Reduce(a), f.P)
}

// Signed maps the field element x into the range (-P/2, P/2].
func (f *Field) Signed(x *big.Int) *big.Int {
	z := f.Reduce(x)
	if z.Cmp(f.half) > 0 {
		z.Sub(z, f.P)
	}
	return z
}

// Bytes encodes x as a fixed width big-endian byte array.
func (f *Field) Bytes(x *big.Int) []byte {
	return f.Reduce(x).FillBytes(make([]byte, f.size))
}

// SetBytes decodes a field element encoded with Bytes.
func (f *Field) SetBytes(data []byte) (*big.Int, error) {
	if len(data) != f.size {
		return nil, fmt.Errorf("spdz: invalid field element length %d, expected %d",
			len(data), f.size)
	}
	z := new(big.Int).SetBytes(data)
	if z.Cmp(f.P) >= 0 {
		return nil, fmt.Errorf("spdz: field element out of range")
	}
	return z, nil
}

// Random samples a uniformly random field element from r. The
// function reads 64 extra bits to make the modular bias negligible.
func (f *Field) Random(r io.Reader) (*big.Int, error) {
	buf := make([]byte, f.size+8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return f.Reduce(new(big.Int).SetBytes(buf)), nil
}
