//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package spdz implements SPDZ-style additive secret sharing over a
// prime field among P parties. The Beaver triples are generated
// pairwise with OT based oblivious linear evaluation so that no party
// knows the shared values of the correlated randomness.
package spdz

import (
	"fmt"
	"math/big"

	"github.com/markkurossi/mpc/p2p"
)

// Share is an additive share of a field element. The sum of the
// shares of all parties equals the shared value modulo P.
type Share struct {
	V *big.Int
}

func (s *Share) String() string {
	return s.V.String()
}

// Triple is a share of a Beaver multiplication triple c = a*b.
type Triple struct {
	A *Share
	B *Share
	C *Share
}

// SendField sends the field element v to conn.
func (f *Field) SendField(conn *p2p.Conn, v *big.Int) error {
	return conn.SendData(f.Bytes(v))
}

// ReceiveField receives a field element from conn.
func (f *Field) ReceiveField(conn *p2p.Conn) (*big.Int, error) {
	data, err := conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	return f.SetBytes(data)
}

// SendFields sends the count-prefixed vector of field elements.
func (f *Field) SendFields(conn *p2p.Conn, values []*big.Int) error {
	if err := conn.SendUint32(len(values)); err != nil {
		return err
	}
	for _, v := range values {
		if err := f.SendField(conn, v); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveFields receives a count-prefixed vector of field
// elements. The function fails with ErrDesynchronized if the peer
// sent a different number of elements than expected.
func (f *Field) ReceiveFields(conn *p2p.Conn, expected int) (
	[]*big.Int, error) {

	count, err := conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if count != expected {
		return nil, fmt.Errorf("%w: peer sent %d values, expected %d",
			ErrDesynchronized, count, expected)
	}
	result := make([]*big.Int, count)
	for i := 0; i < count; i++ {
		result[i], err = f.ReceiveField(conn)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
