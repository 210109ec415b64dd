//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"math/big"

	"github.com/markkurossi/mpc/ot"
	"github.com/markkurossi/mpc/p2p"
)

// oleLink computes additive shares of products x*y where x is held by
// one end of the link and y by the other. The link runs two IKNP
// correlated OT extensions, one for each direction. In the sending
// direction this party holds the correlation delta and in the
// receiving direction it chooses with the bits of y.
//
// The products are computed with Gilboa's method: for every bit y_k
// of y the sender offers the pair (s_k, s_k + x*2^k) and the receiver
// learns s_k + y_k*x*2^k. The sender keeps -sum(s_k) and the receiver
// sum(s_k + y_k*x*2^k).
type oleLink struct {
	field    *Field
	conn     *p2p.Conn
	bits     int
	sender   *ot.IKNPSender
	receiver *ot.IKNPReceiver
	sendCtr  uint64
	recvCtr  uint64
	h        hash.Hash
	digest   []byte
	ld       ot.LabelData
}

// newOLELink creates the OT extensions with the peer behind
// conn. Both ends must call newOLELink at the same time, the end with
// the lower party ID with first set.
func newOLELink(field *Field, conn *p2p.Conn, first bool, r io.Reader) (
	*oleLink, error) {

	l := &oleLink{
		field: field,
		conn:  conn,
		bits:  field.size * 8,
		h:     sha256.New(),
	}
	if first {
		if err := l.setupSender(r); err != nil {
			return nil, err
		}
		if err := l.setupReceiver(r); err != nil {
			return nil, err
		}
	} else {
		if err := l.setupReceiver(r); err != nil {
			return nil, err
		}
		if err := l.setupSender(r); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// setupSender creates the IKNP sender. The IKNP sender is the
// receiver of the base OTs.
func (l *oleLink) setupSender(r io.Reader) error {
	base := ot.NewCO()
	if err := base.InitReceiver(l.conn); err != nil {
		return fmt.Errorf("ole sender: %w", err)
	}
	s, err := ot.NewIKNPSender(base, l.conn, r, nil)
	if err != nil {
		return fmt.Errorf("ole sender: %w", err)
	}
	l.sender = s
	return nil
}

// setupReceiver creates the IKNP receiver. The IKNP receiver is the
// sender of the base OTs.
func (l *oleLink) setupReceiver(r io.Reader) error {
	base := ot.NewCO()
	if err := base.InitSender(l.conn); err != nil {
		return fmt.Errorf("ole receiver: %w", err)
	}
	rcv, err := ot.NewIKNPReceiver(base, l.conn, r)
	if err != nil {
		return fmt.Errorf("ole receiver: %w", err)
	}
	l.receiver = rcv
	return nil
}

// cross returns this party's shares of xs[i]*y'[i] + x'[i]*ys[i]
// where x' and y' are the peer's inputs. The end with first set sends
// first.
func (l *oleLink) cross(first bool, xs, ys []*big.Int) ([]*big.Int, error) {
	var sent, received []*big.Int
	var err error

	if first {
		sent, err = l.send(xs)
		if err != nil {
			return nil, err
		}
		received, err = l.receive(ys)
		if err != nil {
			return nil, err
		}
	} else {
		received, err = l.receive(ys)
		if err != nil {
			return nil, err
		}
		sent, err = l.send(xs)
		if err != nil {
			return nil, err
		}
	}
	result := make([]*big.Int, len(xs))
	for i := range result {
		result[i] = l.field.Add(sent[i], received[i])
	}
	return result, nil
}

// send runs the sender side of the products xs[i]*y[i] and returns
// the sender's shares.
func (l *oleLink) send(xs []*big.Int) ([]*big.Int, error) {
	n := len(xs) * l.bits
	labels, err := l.sender.Send(n, false)
	if err != nil {
		return nil, fmt.Errorf("ole send: %w", err)
	}
	taus := make([]*big.Int, n)
	result := make([]*big.Int, len(xs))

	for i, x := range xs {
		sum := new(big.Int)
		xk := l.field.Reduce(x)
		for k := 0; k < l.bits; k++ {
			idx := i*l.bits + k
			tweak := l.sendCtr + uint64(idx)

			s0 := l.hash(labels[idx], tweak)
			l1 := labels[idx]
			l1.Xor(l.sender.Delta)
			s1 := l.hash(l1, tweak)

			tau := new(big.Int).Add(s0, xk)
			tau.Sub(tau, s1)
			taus[idx] = l.field.Reduce(tau)

			sum.Add(sum, s0)
			xk = l.field.Add(xk, xk)
		}
		result[i] = l.field.Neg(l.field.Reduce(sum))
	}
	l.sendCtr += uint64(n)

	if err := l.field.SendFields(l.conn, taus); err != nil {
		return nil, err
	}
	if err := l.conn.Flush(); err != nil {
		return nil, err
	}
	return result, nil
}

// receive runs the receiver side of the products x[i]*ys[i] and
// returns the receiver's shares.
func (l *oleLink) receive(ys []*big.Int) ([]*big.Int, error) {
	n := len(ys) * l.bits
	flags := make([]bool, n)
	for i, y := range ys {
		y = l.field.Reduce(y)
		for k := 0; k < l.bits; k++ {
			flags[i*l.bits+k] = y.Bit(k) == 1
		}
	}
	labels := make([]ot.Label, n)
	if err := l.receiver.Receive(flags, labels, false); err != nil {
		return nil, fmt.Errorf("ole receive: %w", err)
	}
	taus, err := l.field.ReceiveFields(l.conn, n)
	if err != nil {
		return nil, err
	}
	result := make([]*big.Int, len(ys))
	for i := range ys {
		sum := new(big.Int)
		for k := 0; k < l.bits; k++ {
			idx := i*l.bits + k
			v := l.hash(labels[idx], l.recvCtr+uint64(idx))
			if flags[idx] {
				v.Add(v, taus[idx])
			}
			sum.Add(sum, v)
		}
		result[i] = l.field.Reduce(sum)
	}
	l.recvCtr += uint64(n)
	return result, nil
}

// hash maps the label and tweak to a field element. The digest is
// extended with a counter until it covers the field size plus 64
// bits so that the reduced value is statistically uniform.
func (l *oleLink) hash(label ot.Label, tweak uint64) *big.Int {
	var hdr [9]byte
	binary.BigEndian.PutUint64(hdr[:8], tweak)

	l.digest = l.digest[:0]
	for ctr := byte(0); len(l.digest) < l.field.size+8; ctr++ {
		hdr[8] = ctr
		l.h.Reset()
		l.h.Write(hdr[:])
		l.h.Write(label.Bytes(&l.ld))
		l.digest = l.h.Sum(l.digest)
	}
	v := new(big.Int).SetBytes(l.digest[:l.field.size+8])
	return v.Mod(v, l.field.P)
}
