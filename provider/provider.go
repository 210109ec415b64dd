//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

// Package provider implements the input provider client of the
// private kidney exchange protocol.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/mpc/p2p"
	"go.uber.org/zap"
)

// DefaultDialDelay is the delay between connection attempts.
const DefaultDialDelay = time.Second

// ErrInvalidTriple is returned when the parties' input triple does not
// satisfy c = a*b.
var ErrInvalidTriple = errors.New("invalid input triple")

// Params define provider parameters.
type Params struct {
	// ID is the provider identity.
	ID int

	// Last marks the provider with the highest identity.
	Last bool

	// Parties lists the provider endpoints of all computing parties.
	Parties []string

	DialDelay time.Duration
	Log       *zap.SugaredLogger
}

// Result holds the provider's match result. The masks are the
// reconstructed authentication masks of the donor and patient values.
type Result struct {
	Donor       int64
	Patient     int64
	DonorMask   *big.Int
	PatientMask *big.Int
}

// Provider implements an input provider.
type Provider struct {
	params Params
	log    *zap.SugaredLogger
	field  *spdz.Field
	conns  []*p2p.Conn

	closers   []io.Closer
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to all computing parties and runs the handshake.
func Dial(ctx context.Context, params *Params) (*Provider, error) {
	delay := params.DialDelay
	if delay <= 0 {
		delay = DefaultDialDelay
	}
	log := params.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	var conns []*p2p.Conn
	var closers []io.Closer
	for _, addr := range params.Parties {
		nc, err := dial(ctx, addr, delay, log)
		if err != nil {
			closeAll(conns)
			return nil, err
		}
		conns = append(conns, p2p.NewConn(nc))
		closers = append(closers, nc)
	}
	pr, err := New(params, conns)
	if err != nil {
		closeAll(conns)
		return nil, err
	}
	pr.closers = closers
	return pr, nil
}

func dial(ctx context.Context, addr string, delay time.Duration,
	log *zap.SugaredLogger) (net.Conn, error) {

	var dialer net.Dialer
	for {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return nc, nil
		}
		log.Debugf("connect to %s failed, retrying in %s", addr, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func closeAll(conns []*p2p.Conn) error {
	var result error
	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// New creates a provider over the connections to the computing
// parties and runs the handshake. All parties must agree on the field
// type and modulus.
func New(params *Params, conns []*p2p.Conn) (*Provider, error) {
	if len(conns) == 0 {
		return nil, errors.New("no parties")
	}
	if params.ID < 0 {
		return nil, fmt.Errorf("invalid identity %d: %w",
			params.ID, kep.IdentityOutOfRange)
	}
	pr := &Provider{
		params: *params,
		log:    params.Log,
		conns:  conns,
	}
	if pr.log == nil {
		pr.log = zap.NewNop().Sugar()
	}

	var last int
	if params.Last {
		last = 1
	}
	var modulus *big.Int
	for idx, conn := range conns {
		m, err := handshake(conn, params.ID, last)
		if err != nil {
			return nil, fmt.Errorf("party %d: %w", idx, err)
		}
		if modulus == nil {
			modulus = m
		} else if modulus.Cmp(m) != 0 {
			return nil, fmt.Errorf("party %d: modulus mismatch", idx)
		}
	}
	field, err := spdz.NewField(modulus)
	if err != nil {
		return nil, err
	}
	pr.field = field

	pr.log.Debugf("provider %d: connected to %d parties", params.ID, len(conns))
	return pr, nil
}

// handshake runs the connection handshake with one party and returns
// the party's field modulus.
func handshake(conn *p2p.Conn, id, last int) (*big.Int, error) {
	if err := conn.SendUint32(id); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	tag, err := conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if tag != kep.FieldTypePrime {
		return nil, fmt.Errorf("unsupported field type %x", tag)
	}
	data, err := conn.ReceiveData()
	if err != nil {
		return nil, err
	}
	if err := conn.SendUint32(last); err != nil {
		return nil, err
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(data), nil
}

// SendInputs secret-shares the record with the computing parties. The
// record slots are sent in the wire order.
func (pr *Provider) SendInputs(r *kep.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for s := kep.Slot(0); s < kep.NumSlots; s++ {
		if err := pr.sendSlot(s, r.Slot(s)); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	pr.log.Debugf("provider %d: inputs sent", pr.params.ID)
	return nil
}

func (pr *Provider) sendSlot(s kep.Slot, values []int64) error {
	length := len(values)
	if length != s.Len() {
		return fmt.Errorf("%d values, expected %d: %w",
			length, s.Len(), kep.MalformedInput)
	}
	a := make([]*big.Int, length)
	b := make([]*big.Int, length)
	c := make([]*big.Int, length)
	for i := 0; i < length; i++ {
		a[i] = new(big.Int)
		b[i] = new(big.Int)
		c[i] = new(big.Int)
	}
	for idx, conn := range pr.conns {
		count, err := conn.ReceiveUint32()
		if err != nil {
			return err
		}
		if count != length {
			return fmt.Errorf("party %d: expects %d values, have %d: %w",
				idx, count, length, kep.MalformedInput)
		}
		for i := 0; i < length; i++ {
			for _, sum := range []*big.Int{a[i], b[i], c[i]} {
				v, err := pr.field.ReceiveField(conn)
				if err != nil {
					return err
				}
				sum.Add(sum, v)
			}
		}
	}
	masked := make([]*big.Int, length)
	for i := 0; i < length; i++ {
		if pr.field.Mul(a[i], b[i]).Cmp(pr.field.Reduce(c[i])) != 0 {
			return fmt.Errorf("value %d: %w", i, ErrInvalidTriple)
		}
		masked[i] = pr.field.Add(big.NewInt(values[i]), a[i])
	}
	for _, conn := range pr.conns {
		if err := conn.SendUint32(length); err != nil {
			return err
		}
		for _, v := range masked {
			if err := pr.field.SendField(conn, v); err != nil {
				return err
			}
		}
		if err := conn.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// ReceiveResult receives the match result and verifies its
// authentication tags.
func (pr *Provider) ReceiveResult() (*Result, error) {
	var sums [2][3]*big.Int
	for i := range sums {
		for j := range sums[i] {
			sums[i][j] = new(big.Int)
		}
	}
	for _, conn := range pr.conns {
		for i := range sums {
			for j := range sums[i] {
				v, err := pr.field.ReceiveField(conn)
				if err != nil {
					return nil, err
				}
				sums[i][j].Add(sums[i][j], v)
			}
		}
	}
	var values [2]int64
	var masks [2]*big.Int
	for i, s := range sums {
		v := pr.field.Reduce(s[0])
		tag := pr.field.Mul(v, s[1])
		if tag.Cmp(pr.field.Reduce(s[2])) != 0 {
			return nil, fmt.Errorf("provider %d: %w",
				pr.params.ID, kep.AuthenticationFailed)
		}
		values[i] = pr.field.Signed(v).Int64()
		masks[i] = pr.field.Reduce(s[1])
	}
	return &Result{
		Donor:       values[0],
		Patient:     values[1],
		DonorMask:   masks[0],
		PatientMask: masks[1],
	}, nil
}

// Close closes the connections to the computing parties.
func (pr *Provider) Close() error {
	pr.closeOnce.Do(func() {
		pr.closeErr = closeAll(pr.conns)
	})
	return pr.closeErr
}

// abort closes the underlying network connections, failing all
// pending I/O operations.
func (pr *Provider) abort() {
	for _, c := range pr.closers {
		c.Close()
	}
}

// Run runs the provider protocol for the record: it connects to the
// parties, sends the inputs, and receives the result.
func Run(ctx context.Context, params *Params, r *kep.Record) (
	*Result, error) {

	if err := r.Validate(); err != nil {
		return nil, err
	}
	pr, err := Dial(ctx, params)
	if err != nil {
		return nil, err
	}
	defer pr.Close()

	stop := context.AfterFunc(ctx, pr.abort)
	defer stop()

	if err := pr.SendInputs(r); err != nil {
		return nil, err
	}
	return pr.ReceiveResult()
}
