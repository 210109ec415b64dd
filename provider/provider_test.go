//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package provider

import (
	"errors"
	"math/big"
	"testing"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/mpc/p2p"
	"github.com/stretchr/testify/require"
)

// fakeParty runs the party side of the handshake and then fn.
func fakeParty(t *testing.T, conn *p2p.Conn, field *spdz.Field,
	fn func(conn *p2p.Conn) error) chan error {

	done := make(chan error, 1)
	go func() {
		done <- func() error {
			if _, err := conn.ReceiveUint32(); err != nil {
				return err
			}
			if err := conn.SendUint32(kep.FieldTypePrime); err != nil {
				return err
			}
			if err := conn.SendData(field.P.Bytes()); err != nil {
				return err
			}
			if err := conn.Flush(); err != nil {
				return err
			}
			if _, err := conn.ReceiveUint32(); err != nil {
				return err
			}
			return fn(conn)
		}()
	}()
	return done
}

func sendShares(field *spdz.Field, conn *p2p.Conn, values ...*big.Int) error {
	for _, v := range values {
		if err := field.SendField(conn, v); err != nil {
			return err
		}
	}
	return conn.Flush()
}

// validRecord returns a zero record with a valid patient blood type.
func validRecord() *kep.Record {
	r := kep.NewRecord()
	r.Values[kep.PatientBlood] = kep.BloodA.PatientVector()
	return r
}

func newProvider(t *testing.T, field *spdz.Field,
	parties ...func(conn *p2p.Conn) error) (*Provider, []chan error) {

	var conns []*p2p.Conn
	var done []chan error
	for _, fn := range parties {
		c0, c1 := p2p.Pipe()
		conns = append(conns, c0)
		done = append(done, fakeParty(t, c1, field, fn))
	}
	pr, err := New(&Params{ID: 0, Last: true}, conns)
	require.NoError(t, err)
	return pr, done
}

func TestResultAuthentication(t *testing.T) {
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	donor := big.NewInt(3)
	patient := big.NewInt(5)
	r1 := big.NewInt(123456789)
	r2 := big.NewInt(987654321)

	// Party 0 holds the values; party 1 holds zero shares.
	honest := func(conn *p2p.Conn) error {
		return sendShares(field, conn,
			donor, r1, field.Mul(donor, r1),
			patient, r2, field.Mul(patient, r2))
	}
	zero := func(conn *p2p.Conn) error {
		z := new(big.Int)
		return sendShares(field, conn, z, z, z, z, z, z)
	}

	pr, done := newProvider(t, field, honest, zero)
	result, err := pr.ReceiveResult()
	require.NoError(t, err)
	require.Equal(t, int64(3), result.Donor)
	require.Equal(t, int64(5), result.Patient)
	for _, ch := range done {
		require.NoError(t, <-ch)
	}

	// Tampered value share.
	tampered := func(conn *p2p.Conn) error {
		z := new(big.Int)
		return sendShares(field, conn, big.NewInt(1), z, z, z, z, z)
	}
	pr, done = newProvider(t, field, honest, tampered)
	_, err = pr.ReceiveResult()
	if !errors.Is(err, kep.AuthenticationFailed) {
		t.Fatalf("expected AuthenticationFailed, got %v", err)
	}
	for _, ch := range done {
		require.NoError(t, <-ch)
	}
}

func TestIndependentMasks(t *testing.T) {
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	donor := big.NewInt(7)
	patient := big.NewInt(9)
	r1 := big.NewInt(11)
	r2 := big.NewInt(13)

	party := func(conn *p2p.Conn) error {
		return sendShares(field, conn,
			donor, r1, field.Mul(donor, r1),
			patient, r2, field.Mul(patient, r2))
	}
	pr, done := newProvider(t, field, party)
	result, err := pr.ReceiveResult()
	require.NoError(t, err)
	require.Equal(t, int64(7), result.Donor)
	require.Equal(t, int64(9), result.Patient)
	require.Equal(t, 0, result.DonorMask.Cmp(r1))
	require.Equal(t, 0, result.PatientMask.Cmp(r2))
	require.NoError(t, <-done[0])

	// The patient tag computed with the donor mask must fail.
	crossed := func(conn *p2p.Conn) error {
		return sendShares(field, conn,
			donor, r1, field.Mul(donor, r1),
			patient, r2, field.Mul(patient, r1))
	}
	pr, done = newProvider(t, field, crossed)
	_, err = pr.ReceiveResult()
	if !errors.Is(err, kep.AuthenticationFailed) {
		t.Fatalf("expected AuthenticationFailed, got %v", err)
	}
	require.NoError(t, <-done[0])
}

func TestInvalidTriple(t *testing.T) {
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	party := func(conn *p2p.Conn) error {
		length := kep.SlotDonorBlood.Len()
		if err := conn.SendUint32(length); err != nil {
			return err
		}
		for i := 0; i < length; i++ {
			err := sendShares(field, conn,
				big.NewInt(2), big.NewInt(3), big.NewInt(7))
			if err != nil {
				return err
			}
		}
		return nil
	}
	pr, done := newProvider(t, field, party)
	err = pr.SendInputs(validRecord())
	if !errors.Is(err, ErrInvalidTriple) {
		t.Fatalf("expected ErrInvalidTriple, got %v", err)
	}
	require.NoError(t, <-done[0])
}

func TestLengthMismatch(t *testing.T) {
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	party := func(conn *p2p.Conn) error {
		if err := conn.SendUint32(3); err != nil {
			return err
		}
		return conn.Flush()
	}
	pr, done := newProvider(t, field, party)
	err = pr.SendInputs(validRecord())
	if !errors.Is(err, kep.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
	require.NoError(t, <-done[0])
}

func TestMalformedRecord(t *testing.T) {
	field, err := spdz.NewField(spdz.DefaultModulus)
	require.NoError(t, err)

	pr, done := newProvider(t, field, func(conn *p2p.Conn) error {
		return nil
	})
	r := validRecord()
	r.Set(kep.DonorRegion, kep.NumRegions)
	err = pr.SendInputs(r)
	if !errors.Is(err, kep.MalformedInput) {
		t.Fatalf("expected MalformedInput, got %v", err)
	}
	require.NoError(t, <-done[0])
}
