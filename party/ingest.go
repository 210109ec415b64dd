//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"fmt"

	"github.com/markkurossi/kep/crypto/spdz"
	"github.com/markkurossi/kep/kep"
	"github.com/markkurossi/mpc/p2p"
)

// rendezvous accepts providers until the rendezvous is complete.
func (p *Party) rendezvous() error {
	rv := NewRendezvous(p.params.MaxProviders)
	conns := make(map[int]*p2p.Conn)

	for !rv.Done() {
		conn, id, last, err := p.acceptProvider()
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return err
		}
		if err := rv.Admit(id, last); err != nil {
			conn.Close()
			for _, c := range conns {
				c.Close()
			}
			return err
		}
		p.log.Infof("party %d: provider %d connected (last=%v), %d/%d",
			p.params.ID, id, last, rv.Seen(), rv.Declared())
		conns[id] = conn
	}

	p.providers = make([]*p2p.Conn, rv.Declared())
	for id, conn := range conns {
		p.providers[id] = conn
	}
	return nil
}

// acceptProvider blocks until a provider connects and returns the
// provider's connection, identity, and terminal flag.
func (p *Party) acceptProvider() (conn *p2p.Conn, id int, last bool,
	err error) {

	nc, err := p.listener.Accept()
	if err != nil {
		return nil, 0, false, err
	}
	p.addCloser(nc)
	conn = p2p.NewConn(nc)

	id, err = conn.ReceiveUint32()
	if err != nil {
		conn.Close()
		return nil, 0, false, err
	}
	if err := conn.SendUint32(kep.FieldTypePrime); err != nil {
		conn.Close()
		return nil, 0, false, err
	}
	if err := conn.SendData(p.field.P.Bytes()); err != nil {
		conn.Close()
		return nil, 0, false, err
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, 0, false, err
	}
	flag, err := conn.ReceiveUint32()
	if err != nil {
		conn.Close()
		return nil, 0, false, err
	}
	return conn, id, flag != 0, nil
}

// ingest receives the inputs of all providers. The providers are
// processed in identity order, and the slots of each provider in wire
// order.
func (p *Party) ingest() ([]*kep.Inputs, error) {
	inputs := make([]*kep.Inputs, len(p.providers))
	for id, conn := range p.providers {
		in := new(kep.Inputs)
		for s := kep.Slot(0); s < kep.NumSlots; s++ {
			shares, err := p.inputSlot(conn, s)
			if err != nil {
				return nil, fmt.Errorf("provider %d: %s: %w", id, s, err)
			}
			in.Slots[s] = shares
		}
		inputs[id] = in
	}
	return inputs, nil
}

// inputSlot receives the shares of one slot. The party sends the
// provider a Beaver triple for each value and the provider replies
// with the values masked with the triples' a components.
func (p *Party) inputSlot(conn *p2p.Conn, s kep.Slot) ([]*spdz.Share, error) {
	length := s.Len()
	triples, err := p.engine.Triples(length)
	if err != nil {
		return nil, err
	}
	if err := conn.SendUint32(length); err != nil {
		return nil, err
	}
	for _, t := range triples {
		for _, share := range []*spdz.Share{t.A, t.B, t.C} {
			if err := p.field.SendField(conn, share.V); err != nil {
				return nil, err
			}
		}
	}
	if err := conn.Flush(); err != nil {
		return nil, err
	}

	count, err := conn.ReceiveUint32()
	if err != nil {
		return nil, err
	}
	if count != length {
		return nil, fmt.Errorf("received %d values, expected %d: %w",
			count, length, kep.MalformedInput)
	}
	result := make([]*spdz.Share, length)
	for i := 0; i < length; i++ {
		masked, err := p.field.ReceiveField(conn)
		if err != nil {
			return nil, err
		}
		result[i] = p.engine.FromMasked(masked, triples[i].A)
	}
	return result, nil
}
