//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package party

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/markkurossi/mpc/p2p"
	"golang.org/x/sync/errgroup"
)

// connectMesh connects the party to all other parties. For each pair
// of parties, the party with the lower ID accepts the connection and
// the party with the higher ID dials it and sends its ID.
func (p *Party) connectMesh(ctx context.Context) ([]*p2p.Conn, error) {
	n := len(p.params.Parties)
	id := p.params.ID
	peers := make([]*p2p.Conn, n)

	g, ctx := errgroup.WithContext(ctx)

	if id < n-1 {
		listener, err := net.Listen("tcp", p.params.Parties[id])
		if err != nil {
			return nil, err
		}
		p.log.Infof("party %d: listening for peers at %s", id, listener.Addr())
		stop := context.AfterFunc(ctx, func() {
			listener.Close()
		})
		g.Go(func() error {
			defer stop()
			defer listener.Close()
			return p.acceptPeers(listener, peers)
		})
	}
	for peer := 0; peer < id; peer++ {
		g.Go(func() error {
			conn, err := p.dialPeer(ctx, peer)
			if err != nil {
				return err
			}
			peers[peer] = conn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, conn := range peers {
			if conn != nil {
				conn.Close()
			}
		}
		return nil, err
	}
	return peers, nil
}

func (p *Party) acceptPeers(listener net.Listener, peers []*p2p.Conn) error {
	id := p.params.ID
	for pending := len(peers) - 1 - id; pending > 0; {
		nc, err := listener.Accept()
		if err != nil {
			return err
		}
		p.addCloser(nc)
		conn := p2p.NewConn(nc)

		peer, err := conn.ReceiveUint32()
		if err != nil {
			conn.Close()
			return err
		}
		if peer <= id || peer >= len(peers) {
			conn.Close()
			return fmt.Errorf("party %d: invalid peer ID %d", id, peer)
		}
		if peers[peer] != nil {
			conn.Close()
			return fmt.Errorf("party %d: peer %d already connected", id, peer)
		}
		p.log.Infof("party %d: peer %d connected from %s",
			id, peer, nc.RemoteAddr())
		peers[peer] = conn
		pending--
	}
	return nil
}

func (p *Party) dialPeer(ctx context.Context, peer int) (*p2p.Conn, error) {
	id := p.params.ID
	addr := p.params.Parties[peer]
	delay := p.params.DialDelay
	if delay <= 0 {
		delay = DefaultDialDelay
	}
	var dialer net.Dialer
	for {
		nc, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			p.addCloser(nc)
			conn := p2p.NewConn(nc)
			if err := conn.SendUint32(id); err != nil {
				conn.Close()
				return nil, err
			}
			if err := conn.Flush(); err != nil {
				conn.Close()
				return nil, err
			}
			p.log.Infof("party %d: connected to peer %d at %s", id, peer, addr)
			return conn, nil
		}
		p.log.Debugf("party %d: connect to %s failed, retrying in %s",
			id, addr, delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
