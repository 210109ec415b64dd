//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package spdz

import (
	"github.com/hashicorp/go-multierror"
	"github.com/markkurossi/mpc/p2p"
)

// PipeMesh creates an in-process full mesh of n parties. The element
// mesh[i][j] is party i's connection to party j, and mesh[i][i] is
// nil.
func PipeMesh(n int) [][]*p2p.Conn {
	mesh := make([][]*p2p.Conn, n)
	for i := range mesh {
		mesh[i] = make([]*p2p.Conn, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			mesh[i][j], mesh[j][i] = p2p.Pipe()
		}
	}
	return mesh
}

// CloseMesh closes all connections of the party's mesh row.
func CloseMesh(peers []*p2p.Conn) error {
	var result error
	for _, conn := range peers {
		if conn == nil {
			continue
		}
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
