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

// TableColumns computes w[i] = sum_j table[i][j]*colSel[j] for the
// public table and the shared one-hot column selector. The selector
// may have more slots than the table has columns; the extra slots are
// ignored.
func (e *Engine) TableColumns(table [][]*big.Int, colSel []*Share) (
	[]*Share, error) {

	result := make([]*Share, len(table))
	for i, row := range table {
		if len(row) > len(colSel) {
			return nil, fmt.Errorf("spdz: table row %d: %d columns, selector has %d slots",
				i, len(row), len(colSel))
		}
		sum := new(big.Int)
		for j, v := range row {
			sum.Add(sum, new(big.Int).Mul(v, colSel[j].V))
		}
		result[i] = &Share{V: e.field.Reduce(sum)}
	}
	return result, nil
}

// Lookup obliviously indexes the public table with the one-hot row
// and column selectors: result[k] = table[row_k][col_k] where
// rowSels[k] selects row_k and colSels[k] selects col_k. All lookups
// are done in one multiplication round.
func (e *Engine) Lookup(table [][]*big.Int, rowSels, colSels [][]*Share) (
	[]*Share, error) {

	if len(rowSels) != len(colSels) {
		return nil, fmt.Errorf("spdz: Lookup: selector count mismatch: %d != %d",
			len(rowSels), len(colSels))
	}
	as := make([][]*Share, len(rowSels))
	bs := make([][]*Share, len(rowSels))
	for k := range rowSels {
		if len(rowSels[k]) < len(table) {
			return nil, fmt.Errorf("spdz: Lookup: row selector %d: %d slots, table has %d rows",
				k, len(rowSels[k]), len(table))
		}
		w, err := e.TableColumns(table, colSels[k])
		if err != nil {
			return nil, err
		}
		as[k] = rowSels[k][:len(table)]
		bs[k] = w
	}
	return e.Dot(as, bs)
}
