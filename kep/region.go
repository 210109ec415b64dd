//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

import (
	"math/big"
)

// RegionScore returns the distance score of the regions r1 and r2.
func RegionScore(r1, r2 int) int64 {
	d := r1 - r2
	if d < 0 {
		d = -d
	}
	if d < 4 {
		return int64(100 - 25*d)
	}
	return 0
}

// RegionMatrix returns the public region distance table.
func RegionMatrix() [][]*big.Int {
	result := make([][]*big.Int, NumRegions)
	for i := range result {
		result[i] = make([]*big.Int, NumRegions)
		for j := range result[i] {
			result[i][j] = big.NewInt(RegionScore(i, j))
		}
	}
	return result
}
