package core

import (
	"math"
	"math/bits"
)

// Enumerate returns every combination of 1..min(maxSize, len(mutations)) members,
// ordered by size and then lexicographically by position in mutations. With
// suppress set, combinations holding a conflicting pair are left out.
// The result is never nil.
func Enumerate(mutations []Mutation, maxSize int, suppress bool) []Combination {
	combos := []Combination{}
	n := len(mutations)
	if n == 0 || maxSize <= 0 {
		return combos
	}
	if maxSize > n {
		maxSize = n
	}

	for size := 1; size <= maxSize; size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		for {
			combo := make(Combination, size)
			for i, j := range idx {
				combo[i] = mutations[j]
			}
			if !suppress || !combo.HasConflict() {
				combos = append(combos, combo)
			}

			// advance to the next index tuple in lexicographic order
			i := size - 1
			for i >= 0 && idx[i] == n-size+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < size; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
	return combos
}

// CountCombinations returns the number of combinations Enumerate yields for n
// mutations and size bound k when nothing is suppressed. The result saturates at
// math.MaxInt.
func CountCombinations(n, k int) int {
	if n <= 0 || k <= 0 {
		return 0
	}
	if k > n {
		k = n
	}
	var total, binom int64 = 0, 1
	for i := int64(1); i <= int64(k); i++ {
		product := satMul(binom, int64(n)-i+1)
		if product == math.MaxInt64 {
			return math.MaxInt
		}
		binom = product / i
		total = satAdd(total, binom)
	}
	if total > math.MaxInt {
		return math.MaxInt
	}
	return int(total)
}

// satMul multiplies non-negative a and b, clamping to math.MaxInt64.
func satMul(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// satAdd adds non-negative a and b, clamping to math.MaxInt64.
func satAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
