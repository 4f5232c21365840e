package utils

import (
	"math/bits"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// HammingDistance returns the number of differing bits between two binary descriptors stored as
// uint64 words.
func HammingDistance(d1, d2 []uint64) (int, error) {
	if len(d1) != len(d2) {
		return -1, errors.Errorf("descriptors must have same length, got %d and %d", len(d1), len(d2))
	}
	distance := 0
	for i := range d1 {
		distance += bits.OnesCount64(d1[i] ^ d2[i])
	}
	return distance, nil
}

// DescriptorsHammingDistance computes the pairwise hamming distances between two sets of
// descriptors. Row i holds the distances of desc1[i] to every element of desc2.
func DescriptorsHammingDistance(desc1, desc2 [][]uint64) ([][]int, error) {
	distances := make([][]int, len(desc1))
	for i := range desc1 {
		distances[i] = make([]int, len(desc2))
		for j := range desc2 {
			d, err := HammingDistance(desc1[i], desc2[j])
			if err != nil {
				return nil, err
			}
			distances[i][j] = d
		}
	}
	return distances, nil
}

// GetArgMinDistancesPerRowInt returns, for every row, the column of the smallest distance. Ties
// resolve to the lowest column. Empty rows map to -1.
func GetArgMinDistancesPerRowInt(distances [][]int) []int {
	indices := make([]int, len(distances))
	for i, row := range distances {
		if len(row) == 0 {
			indices[i] = -1
			continue
		}
		rowF := make([]float64, len(row))
		for j, d := range row {
			rowF[j] = float64(d)
		}
		indices[i] = floats.MinIdx(rowF)
	}
	return indices
}

// Transpose returns the transposed distance matrix.
func Transpose(distances [][]int) [][]int {
	if len(distances) == 0 {
		return [][]int{}
	}
	out := make([][]int, len(distances[0]))
	for j := range out {
		out[j] = make([]int, len(distances))
		for i := range distances {
			out[j][i] = distances[i][j]
		}
	}
	return out
}
