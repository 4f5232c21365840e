package keypoints

import (
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"

	"go.viam.com/lidarcalib/logging"
	"go.viam.com/lidarcalib/utils"
)

// MatchingConfig contains the parameters for matching descriptors.
type MatchingConfig struct {
	DoCrossCheck bool `json:"do_cross_check"`
	// MaxDist drops matches at or above this hamming distance; 0 keeps them all.
	MaxDist int `json:"max_dist"`
}

// DescriptorMatch contains the index of a match in the first and second set of descriptors and
// their hamming distance.
type DescriptorMatch struct {
	Idx1     int
	Idx2     int
	Distance int
}

// DescriptorMatches contains the descriptors and their matches.
type DescriptorMatches struct {
	Indices      []DescriptorMatch
	Descriptors1 Descriptors
	Descriptors2 Descriptors
}

// MatchDescriptors takes 2 sets of descriptors and performs brute force matching: every descriptor
// of the first set is paired with its nearest neighbor in the second. Matches are sorted by
// ascending distance; equal distances keep the order of the first set.
func MatchDescriptors(desc1, desc2 Descriptors, cfg *MatchingConfig, logger logging.Logger) (*DescriptorMatches, error) {
	out := &DescriptorMatches{Indices: []DescriptorMatch{}, Descriptors1: desc1, Descriptors2: desc2}
	if len(desc1) == 0 || len(desc2) == 0 {
		logger.Debugw("nothing to match", "n_descriptors1", len(desc1), "n_descriptors2", len(desc2))
		return out, nil
	}
	distances, err := utils.DescriptorsHammingDistance(toWords(desc1), toWords(desc2))
	if err != nil {
		return nil, errors.Wrap(err, "cannot compute descriptor distances")
	}
	indices1 := lo.Range(len(desc1))
	indices2 := utils.GetArgMinDistancesPerRowInt(distances)
	// mask for valid indices
	maskIdx := make([]bool, len(desc1))
	for i := range maskIdx {
		maskIdx[i] = true
	}
	if cfg.DoCrossCheck {
		// compute argmin per rows on transposed mat
		matches1 := utils.GetArgMinDistancesPerRowInt(utils.Transpose(distances))
		for i := range indices1 {
			maskIdx[i] = maskIdx[i] && indices1[i] == matches1[indices2[i]]
		}
	}
	if cfg.MaxDist > 0 {
		for i := range indices1 {
			maskIdx[i] = maskIdx[i] && distances[indices1[i]][indices2[i]] < cfg.MaxDist
		}
	}
	// masked indices
	selected := make([]DescriptorMatch, 0, len(desc1))
	for i := range desc1 {
		if maskIdx[i] {
			selected = append(selected, DescriptorMatch{
				Idx1:     indices1[i],
				Idx2:     indices2[i],
				Distance: distances[indices1[i]][indices2[i]],
			})
		}
	}
	// sort
	floatDists := lo.Map(selected, func(m DescriptorMatch, _ int) float64 { return float64(m.Distance) })
	sortedIndices := make([]int, len(selected))
	floats.ArgsortStable(floatDists, sortedIndices)
	out.Indices = make([]DescriptorMatch, len(selected))
	for i, idx := range sortedIndices {
		out.Indices[i] = selected[idx]
	}
	logger.Debugw("matched descriptors", "n_descriptors1", len(desc1), "n_descriptors2", len(desc2), "n_matches", len(out.Indices))
	return out, nil
}

func toWords(descs Descriptors) [][]uint64 {
	return lo.Map(descs, func(d Descriptor, _ int) []uint64 { return d })
}

// GetMatchingKeyPoints returns the keypoints of both sets that the matches join, in match order.
func GetMatchingKeyPoints(matches []DescriptorMatch, kps1, kps2 KeyPoints) (KeyPoints, KeyPoints, error) {
	matchedKps1 := make(KeyPoints, len(matches))
	matchedKps2 := make(KeyPoints, len(matches))
	for i, match := range matches {
		if match.Idx1 < 0 || match.Idx1 >= len(kps1) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of a first set of %d", i, match.Idx1, len(kps1))
		}
		if match.Idx2 < 0 || match.Idx2 >= len(kps2) {
			return nil, nil, errors.Errorf("match %d refers to keypoint %d of a second set of %d", i, match.Idx2, len(kps2))
		}
		matchedKps1[i] = kps1[match.Idx1]
		matchedKps2[i] = kps2[match.Idx2]
	}
	return matchedKps1, matchedKps2, nil
}
