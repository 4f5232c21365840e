package keypoints

import (
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/lidarcalib/logging"
)

func TestMatchDescriptors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	desc1 := Descriptors{{0b0000}, {0b1111}, {0b0011}}
	desc2 := Descriptors{{0b1110}, {0b0001}}

	matches, err := MatchDescriptors(desc1, desc2, &MatchingConfig{}, logger)
	test.That(t, err, test.ShouldBeNil)
	// 0000 -> 0001 (1), 1111 -> 1110 (1), 0011 -> 0001 (1); ties keep the first set order
	test.That(t, matches.Indices, test.ShouldResemble, []DescriptorMatch{
		{Idx1: 0, Idx2: 1, Distance: 1},
		{Idx1: 1, Idx2: 0, Distance: 1},
		{Idx1: 2, Idx2: 1, Distance: 1},
	})

	// cross check: 0001 prefers 0000 (first minimum) over 0011
	matches, err = MatchDescriptors(desc1, desc2, &MatchingConfig{DoCrossCheck: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches.Indices, test.ShouldResemble, []DescriptorMatch{
		{Idx1: 0, Idx2: 1, Distance: 1},
		{Idx1: 1, Idx2: 0, Distance: 1},
	})

	matches, err = MatchDescriptors(desc1, desc2, &MatchingConfig{MaxDist: 1}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches.Indices, test.ShouldBeEmpty)

	matches, err = MatchDescriptors(Descriptors{{0b1}, {0b111}}, Descriptors{{0b111}}, &MatchingConfig{}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches.Indices, test.ShouldResemble, []DescriptorMatch{
		{Idx1: 1, Idx2: 0, Distance: 0},
		{Idx1: 0, Idx2: 0, Distance: 2},
	})
}

func TestMatchDescriptorsEmpty(t *testing.T) {
	logger := logging.NewTestLogger(t)
	matches, err := MatchDescriptors(Descriptors{}, Descriptors{{1}}, &MatchingConfig{DoCrossCheck: true}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches.Indices, test.ShouldBeEmpty)

	matches, err = MatchDescriptors(Descriptors{{1}}, nil, &MatchingConfig{}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, matches.Indices, test.ShouldBeEmpty)

	_, err = MatchDescriptors(Descriptors{{1, 2}}, Descriptors{{1}}, &MatchingConfig{}, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestGetMatchingKeyPoints(t *testing.T) {
	kps1 := KeyPoints{{1, 1}, {2, 2}}
	kps2 := KeyPoints{{10, 10}}
	matches := []DescriptorMatch{{Idx1: 1, Idx2: 0}}
	m1, m2, err := GetMatchingKeyPoints(matches, kps1, kps2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m1, test.ShouldResemble, KeyPoints{{2, 2}})
	test.That(t, m2, test.ShouldResemble, KeyPoints{{10, 10}})

	img1, img2 := image.NewGray(image.Rect(0, 0, 5, 4)), image.NewGray(image.Rect(0, 0, 3, 6))
	vis, err := DrawMatches(img1, img2, kps1, kps2, matches)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vis.Bounds().Size(), test.ShouldResemble, image.Point{8, 6})

	matches = append(matches, DescriptorMatch{Idx1: 0, Idx2: 3})
	_, _, err = GetMatchingKeyPoints(matches, kps1, kps2)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = DrawMatches(img1, img2, kps1, kps2, matches)
	test.That(t, err, test.ShouldNotBeNil)
}
