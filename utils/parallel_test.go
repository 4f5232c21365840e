package utils

import (
	"image"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachPixel(t *testing.T) {
	for _, size := range []image.Point{{0, 0}, {1, 1}, {3, 7}, {64, 17}} {
		visited := make([]int32, size.X*size.Y)
		var calls atomic.Int32
		ParallelForEachPixel(size, func(x, y int) {
			atomic.AddInt32(&visited[y*size.X+x], 1)
			calls.Add(1)
		})
		test.That(t, int(calls.Load()), test.ShouldEqual, size.X*size.Y)
		for _, v := range visited {
			test.That(t, v, test.ShouldEqual, 1)
		}
	}
}
