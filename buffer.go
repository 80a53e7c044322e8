package rasterblock

import (
	"sync"
	"sync/atomic"
)

// slabPools keeps released tile slabs per data type for reuse by later runs.
var slabPools [numDataTypes]sync.Pool

// liveSlabs counts slabs handed out and not yet released.
var liveSlabs atomic.Int64

func getSlab[T Element](n int) []T {
	liveSlabs.Add(1)
	if v, ok := slabPools[DataTypeOf[T]()].Get().(*[]T); ok && cap(*v) >= n {
		s := (*v)[:n]
		clear(s)
		return s
	}

	return make([]T, n)
}

func putSlab[T Element](s []T) {
	if s == nil {
		return
	}
	liveSlabs.Add(-1)
	slabPools[DataTypeOf[T]()].Put(&s)
}

// tileBuffers holds the slabs of one run: one input slab per band read
// together and one output slab, which aliases the single input slab when
// processing in place.
type tileBuffers[T, U Element] struct {
	in      [][]T
	views   [][]T
	out     []U
	aliased bool
	size    int
}

// acquireBuffers allocates inputs input slabs and one output slab of size
// elements. With inPlace the output aliases in[0]; T and U must then be the
// same type, which callers check beforehand.
func acquireBuffers[T, U Element](inputs, size int, inPlace bool) *tileBuffers[T, U] {
	b := &tileBuffers[T, U]{
		in:    make([][]T, inputs),
		views: make([][]T, inputs),
		size:  size,
	}
	for i := range b.in {
		b.in[i] = getSlab[T](size)
	}

	if inPlace {
		if out, ok := any(b.in[0]).([]U); ok {
			b.out = out
			b.aliased = true
			return b
		}
	}
	b.out = getSlab[U](size)

	return b
}

// tile reslices every slab to the element count of t.
func (b *tileBuffers[T, U]) tile(t Tile) ([][]T, []U) {
	n := t.Len()
	for i, s := range b.in {
		b.views[i] = s[:n]
	}

	return b.views, b.out[:n]
}

// release returns every slab to the pool. It is safe to call more than once.
func (b *tileBuffers[T, U]) release() {
	if b == nil {
		return
	}
	for i, s := range b.in {
		putSlab(s)
		b.in[i] = nil
	}
	if !b.aliased {
		putSlab(b.out)
	}
	b.out = nil
}
