package helpers

// Range is a half-open interval [Lo, Hi) of item positions.
type Range struct {
	Lo, Hi int
}

// Len returns the number of items in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// Workers clamps a requested worker count to at least one.
func Workers(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// Chunks splits [0, n) into at most parts contiguous, non-empty ranges whose
// sizes differ by at most one.
func Chunks(n, parts int) []Range {
	if n <= 0 {
		return nil
	}
	parts = Workers(parts)
	if parts > n {
		parts = n
	}

	ranges := make([]Range, 0, parts)
	size, rem := n/parts, n%parts
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		ranges = append(ranges, Range{Lo: lo, Hi: hi})
		lo = hi
	}
	return ranges
}

// Blocks splits [0, n) into consecutive ranges of at most size items.
func Blocks(n, size int) []Range {
	if n <= 0 {
		return nil
	}
	if size < 1 {
		size = n
	}
	ranges := make([]Range, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		ranges = append(ranges, Range{Lo: lo, Hi: hi})
	}
	return ranges
}
