package hardware

// quadratureTable maps (previous AB << 2 | current AB) to a pulse. Invalid
// transitions, where both phases changed at once, count as zero.
var quadratureTable = [16]int{
	0, -1, 1, 0,
	1, 0, 0, -1,
	-1, 0, 0, 1,
	0, 1, -1, 0,
}

// QuadratureDecoder turns samples of the two encoder phases into pulses
type QuadratureDecoder struct {
	state uint8
}

// Update takes one sample and returns -1, 0 or +1
func (q *QuadratureDecoder) Update(a, b bool) int {
	var ab uint8
	if a {
		ab |= 2
	}
	if b {
		ab |= 1
	}
	idx := q.state<<2 | ab
	q.state = ab
	return quadratureTable[idx]
}

// ButtonFilter reports a level only after it has been sampled the same way
// stable times in a row
type ButtonFilter struct {
	stable int
	level  bool
	last   bool
	count  int
}

// NewButtonFilter creates a filter; stable below 1 is treated as 1
func NewButtonFilter(stable int) *ButtonFilter {
	if stable < 1 {
		stable = 1
	}
	return &ButtonFilter{stable: stable}
}

// Sample takes one raw reading and returns the filtered level
func (f *ButtonFilter) Sample(down bool) bool {
	if down != f.last {
		f.last = down
		f.count = 1
	} else if f.count < f.stable {
		f.count++
	}
	if f.count >= f.stable {
		f.level = f.last
	}
	return f.level
}

// Level returns the filtered level
func (f *ButtonFilter) Level() bool {
	return f.level
}
