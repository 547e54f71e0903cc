package training

// Matrix holds row-major numeric data, one row per sample. Token id rows
// and label rows share this shape so strategies can recombine them freely.
type Matrix [][]float64

// Rows returns the number of rows
func (m Matrix) Rows() int {
	return len(m)
}

// Canonical field names strategies use when handing batches to models.
// Raw loader batches carry task-specific field names (the configured source
// and target tags); strategies project them onto these before any forward.
const (
	FieldInputs = "input_ids"
	FieldLabels = "labels"
)

// Batch carries the named fields of one mini-batch. Field projection is
// strict: asking for an absent field is an error, never a silent default.
type Batch map[string]Matrix

// Field returns the named matrix, or a FieldError naming what was absent
func (b Batch) Field(name string) (Matrix, error) {
	m, ok := b[name]
	if !ok {
		return nil, &FieldError{Field: name}
	}
	return m, nil
}

// ConcatRows stacks a on top of b into a new matrix. Rows are copied, so
// the result does not alias either input.
func ConcatRows(a, b Matrix) Matrix {
	out := make(Matrix, 0, len(a)+len(b))
	for _, row := range a {
		out = append(out, append([]float64(nil), row...))
	}
	for _, row := range b {
		out = append(out, append([]float64(nil), row...))
	}
	return out
}

// PermuteRows reorders m so that row i of the result is row perm[i] of m
func PermuteRows(m Matrix, perm []int) Matrix {
	out := make(Matrix, len(m))
	for i, p := range perm {
		out[i] = m[p]
	}
	return out
}
