package main

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/tsawler/go-trainer/checkpoints"
	"github.com/tsawler/go-trainer/optimizer"
	"github.com/tsawler/go-trainer/training"
)

// demoLM is a unigram language model: one logit per vocabulary entry,
// shared across all positions. Forward measures the mean cross entropy
// of the label tokens under softmax(logits), and Generate emits the
// current argmax token. It is deliberately tiny; it exists to give the
// training loop real gradients to work with.
type demoLM struct {
	vocab  int
	logits *optimizer.Parameter

	// retained between Forward and Backward
	probs  []float64
	counts []float64
	tokens float64
}

func newDemoLM(vocab int, rng *rand.Rand) *demoLM {
	data := make([]float64, vocab)
	for i := range data {
		data[i] = rng.NormFloat64() * 0.1
	}
	return &demoLM{
		vocab: vocab,
		logits: &optimizer.Parameter{
			Name:  "logits",
			Shape: []int{vocab},
			Data:  data,
			Grad:  make([]float64, vocab),
		},
		probs:  make([]float64, vocab),
		counts: make([]float64, vocab),
	}
}

func (m *demoLM) Train() {}
func (m *demoLM) Eval()  {}

func (m *demoLM) Forward(batch training.Batch) (float64, error) {
	labels, err := batch.Field(training.FieldLabels)
	if err != nil {
		return 0, err
	}

	m.softmaxInto(m.probs)
	for i := range m.counts {
		m.counts[i] = 0
	}

	loss := 0.0
	n := 0
	for _, row := range labels {
		for _, id := range row {
			tok := m.clampToken(id)
			loss -= math.Log(m.probs[tok] + 1e-12)
			m.counts[tok]++
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("label field has no tokens")
	}

	m.tokens = float64(n)
	return loss / m.tokens, nil
}

func (m *demoLM) Backward(scale float64) error {
	if m.tokens == 0 {
		return fmt.Errorf("backward called before forward")
	}
	for i := range m.logits.Grad {
		m.logits.Grad[i] += scale * (m.probs[i] - m.counts[i]/m.tokens)
	}
	return nil
}

func (m *demoLM) Parameters() []*optimizer.Parameter {
	return []*optimizer.Parameter{m.logits}
}

func (m *demoLM) StateDict() []checkpoints.WeightTensor {
	return []checkpoints.WeightTensor{{
		Name:  m.logits.Name,
		Shape: append([]int(nil), m.logits.Shape...),
		Data:  append([]float64(nil), m.logits.Data...),
	}}
}

func (m *demoLM) LoadStateDict(weights []checkpoints.WeightTensor) error {
	for _, w := range weights {
		if w.Name != m.logits.Name {
			continue
		}
		if len(w.Data) != len(m.logits.Data) {
			return fmt.Errorf("weight %s: expected %d values, got %d", w.Name, len(m.logits.Data), len(w.Data))
		}
		copy(m.logits.Data, w.Data)
		return nil
	}
	return fmt.Errorf("weight %s not found in checkpoint", m.logits.Name)
}

// Generate emits maxLen copies of the most likely token for every input
// row. It works on a scratch distribution so the probabilities held for
// a pending Backward stay intact.
func (m *demoLM) Generate(inputs training.Matrix, maxLen int) (training.Matrix, error) {
	probs := make([]float64, m.vocab)
	m.softmaxInto(probs)
	best := float64(floats.MaxIdx(probs))

	out := make(training.Matrix, len(inputs))
	for i := range out {
		row := make([]float64, maxLen)
		for j := range row {
			row[j] = best
		}
		out[i] = row
	}
	return out, nil
}

func (m *demoLM) softmaxInto(dst []float64) {
	copy(dst, m.logits.Data)
	floats.AddConst(-floats.Max(dst), dst)
	for i, v := range dst {
		dst[i] = math.Exp(v)
	}
	floats.Scale(1.0/floats.Sum(dst), dst)
}

func (m *demoLM) clampToken(id float64) int {
	tok := int(id)
	if tok < 0 {
		tok = 0
	}
	if tok >= m.vocab {
		tok = m.vocab - 1
	}
	return tok
}

// demoDiscriminator is a logistic classifier over fixed-length token
// rows. Token ids are normalized by the vocabulary size before the dot
// product so the sigmoid stays in a useful range.
type demoDiscriminator struct {
	vocab   int
	weights *optimizer.Parameter
	bias    *optimizer.Parameter

	// retained between Forward and Backward
	gradW []float64
	gradB float64
	valid bool
}

func newDemoDiscriminator(seqLen, vocab int, rng *rand.Rand) *demoDiscriminator {
	data := make([]float64, seqLen)
	for i := range data {
		data[i] = rng.NormFloat64() * 0.1
	}
	return &demoDiscriminator{
		vocab: vocab,
		weights: &optimizer.Parameter{
			Name:  "w",
			Shape: []int{seqLen},
			Data:  data,
			Grad:  make([]float64, seqLen),
		},
		bias: &optimizer.Parameter{
			Name:  "b",
			Shape: []int{1},
			Data:  []float64{0},
			Grad:  make([]float64, 1),
		},
		gradW: make([]float64, seqLen),
	}
}

func (d *demoDiscriminator) Train() {}
func (d *demoDiscriminator) Eval()  {}

func (d *demoDiscriminator) Forward(batch training.Batch) (float64, error) {
	inputs, err := batch.Field(training.FieldInputs)
	if err != nil {
		return 0, err
	}
	labels, err := batch.Field(training.FieldLabels)
	if err != nil {
		return 0, err
	}
	if len(inputs) == 0 || len(inputs) != len(labels) {
		return 0, fmt.Errorf("inputs and labels must pair up, got %d and %d rows", len(inputs), len(labels))
	}

	for i := range d.gradW {
		d.gradW[i] = 0
	}
	d.gradB = 0

	x := make([]float64, len(d.weights.Data))
	loss := 0.0
	for i, row := range inputs {
		if len(row) != len(x) {
			return 0, fmt.Errorf("row %d: expected %d columns, got %d", i, len(x), len(row))
		}
		if len(labels[i]) == 0 {
			return 0, fmt.Errorf("row %d: label row is empty", i)
		}
		for j, v := range row {
			x[j] = v / float64(d.vocab)
		}

		p := sigmoid(floats.Dot(d.weights.Data, x) + d.bias.Data[0])
		y := labels[i][0]
		loss -= y*math.Log(p+1e-12) + (1-y)*math.Log(1-p+1e-12)

		residual := p - y
		floats.AddScaled(d.gradW, residual, x)
		d.gradB += residual
	}

	n := float64(len(inputs))
	floats.Scale(1/n, d.gradW)
	d.gradB /= n
	d.valid = true

	return loss / n, nil
}

func (d *demoDiscriminator) Backward(scale float64) error {
	if !d.valid {
		return fmt.Errorf("backward called before forward")
	}
	floats.AddScaled(d.weights.Grad, scale, d.gradW)
	d.bias.Grad[0] += scale * d.gradB
	return nil
}

func (d *demoDiscriminator) Parameters() []*optimizer.Parameter {
	return []*optimizer.Parameter{d.weights, d.bias}
}

func (d *demoDiscriminator) StateDict() []checkpoints.WeightTensor {
	out := make([]checkpoints.WeightTensor, 0, 2)
	for _, p := range d.Parameters() {
		out = append(out, checkpoints.WeightTensor{
			Name:  p.Name,
			Shape: append([]int(nil), p.Shape...),
			Data:  append([]float64(nil), p.Data...),
		})
	}
	return out
}

func (d *demoDiscriminator) LoadStateDict(weights []checkpoints.WeightTensor) error {
	for _, p := range d.Parameters() {
		found := false
		for _, w := range weights {
			if w.Name != p.Name {
				continue
			}
			if len(w.Data) != len(p.Data) {
				return fmt.Errorf("weight %s: expected %d values, got %d", w.Name, len(p.Data), len(w.Data))
			}
			copy(p.Data, w.Data)
			found = true
			break
		}
		if !found {
			return fmt.Errorf("weight %s not found in checkpoint", p.Name)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// demoTokenizer renders token ids as space-separated integers.
type demoTokenizer struct{}

func (demoTokenizer) Decode(ids []float64) string {
	var sb strings.Builder
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", int(id))
	}
	return sb.String()
}

// mirrorLoader builds batches of the mirror task, where the target
// sequence is the source sequence reversed.
func mirrorLoader(rng *rand.Rand, batches, batchSize, seqLen, vocab int, src, trg string, shuffle bool) (training.DataLoader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if seqLen < 1 {
		return nil, fmt.Errorf("sequence length must be positive, got %d", seqLen)
	}
	if vocab < 2 {
		return nil, fmt.Errorf("vocab size must be at least 2, got %d", vocab)
	}

	out := make([]training.Batch, batches)
	for b := range out {
		srcM := make(training.Matrix, batchSize)
		trgM := make(training.Matrix, batchSize)
		for r := 0; r < batchSize; r++ {
			srcRow := make([]float64, seqLen)
			trgRow := make([]float64, seqLen)
			for c := 0; c < seqLen; c++ {
				srcRow[c] = float64(rng.Intn(vocab))
			}
			for c := 0; c < seqLen; c++ {
				trgRow[c] = srcRow[seqLen-1-c]
			}
			srcM[r] = srcRow
			trgM[r] = trgRow
		}
		out[b] = training.Batch{src: srcM, trg: trgM}
	}
	return training.NewSliceLoader(out, shuffle)
}
