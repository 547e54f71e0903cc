package training

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tsawler/go-trainer/checkpoints"
	"github.com/tsawler/go-trainer/optimizer"
)

// fixedModel returns a constant forward loss and counts its calls
type fixedModel struct {
	loss     float64
	params   []*optimizer.Parameter
	forwards int
	training bool
}

func newFixedModel(loss float64) *fixedModel {
	p := &optimizer.Parameter{
		Name:  "w",
		Shape: []int{2},
		Data:  []float64{0.1, 0.2},
		Grad:  make([]float64, 2),
	}
	return &fixedModel{loss: loss, params: []*optimizer.Parameter{p}}
}

func (m *fixedModel) Train() { m.training = true }
func (m *fixedModel) Eval()  { m.training = false }

func (m *fixedModel) Forward(batch Batch) (float64, error) {
	if _, err := batch.Field(FieldInputs); err != nil {
		return 0, err
	}
	if _, err := batch.Field(FieldLabels); err != nil {
		return 0, err
	}
	m.forwards++
	return m.loss, nil
}

func (m *fixedModel) Backward(scale float64) error {
	for _, p := range m.params {
		for i := range p.Grad {
			p.Grad[i] += scale
		}
	}
	return nil
}

func (m *fixedModel) Parameters() []*optimizer.Parameter { return m.params }

func (m *fixedModel) StateDict() []checkpoints.WeightTensor {
	out := make([]checkpoints.WeightTensor, 0, len(m.params))
	for _, p := range m.params {
		out = append(out, checkpoints.WeightTensor{
			Name:  p.Name,
			Shape: append([]int(nil), p.Shape...),
			Data:  append([]float64(nil), p.Data...),
		})
	}
	return out
}

func (m *fixedModel) LoadStateDict(weights []checkpoints.WeightTensor) error {
	for i, w := range weights {
		if i < len(m.params) {
			copy(m.params[i].Data, w.Data)
		}
	}
	return nil
}

// fixedGenerator adds sampling to fixedModel; generated rows are all zero
type fixedGenerator struct {
	fixedModel
	generated int
}

func newFixedGenerator(loss float64) *fixedGenerator {
	g := &fixedGenerator{}
	g.fixedModel = *newFixedModel(loss)
	return g
}

func (g *fixedGenerator) Generate(inputs Matrix, maxLen int) (Matrix, error) {
	g.generated++
	out := make(Matrix, len(inputs))
	for i := range out {
		out[i] = make([]float64, maxLen)
	}
	return out, nil
}

// recordingTokenizer notes every decode call
type recordingTokenizer struct {
	decoded [][]float64
}

func (t *recordingTokenizer) Decode(ids []float64) string {
	t.decoded = append(t.decoded, ids)
	return fmt.Sprintf("%d tokens", len(ids))
}

// makePairBatches builds n batches of rows x cols source and target pairs.
// Source cells are positive, target cells negative, so tests can tell the
// two sides apart after recombination.
func makePairBatches(n, rows, cols int, src, trg string) []Batch {
	batches := make([]Batch, n)
	for i := range batches {
		srcM := make(Matrix, rows)
		trgM := make(Matrix, rows)
		for r := 0; r < rows; r++ {
			srcRow := make([]float64, cols)
			trgRow := make([]float64, cols)
			for c := 0; c < cols; c++ {
				srcRow[c] = float64(i*rows + r + 1)
				trgRow[c] = -float64(i*rows + r + 1)
			}
			srcM[r] = srcRow
			trgM[r] = trgRow
		}
		batches[i] = Batch{src: srcM, trg: trgM}
	}
	return batches
}

func generativeTestConfig(trainType string) Config {
	cfg := DefaultConfig()
	cfg.Task = "translation"
	cfg.Ckpt = "model.pt"
	cfg.NEpochs = 1
	cfg.TrainType = trainType
	return cfg
}

func TestComposeAdversarialBatch(t *testing.T) {
	samples := Matrix{{0, 0}, {0, 0}, {0, 0}}
	real := Matrix{{1, 1}, {2, 2}, {3, 3}}

	batch := composeAdversarialBatch(samples, real, 0.1)

	inputs, err := batch.Field(FieldInputs)
	if err != nil {
		t.Fatalf("Missing inputs: %v", err)
	}
	labels, err := batch.Field(FieldLabels)
	if err != nil {
		t.Fatalf("Missing labels: %v", err)
	}

	if inputs.Rows() != 6 || labels.Rows() != 6 {
		t.Fatalf("Expected 6 rows, got inputs=%d labels=%d", inputs.Rows(), labels.Rows())
	}

	// Every real row is labeled positive and every generated row negative,
	// wherever the shuffle put them.
	positives, negatives := 0, 0
	for i := range inputs {
		isReal := inputs[i][0] != 0
		switch labels[i][0] {
		case 0.95:
			positives++
			if !isReal {
				t.Errorf("Row %d: generated row labeled positive", i)
			}
		case 0.05:
			negatives++
			if isReal {
				t.Errorf("Row %d: real row labeled negative", i)
			}
		default:
			t.Errorf("Row %d: unexpected label %v", i, labels[i][0])
		}
	}
	if positives != 3 || negatives != 3 {
		t.Errorf("Expected 3 positive and 3 negative labels, got %d and %d", positives, negatives)
	}
}

func TestComposeAdversarialBatchNoSmoothing(t *testing.T) {
	samples := Matrix{{0}}
	real := Matrix{{7}}

	batch := composeAdversarialBatch(samples, real, 0)
	labels, _ := batch.Field(FieldLabels)
	inputs, _ := batch.Field(FieldInputs)

	for i := range inputs {
		want := 0.0
		if inputs[i][0] == 7 {
			want = 1.0
		}
		if labels[i][0] != want {
			t.Errorf("Row %d: expected label %v, got %v", i, want, labels[i][0])
		}
	}
}

func TestComposeAdversarialBatchShuffles(t *testing.T) {
	samples := Matrix{{0}, {0}, {0}, {0}}
	real := Matrix{{1}, {2}, {3}, {4}}

	// The stacked order (all generated, then all real) should not survive
	// every shuffle.
	shuffled := false
	for run := 0; run < 20 && !shuffled; run++ {
		batch := composeAdversarialBatch(samples, real, 0.1)
		inputs, _ := batch.Field(FieldInputs)
		for i := 0; i < 4; i++ {
			if inputs[i][0] != 0 {
				shuffled = true
				break
			}
		}
	}
	if !shuffled {
		t.Error("Expected at least one shuffle to move a real row forward")
	}
}

func TestAdversarialStrategyRequirements(t *testing.T) {
	batches := makePairBatches(2, 2, 3, "src", "trg")
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	tests := []struct {
		name   string
		collab Collaborators
		field  string
	}{
		{
			name: "model cannot generate",
			collab: Collaborators{
				Model:         newFixedModel(1.0),
				Discriminator: newFixedModel(0.5),
				Tokenizer:     &recordingTokenizer{},
			},
			field: "model",
		},
		{
			name: "missing discriminator",
			collab: Collaborators{
				Model:     newFixedGenerator(1.0),
				Tokenizer: &recordingTokenizer{},
			},
			field: "discriminator",
		},
		{
			name: "missing tokenizer",
			collab: Collaborators{
				Model:         newFixedGenerator(1.0),
				Discriminator: newFixedModel(0.5),
			},
			field: "tokenizer",
		},
	}

	for _, trainType := range []string{TrainGenerative, TrainAlternate} {
		for _, test := range tests {
			t.Run(trainType+" "+test.name, func(t *testing.T) {
				cfg := generativeTestConfig(trainType)
				_, err := NewStrategy(&cfg, test.collab, loader, loader)
				if err == nil {
					t.Fatal("Expected construction to fail")
				}

				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Expected a ConfigError, got %T: %v", err, err)
				}
				if cfgErr.Field != test.field {
					t.Errorf("Expected field %q, got %q", test.field, cfgErr.Field)
				}
			})
		}
	}
}

func TestGenerativeTrainEpoch(t *testing.T) {
	gen := newFixedGenerator(2.0)
	dis := newFixedModel(0.5)
	tok := &recordingTokenizer{}

	batches := makePairBatches(4, 2, 3, "src", "trg")
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	cfg := generativeTestConfig(TrainGenerative)
	strategy, err := NewStrategy(&cfg, Collaborators{Model: gen, Discriminator: dis, Tokenizer: tok}, loader, loader)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}

	losses, err := strategy.TrainEpoch()
	if err != nil {
		t.Fatalf("TrainEpoch failed: %v", err)
	}

	if len(losses) != 2 {
		t.Fatalf("Expected two losses, got %d", len(losses))
	}
	if losses[0] != 2.0 || losses[1] != 0.5 {
		t.Errorf("Expected losses [2.0 0.5], got %v", losses)
	}

	// Every batch drives a generation, both forwards and, with an
	// accumulation window of one, both optimizer steps.
	if gen.generated != 4 {
		t.Errorf("Expected 4 generations, got %d", gen.generated)
	}
	if gen.forwards != 4 || dis.forwards != 4 {
		t.Errorf("Expected 4 forwards each, got gen=%d dis=%d", gen.forwards, dis.forwards)
	}

	tracked := strategy.Tracked()
	if tracked[0].Accumulator.Steps() != 4 {
		t.Errorf("Expected 4 generator steps, got %d", tracked[0].Accumulator.Steps())
	}
	if tracked[1].Accumulator.Steps() != 4 {
		t.Errorf("Expected 4 discriminator steps, got %d", tracked[1].Accumulator.Steps())
	}
	if !gen.training || !dis.training {
		t.Error("Expected both models left in training mode")
	}
}

func TestGenerativeValidEpoch(t *testing.T) {
	gen := newFixedGenerator(2.0)
	dis := newFixedModel(0.5)
	tok := &recordingTokenizer{}

	batches := makePairBatches(3, 2, 3, "src", "trg")
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	cfg := generativeTestConfig(TrainGenerative)
	strategy, err := NewStrategy(&cfg, Collaborators{Model: gen, Discriminator: dis, Tokenizer: tok}, loader, loader)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}

	losses, err := strategy.ValidEpoch()
	if err != nil {
		t.Fatalf("ValidEpoch failed: %v", err)
	}
	if losses[0] != 2.0 || losses[1] != 0.5 {
		t.Errorf("Expected losses [2.0 0.5], got %v", losses)
	}

	// Validation is forward-only and previews one decoded sample.
	for i, tm := range strategy.Tracked() {
		if tm.Accumulator.Steps() != 0 {
			t.Errorf("Tracked %d: expected no optimizer steps, got %d", i, tm.Accumulator.Steps())
		}
	}
	if len(tok.decoded) != 1 {
		t.Errorf("Expected one decoded preview, got %d", len(tok.decoded))
	}
	if gen.training || dis.training {
		t.Error("Expected both models left in eval mode")
	}
}

func TestGenerativeMissingField(t *testing.T) {
	gen := newFixedGenerator(2.0)
	dis := newFixedModel(0.5)

	batches := []Batch{{"src": Matrix{{1, 2}}}}
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	cfg := generativeTestConfig(TrainGenerative)
	strategy, err := NewStrategy(&cfg, Collaborators{Model: gen, Discriminator: dis, Tokenizer: &recordingTokenizer{}}, loader, loader)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}

	_, err = strategy.TrainEpoch()
	if err == nil {
		t.Fatal("Expected error for missing target field")
	}
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("Expected missing field error, got %v", err)
	}

	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("Expected a FieldError, got %T", err)
	}
	if fieldErr.Field != "trg" {
		t.Errorf("Expected field trg, got %q", fieldErr.Field)
	}
}

func TestAlternateParity(t *testing.T) {
	gen := newFixedGenerator(2.0)
	dis := newFixedModel(0.5)

	batches := makePairBatches(4, 2, 3, "src", "trg")
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	cfg := generativeTestConfig(TrainAlternate)
	strategy, err := NewStrategy(&cfg, Collaborators{Model: gen, Discriminator: dis, Tokenizer: &recordingTokenizer{}}, loader, loader)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}
	if strategy.Name() != TrainAlternate {
		t.Errorf("Expected strategy name %q, got %q", TrainAlternate, strategy.Name())
	}

	losses, err := strategy.TrainEpoch()
	if err != nil {
		t.Fatalf("TrainEpoch failed: %v", err)
	}

	// Both models are measured on every batch.
	if gen.forwards != 4 || dis.forwards != 4 {
		t.Errorf("Expected 4 forwards each, got gen=%d dis=%d", gen.forwards, dis.forwards)
	}
	if losses[0] != 2.0 || losses[1] != 0.5 {
		t.Errorf("Expected losses [2.0 0.5], got %v", losses)
	}

	// Updates alternate: even batches feed the generator, odd ones the
	// discriminator.
	tracked := strategy.Tracked()
	if tracked[0].Accumulator.Steps() != 2 {
		t.Errorf("Expected 2 generator steps, got %d", tracked[0].Accumulator.Steps())
	}
	if tracked[1].Accumulator.Steps() != 2 {
		t.Errorf("Expected 2 discriminator steps, got %d", tracked[1].Accumulator.Steps())
	}
}

func TestGenerativeRowMismatch(t *testing.T) {
	gen := newFixedGenerator(2.0)
	dis := newFixedModel(0.5)

	batches := []Batch{{
		"src": Matrix{{1, 2}, {3, 4}},
		"trg": Matrix{{5, 6}},
	}}
	loader, err := NewSliceLoader(batches, false)
	if err != nil {
		t.Fatalf("NewSliceLoader failed: %v", err)
	}

	cfg := generativeTestConfig(TrainGenerative)
	strategy, err := NewStrategy(&cfg, Collaborators{Model: gen, Discriminator: dis, Tokenizer: &recordingTokenizer{}}, loader, loader)
	if err != nil {
		t.Fatalf("NewStrategy failed: %v", err)
	}

	_, err = strategy.TrainEpoch()
	if err == nil {
		t.Fatal("Expected error for mismatched row counts")
	}
}
