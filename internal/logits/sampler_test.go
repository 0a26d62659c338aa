package logits

import (
	"math"
	"testing"
)

func cfgWith(topP, temp float32) SamplerConfig {
	cfg := DefaultSamplerConfig()
	cfg.TopP = topP
	cfg.Temperature = temp
	return cfg
}

// TestSampleNucleusWorkedExample walks the [0.5, 0.3, 0.2] distribution with
// top_p=0.7: the nucleus is {0, 1} renormalised to {0.625, 0.375}.
func TestSampleNucleusWorkedExample(t *testing.T) {
	t.Parallel()

	probs := []float32{0.5, 0.3, 0.2}
	cfg := cfgWith(0.7, 1.0)

	nucleus := Nucleus(probs, cfg.TopP)
	if len(nucleus) != 2 || nucleus[0].ID != 0 || nucleus[1].ID != 1 {
		t.Fatalf("unexpected nucleus: %+v", nucleus)
	}

	tests := []struct {
		draw float32
		want int
	}{
		{0.0, 0},
		{0.5, 0},
		{0.62, 0},
		{0.63, 1},
		{0.9, 1},
		{0.999, 1},
	}
	for _, tc := range tests {
		if got := SampleNucleus(probs, cfg, tc.draw); got != tc.want {
			t.Errorf("draw=%g: got %d, want %d", tc.draw, got, tc.want)
		}
	}
}

func TestNucleusAdmitsCrossingElement(t *testing.T) {
	t.Parallel()

	// 0.4 does not exceed 0.45, so the 0.35 entry that crosses it is kept.
	nucleus := Nucleus([]float32{0.4, 0.35, 0.25}, 0.45)
	if len(nucleus) != 2 {
		t.Fatalf("expected crossing element admitted, got %+v", nucleus)
	}
}

func TestNucleusFullVocabularyAtTopPOne(t *testing.T) {
	t.Parallel()

	probs := []float32{0.1, 0.2, 0.3, 0.25, 0.15}
	nucleus := Nucleus(probs, 1.0)
	if len(nucleus) != len(probs) {
		t.Fatalf("expected %d candidates, got %d", len(probs), len(nucleus))
	}
	want := []int{2, 3, 1, 4, 0}
	for i, c := range nucleus {
		if c.ID != want[i] {
			t.Fatalf("order mismatch at %d: got %d, want %d", i, c.ID, want[i])
		}
	}
}

func TestNucleusTiesKeepIndexOrder(t *testing.T) {
	t.Parallel()

	nucleus := Nucleus([]float32{0.25, 0.25, 0.25, 0.25}, 1.0)
	for i, c := range nucleus {
		if c.ID != i {
			t.Fatalf("tie order mismatch at %d: got %d", i, c.ID)
		}
	}
}

func TestSampleNucleusGreedyBelowMax(t *testing.T) {
	t.Parallel()

	probs := []float32{0.1, 0.6, 0.2, 0.1}
	cfg := cfgWith(0.3, 1.0)
	if n := Nucleus(probs, cfg.TopP); len(n) != 1 || n[0].ID != 1 {
		t.Fatalf("expected argmax-only nucleus, got %+v", n)
	}
	for _, draw := range []float32{0, 0.25, 0.5, 0.75, 0.9999} {
		if got := SampleNucleus(probs, cfg, draw); got != 1 {
			t.Fatalf("draw=%g: expected argmax 1, got %d", draw, got)
		}
	}
}

func TestSampleNucleusTinyTopP(t *testing.T) {
	t.Parallel()

	probs := []float32{0.3, 0.3, 0.4}
	cfg := cfgWith(1e-6, 1.0)
	if got := SampleNucleus(probs, cfg, 0.99); got != 2 {
		t.Fatalf("expected greedy pick 2, got %d", got)
	}
}

func TestSampleNucleusTemperatureSharpens(t *testing.T) {
	t.Parallel()

	probs := []float32{0.6, 0.4}
	// At T=1 the boundary sits at 0.6; a draw of 0.65 lands on token 1.
	if got := SampleNucleus(probs, cfgWith(1.0, 1.0), 0.65); got != 1 {
		t.Fatalf("T=1: expected 1, got %d", got)
	}
	// At T=0.5 the weights become 0.36/0.16, moving the boundary to ~0.69.
	if got := SampleNucleus(probs, cfgWith(1.0, 0.5), 0.65); got != 0 {
		t.Fatalf("T=0.5: expected 0, got %d", got)
	}
}

func TestSampleNucleusFallsBackToFirst(t *testing.T) {
	t.Parallel()

	// All mass is zero so renormalisation has nothing to work with.
	if got := SampleNucleus([]float32{0, 0, 0}, cfgWith(1.0, 1.0), 0.5); got != 0 {
		t.Fatalf("expected fallback to first entry, got %d", got)
	}
	if got := SampleNucleus(nil, cfgWith(1.0, 1.0), 0.5); got != EndOfSequence {
		t.Fatalf("expected EndOfSequence for empty input, got %d", got)
	}
}

func TestSamplerStaysInVocabulary(t *testing.T) {
	t.Parallel()

	probs := []float32{0.05, 0.1, 0.15, 0.2, 0.25, 0.25}
	for _, topP := range []float32{0.01, 0.3, 0.5, 0.9, 1.0} {
		s := NewSampler(cfgWith(topP, 0.8))
		for i := 0; i < 200; i++ {
			id := s.Sample(probs)
			if id < 0 || id >= len(probs) {
				t.Fatalf("top_p=%g: id %d out of range", topP, id)
			}
		}
	}
}

func TestSamplerDeterminism(t *testing.T) {
	t.Parallel()

	probs := []float32{0.1, 0.2, 0.3, 0.4}
	cfg := cfgWith(0.95, 0.9)
	cfg.Seed = 42
	s1 := NewSampler(cfg)
	s2 := NewSampler(cfg)
	for i := 0; i < 50; i++ {
		if a, b := s1.Sample(probs), s2.Sample(probs); a != b {
			t.Fatalf("step %d: expected deterministic sample, got %d vs %d", i, a, b)
		}
	}
}

func TestSamplerConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     SamplerConfig
		wantErr bool
	}{
		{"defaults", DefaultSamplerConfig(), false},
		{"top-p-one", cfgWith(1, 1), false},
		{"top-p-zero", cfgWith(0, 1), true},
		{"top-p-above-one", cfgWith(1.5, 1), true},
		{"top-p-nan", cfgWith(float32(math.NaN()), 1), true},
		{"zero-temp", cfgWith(0.5, 0), true},
		{"negative-temp", cfgWith(0.5, -1), true},
		{"inf-temp", cfgWith(0.5, float32(math.Inf(1))), true},
	}
	for _, tc := range tests {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}
