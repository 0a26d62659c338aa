package logits

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// EndOfSequence is the reserved token id that terminates generation.
const EndOfSequence = 0

// SamplerConfig configures nucleus sampling and the repetition penalties.
// It is read-only for the lifetime of a generation run.
type SamplerConfig struct {
	Seed             int64
	TopP             float32
	Temperature      float32
	PresencePenalty  float32
	FrequencyPenalty float32
}

// DefaultSamplerConfig returns the stock sampling parameters.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		TopP:             0.5,
		Temperature:      1.0,
		PresencePenalty:  0.3,
		FrequencyPenalty: 0.3,
	}
}

// Validate reports parameters the sampler cannot work with. The sampler does
// not clamp; callers are expected to reject bad input up front.
func (c SamplerConfig) Validate() error {
	if !(c.TopP > 0 && c.TopP <= 1) {
		return fmt.Errorf("top_p must be in (0, 1], got %g", c.TopP)
	}
	if !(c.Temperature > 0) || math.IsInf(float64(c.Temperature), 0) {
		return fmt.Errorf("temperature must be a positive finite value, got %g", c.Temperature)
	}
	return nil
}

// Candidate is a vocabulary entry admitted into the nucleus.
type Candidate struct {
	ID   int
	Prob float64
}

// Nucleus returns the top-p set for probs, ordered by descending probability
// with ties kept in index order. A candidate is admitted while the mass of
// the strictly higher ranked candidates does not exceed topP, so the entry
// that crosses the threshold is the last one kept.
func Nucleus(probs []float32, topP float32) []Candidate {
	return nucleusInto(nil, probs, topP)
}

func nucleusInto(buf []Candidate, probs []float32, topP float32) []Candidate {
	buf = buf[:0]
	for i, p := range probs {
		buf = append(buf, Candidate{ID: i, Prob: float64(p)})
	}
	slices.SortStableFunc(buf, func(a, b Candidate) int {
		switch {
		case a.Prob > b.Prob:
			return -1
		case a.Prob < b.Prob:
			return 1
		default:
			return 0
		}
	})

	limit := float64(topP)
	var cum float64
	for i, c := range buf {
		if cum > limit {
			return buf[:i]
		}
		cum += c.Prob
	}
	return buf
}

// SampleNucleus picks the next token from a probability distribution using
// top-p truncation followed by temperature shaping. draw must be in [0, 1).
// An empty distribution yields EndOfSequence.
func SampleNucleus(probs []float32, cfg SamplerConfig, draw float32) int {
	return sampleInto(nil, probs, cfg, draw)
}

func sampleInto(buf []Candidate, probs []float32, cfg SamplerConfig, draw float32) int {
	nucleus := nucleusInto(buf, probs, cfg.TopP)
	if len(nucleus) == 0 {
		return EndOfSequence
	}

	invTemp := 1.0 / float64(cfg.Temperature)
	var sum float64
	for i := range nucleus {
		nucleus[i].Prob = math.Pow(nucleus[i].Prob, invTemp)
		sum += nucleus[i].Prob
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return nucleus[0].ID
	}

	r := float64(draw)
	var cum float64
	for _, c := range nucleus {
		cum += c.Prob / sum
		if cum >= r {
			return c.ID
		}
	}
	return nucleus[0].ID
}

// Sampler pairs a SamplerConfig with a seeded random source. It is not safe
// for concurrent use.
type Sampler struct {
	rng  *rand.Rand
	cfg  SamplerConfig
	cand []Candidate
}

// NewSampler returns a sampler seeded from cfg.Seed.
func NewSampler(cfg SamplerConfig) *Sampler {
	return &Sampler{
		rng: rand.New(rand.NewSource(cfg.Seed)),
		cfg: cfg,
	}
}

// Config returns the sampler's configuration.
func (s *Sampler) Config() SamplerConfig {
	return s.cfg
}

// Sample draws a token id from probs.
func (s *Sampler) Sample(probs []float32) int {
	if cap(s.cand) < len(probs) {
		s.cand = make([]Candidate, 0, len(probs))
	}
	return sampleInto(s.cand, probs, s.cfg, s.rng.Float32())
}
