package toy

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ErrDegenerateLogits is returned by Normalize when no finite logit exists.
var ErrDegenerateLogits = errors.New("logits have no finite mass")

// ToyLM is a minimal recurrent language model used to exercise the
// generation loop without real weights. Each conversation carries a hidden
// vector that decays and absorbs the embedding of every token fed to it;
// logits are a projection of that vector plus a bias.
type ToyLM struct {
	Vocab  int
	Hidden int
	Decay  float32

	Emb  []float32 // [Vocab x Hidden]
	W    []float32 // [Hidden x Vocab]
	Bias []float32 // [Vocab]
}

// State is the per-conversation memory of a ToyLM.
type State struct {
	h      []float32
	tokens int
}

// Tokens returns how many tokens the state has absorbed.
func (s *State) Tokens() int { return s.tokens }

// NewToyLM constructs a model with the given vocabulary and hidden size,
// filling the weights deterministically from seed.
func NewToyLM(vocab, hidden int, seed int64) *ToyLM {
	m := &ToyLM{
		Vocab:  vocab,
		Hidden: hidden,
		Decay:  0.5,
		Emb:    make([]float32, vocab*hidden),
		W:      make([]float32, hidden*vocab),
		Bias:   make([]float32, vocab),
	}
	fillRand(m.Emb, seed+11)
	fillRand(m.W, seed+23)
	return m
}

func fillRand(dst []float32, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range dst {
		dst[i] = rng.Float32()*2 - 1
	}
}

// NewState returns an empty conversation state.
func (m *ToyLM) NewState() any {
	return &State{h: make([]float32, m.Hidden)}
}

// Forward feeds tokens into st and returns the logits for the next token.
// Token ids outside [0, Vocab) are reduced modulo Vocab.
func (m *ToyLM) Forward(tokens []int, st any) ([]float32, error) {
	s, ok := st.(*State)
	if !ok || s == nil || len(s.h) != m.Hidden {
		return nil, fmt.Errorf("toy: invalid conversation state %T", st)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("toy: forward called with no tokens")
	}
	for _, tok := range tokens {
		tok %= m.Vocab
		if tok < 0 {
			tok += m.Vocab
		}
		row := m.Emb[tok*m.Hidden : (tok+1)*m.Hidden]
		for i := range s.h {
			s.h[i] = m.Decay*s.h[i] + row[i]
		}
		s.tokens++
	}

	logits := make([]float32, m.Vocab)
	for j := range logits {
		sum := m.Bias[j]
		for i, hv := range s.h {
			sum += hv * m.W[i*m.Vocab+j]
		}
		logits[j] = sum
	}
	return logits, nil
}

// Normalize converts logits to probabilities with a max-shifted softmax.
// Entries at -Inf get probability zero.
func (m *ToyLM) Normalize(logits []float32) ([]float32, error) {
	return Softmax(logits)
}

// Softmax is the numerically stable softmax used by ToyLM.
func Softmax(logits []float32) ([]float32, error) {
	maxv := math.Inf(-1)
	for _, l := range logits {
		v := float64(l)
		if math.IsNaN(v) {
			return nil, fmt.Errorf("toy: NaN logit")
		}
		if v > maxv {
			maxv = v
		}
	}
	if math.IsInf(maxv, 0) {
		return nil, ErrDegenerateLogits
	}

	probs := make([]float32, len(logits))
	var sum float64
	exps := make([]float64, len(logits))
	for i, l := range logits {
		exps[i] = math.Exp(float64(l) - maxv)
		sum += exps[i]
	}
	for i, e := range exps {
		probs[i] = float32(e / sum)
	}
	return probs, nil
}
