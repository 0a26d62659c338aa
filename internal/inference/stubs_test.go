package inference

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/samcharles93/chatter/internal/logits"
	"github.com/samcharles93/chatter/internal/toy"
)

// scriptModel favours script[i] on the i-th forward call of a conversation
// (the last entry repeats). It records what it was fed and the logits it
// was asked to normalise.
type scriptModel struct {
	vocab  int
	script []int

	forwardErrAt int // forward call index that fails, -1 for never
	normFails    int // normalisation failures before the first success
	forwardHook  func(call int)

	mu      sync.Mutex
	inputs  [][]int
	seen    [][]float32
	states  []ConversationState
	normErr int
}

type stubState struct{ fed, calls int }

func newScriptModel(vocab int, script ...int) *scriptModel {
	return &scriptModel{vocab: vocab, script: script, forwardErrAt: -1}
}

func (m *scriptModel) NewState() ConversationState {
	st := &stubState{}
	m.mu.Lock()
	m.states = append(m.states, st)
	m.mu.Unlock()
	return st
}

func (m *scriptModel) Forward(tokens []int, st ConversationState) ([]float32, error) {
	m.mu.Lock()
	call := len(m.inputs)
	m.inputs = append(m.inputs, append([]int(nil), tokens...))
	m.mu.Unlock()

	if m.forwardHook != nil {
		m.forwardHook(call)
	}
	if call == m.forwardErrAt {
		return nil, errors.New("forced forward failure")
	}
	s := st.(*stubState)
	s.fed += len(tokens)
	target := m.script[min(s.calls, len(m.script)-1)]
	s.calls++
	out := make([]float32, m.vocab)
	out[target] = 100
	return out, nil
}

func (m *scriptModel) Normalize(lg []float32) ([]float32, error) {
	m.mu.Lock()
	m.seen = append(m.seen, append([]float32(nil), lg...))
	fail := m.normErr < m.normFails
	if fail {
		m.normErr++
	}
	m.mu.Unlock()
	if fail {
		return nil, errors.New("forced normalize failure")
	}
	return toy.Softmax(lg)
}

func (m *scriptModel) forwardCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// eosModel puts all probability on the end-of-sequence token regardless of
// the logits it receives.
type eosModel struct{ scriptModel }

func (m *eosModel) Normalize(lg []float32) ([]float32, error) {
	probs := make([]float32, len(lg))
	probs[logits.EndOfSequence] = 1
	return probs, nil
}

type panicModel struct{ scriptModel }

func (*panicModel) Forward([]int, ConversationState) ([]float32, error) {
	panic("boom")
}

// pieceTokenizer encodes every prompt to a fixed id list and decodes ids via
// a lookup table.
type pieceTokenizer struct {
	pieces    map[int]string
	encodeIDs []int
	failOn    string
	badDecode map[int]bool

	mu      sync.Mutex
	encoded []string
}

func newPieceTokenizer(pieces map[int]string) *pieceTokenizer {
	return &pieceTokenizer{pieces: pieces, encodeIDs: []int{7, 8, 9}}
}

func (t *pieceTokenizer) Encode(text []byte) ([]int, error) {
	t.mu.Lock()
	t.encoded = append(t.encoded, string(text))
	t.mu.Unlock()
	if t.failOn != "" && strings.Contains(string(text), t.failOn) {
		return nil, errors.New("forced encode failure")
	}
	return append([]int(nil), t.encodeIDs...), nil
}

func (t *pieceTokenizer) Decode(ids []int) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		if t.badDecode[id] {
			return nil, errors.New("forced decode failure")
		}
		out = append(out, t.pieces[id]...)
	}
	return out, nil
}

var testPieces = map[int]string{
	0: "",
	1: "a",
	2: "b",
	3: "c",
	4: "\xff",
	5: "\n",
	6: " ",
}

func newTestLoop(t *testing.T, m SequenceModel, tok *pieceTokenizer, mutate func(*Options)) *Loop {
	t.Helper()
	opts := DefaultOptions()
	opts.Sampler.Seed = 1
	if mutate != nil {
		mutate(&opts)
	}
	l, err := NewLoop(m, tok, opts, nil)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	return l
}
