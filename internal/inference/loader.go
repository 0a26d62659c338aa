package inference

import (
	"fmt"
	"strings"

	"github.com/samcharles93/chatter/internal/logger"
	"github.com/samcharles93/chatter/internal/tokenizer"
	"github.com/samcharles93/chatter/internal/toy"
)

// Loader builds the collaborators for a Loop from local settings.
type Loader struct {
	// VocabPath points at a JSON vocabulary. Empty selects the byte tokenizer.
	VocabPath string
	// Hidden is the toy model's hidden width.
	Hidden int
	// ModelSeed seeds the toy model's weights.
	ModelSeed int64
}

type LoadResult struct {
	Model     SequenceModel
	Tokenizer tokenizer.Tokenizer
	VocabSize int
}

type vocabSizer interface {
	VocabSize() int
}

// Load resolves the tokenizer first so the model can be sized to its vocabulary.
func (l Loader) Load() (*LoadResult, error) {
	var tok tokenizer.Tokenizer = tokenizer.ByteTokenizer{}
	if path := strings.TrimSpace(l.VocabPath); path != "" {
		v, err := tokenizer.LoadVocabFile(path)
		if err != nil {
			return nil, fmt.Errorf("load vocab: %w", err)
		}
		tok = v
	}

	vocab := tok.(vocabSizer).VocabSize()
	if vocab < 2 {
		return nil, fmt.Errorf("vocabulary too small: %d entries", vocab)
	}
	hidden := l.Hidden
	if hidden <= 0 {
		hidden = 32
	}

	return &LoadResult{
		Model:     toy.NewToyLM(vocab, hidden, l.ModelSeed),
		Tokenizer: tok,
		VocabSize: vocab,
	}, nil
}

// LoadLoop loads the collaborators and wraps them in a Loop.
func (l Loader) LoadLoop(opts Options, log logger.Logger) (*Loop, *LoadResult, error) {
	res, err := l.Load()
	if err != nil {
		return nil, nil, err
	}
	loop, err := NewLoop(res.Model, res.Tokenizer, opts, log)
	if err != nil {
		return nil, nil, err
	}
	return loop, res, nil
}
