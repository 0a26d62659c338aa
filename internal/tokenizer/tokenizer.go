package tokenizer

import "errors"

// Tokenizer converts between raw text bytes and vocabulary token ids.
type Tokenizer interface {
	Encode(text []byte) ([]int, error)
	Decode(ids []int) ([]byte, error)
}

var (
	// ErrUnknownToken is returned when Decode is given an id outside the vocabulary.
	ErrUnknownToken = errors.New("unknown token id")
	// ErrUnencodable is returned when no vocabulary entry covers part of the input.
	ErrUnencodable = errors.New("input not covered by vocabulary")
)
