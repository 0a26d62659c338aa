package tokenizer

import "fmt"

// ByteVocabSize is the vocabulary size of ByteTokenizer: the end-of-sequence
// id followed by one id per byte value.
const ByteVocabSize = 257

// ByteTokenizer maps every byte b to id b+1 and reserves id 0 for
// end-of-sequence. Any input can be encoded.
type ByteTokenizer struct{}

func (ByteTokenizer) Encode(text []byte) ([]int, error) {
	ids := make([]int, len(text))
	for i, b := range text {
		ids[i] = int(b) + 1
	}
	return ids, nil
}

// Decode maps ids back to bytes. The end-of-sequence id decodes to nothing.
func (ByteTokenizer) Decode(ids []int) ([]byte, error) {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		switch {
		case id == 0:
		case id > 0 && id < ByteVocabSize:
			out = append(out, byte(id-1))
		default:
			return nil, fmt.Errorf("decode %d: %w", id, ErrUnknownToken)
		}
	}
	return out, nil
}

// VocabSize returns ByteVocabSize.
func (ByteTokenizer) VocabSize() int { return ByteVocabSize }
