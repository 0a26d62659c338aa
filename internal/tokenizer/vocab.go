package tokenizer

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/goccy/go-json"
)

// VocabTokenizer encodes by greedy longest match over a fixed table of byte
// sequences, the scheme used by world-style vocabularies.
type VocabTokenizer struct {
	tokens [][]byte
	root   *trieNode
}

type trieNode struct {
	next map[byte]*trieNode
	id   int
}

func newTrieNode() *trieNode {
	return &trieNode{id: -1}
}

// LoadVocabFile reads a vocabulary from a JSON file. See LoadVocab.
func LoadVocabFile(path string) (*VocabTokenizer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadVocab(f)
}

// LoadVocab reads a JSON object mapping token id to token. A token is either
// a string or an array of byte values, for entries that are not valid UTF-8
// on their own.
func LoadVocab(r io.Reader) (*VocabTokenizer, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse vocab json: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse vocab json: empty vocabulary")
	}

	entries := make(map[int][]byte, len(raw))
	maxID := 0
	for key, val := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("vocab key %q: not a token id", key)
		}
		tok, err := decodeVocabEntry(val)
		if err != nil {
			return nil, fmt.Errorf("vocab entry %d: %w", id, err)
		}
		entries[id] = tok
		maxID = max(maxID, id)
	}

	tokens := make([][]byte, maxID+1)
	for id, tok := range entries {
		tokens[id] = tok
	}
	return NewVocabTokenizer(tokens), nil
}

func decodeVocabEntry(val json.RawMessage) ([]byte, error) {
	if len(val) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch val[0] {
	case '"':
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	case '[':
		var ints []int
		if err := json.Unmarshal(val, &ints); err != nil {
			return nil, err
		}
		out := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("byte value %d out of range", v)
			}
			out[i] = byte(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected string or byte array")
	}
}

// NewVocabTokenizer builds a tokenizer where tokens[id] is the byte sequence
// for id. Empty entries are never produced by Encode. When two ids share a
// sequence the lower id wins.
func NewVocabTokenizer(tokens [][]byte) *VocabTokenizer {
	root := newTrieNode()
	for id, tok := range tokens {
		if len(tok) == 0 {
			continue
		}
		n := root
		for _, b := range tok {
			child, ok := n.next[b]
			if !ok {
				if n.next == nil {
					n.next = make(map[byte]*trieNode)
				}
				child = newTrieNode()
				n.next[b] = child
			}
			n = child
		}
		if n.id < 0 {
			n.id = id
		}
	}
	return &VocabTokenizer{tokens: tokens, root: root}
}

// VocabSize returns the number of ids, including unused ones.
func (v *VocabTokenizer) VocabSize() int {
	return len(v.tokens)
}

func (v *VocabTokenizer) Encode(text []byte) ([]int, error) {
	ids := make([]int, 0, len(text)/2+1)
	for pos := 0; pos < len(text); {
		best, bestLen := -1, 0
		n := v.root
		for i := pos; i < len(text); i++ {
			n = n.next[text[i]]
			if n == nil {
				break
			}
			if n.id >= 0 {
				best, bestLen = n.id, i-pos+1
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("byte 0x%02x at offset %d: %w", text[pos], pos, ErrUnencodable)
		}
		ids = append(ids, best)
		pos += bestLen
	}
	return ids, nil
}

func (v *VocabTokenizer) Decode(ids []int) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		if id < 0 || id >= len(v.tokens) {
			return nil, fmt.Errorf("decode %d: %w", id, ErrUnknownToken)
		}
		out = append(out, v.tokens[id]...)
	}
	return out, nil
}
