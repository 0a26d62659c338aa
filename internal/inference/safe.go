package inference

import (
	"fmt"

	"github.com/samcharles93/chatter/internal/tokenizer"
)

// The wrappers below turn collaborator panics into errors so a misbehaving
// model or tokenizer fails a run instead of taking down the process.

func safeEncode(tok tokenizer.Tokenizer, text []byte) (ids []int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Encode: %v", rec)
		}
	}()
	return tok.Encode(text)
}

func safeDecode(tok tokenizer.Tokenizer, id int) (b []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Decode: %v", rec)
		}
	}()
	return tok.Decode([]int{id})
}

func safeNewState(m SequenceModel) (st ConversationState, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in NewState: %v", rec)
		}
	}()
	return m.NewState(), nil
}

func safeForward(m SequenceModel, tokens []int, st ConversationState) (out []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Forward: %v", rec)
		}
	}()
	return m.Forward(tokens, st)
}

func safeNormalize(m SequenceModel, lg []float32) (out []float32, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in Normalize: %v", rec)
		}
	}()
	return m.Normalize(lg)
}
