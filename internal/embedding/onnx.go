//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/iftaa/pkg/utils"
)

// Tensor names of exported multilingual sentence-transformer models
// (paraphrase-multilingual-mpnet-base-v2 and friends).
const (
	onnxInputIDs      = "input_ids"
	onnxAttentionMask = "attention_mask"
	onnxHiddenState   = "last_hidden_state"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// sessionTensors are bound to the session once and rewritten on every run.
type sessionTensors struct {
	ids    *ort.Tensor[int64]
	mask   *ort.Tensor[int64]
	hidden *ort.Tensor[float32]
}

func (t *sessionTensors) destroy() {
	for _, d := range []interface{ Destroy() error }{t.ids, t.mask, t.hidden} {
		if d != nil {
			_ = d.Destroy()
		}
	}
	*t = sessionTensors{}
}

// ONNXEmbedder mean-pools the per-token hidden state of a sentence-transformer
// model over the attention mask. Requires CGO and the onnxruntime shared
// library. Runs are serialized on one session.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	tensors    sessionTensors
	tokenizer  Tokenizer
	dimensions int
	maxTokens  int
}

// NewONNXEmbedder loads the model at modelPath. dimensions is the hidden size
// of the model and maxTokens the fixed sequence length fed to it.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if dimensions <= 0 || maxTokens <= 0 {
		return nil, errors.New("onnx: dimensions and max tokens must be positive")
	}
	ortOnce.Do(func() { ortErr = ort.InitializeEnvironment() })
	if ortErr != nil {
		return nil, fmt.Errorf("onnx: initialize runtime: %w", ortErr)
	}

	var t sessionTensors
	seq := ort.NewShape(1, int64(maxTokens))
	var err error
	if t.ids, err = ort.NewEmptyTensor[int64](seq); err != nil {
		return nil, fmt.Errorf("onnx: %s tensor: %w", onnxInputIDs, err)
	}
	if t.mask, err = ort.NewEmptyTensor[int64](seq); err != nil {
		t.destroy()
		return nil, fmt.Errorf("onnx: %s tensor: %w", onnxAttentionMask, err)
	}
	if t.hidden, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxTokens), int64(dimensions))); err != nil {
		t.destroy()
		return nil, fmt.Errorf("onnx: %s tensor: %w", onnxHiddenState, err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{onnxInputIDs, onnxAttentionMask},
		[]string{onnxHiddenState},
		[]ort.ArbitraryTensor{t.ids, t.mask},
		[]ort.ArbitraryTensor{t.hidden},
		nil,
	)
	if err != nil {
		t.destroy()
		return nil, fmt.Errorf("onnx: load %s: %w", modelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		tensors:    t,
		tokenizer:  &SimpleTokenizer{},
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}, nil
}

// Embed returns the unit-length sentence embedding of text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("onnx: embedder is closed")
	}

	ids, mask, _ := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.tensors.ids.GetData(), ids)
	copy(e.tensors.mask.GetData(), mask)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx: run: %w", err)
	}

	vec := meanPool(e.tensors.hidden.GetData(), mask, e.dimensions)
	utils.NormalizeL2(vec)
	return vec, nil
}

// meanPool averages the rows of hidden (tokens x dims) whose mask is set.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var n float32
	for tok, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[tok*dims : (tok+1)*dims]
		for i, v := range row {
			out[i] += v
		}
		n++
	}
	if n > 0 {
		for i := range out {
			out[i] /= n
		}
	}
	return out
}

// EmbedBatch embeds texts one at a time.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the model hidden size.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// Close releases the session and its tensors. Safe to call twice.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	err := e.session.Destroy()
	e.session = nil
	e.tensors.destroy()
	return err
}
