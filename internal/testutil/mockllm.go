// Package testutil provides deterministic fakes for model and embedder
// backends plus small helpers shared across test packages.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptStep describes one model call's scripted outcome. Either Tools
// is set (the model requests tool execution) or Text is returned,
// optionally split into Chunks for streaming callers.
type ScriptStep struct {
	Text   string
	Chunks []string          // streamed instead of Text when non-empty
	Tools  []*ai.ToolRequest // tool calls to request (nil = text only)
	Err    error             // returned instead of a response
}

// ModelCall records a single call to the mock model.
type ModelCall struct {
	UserMessage string // last user message text
	NumMessages int    // total messages in the request
	NumTools    int    // tools offered in the request
	Streamed    bool   // whether a stream callback was provided
}

// MockLLM provides deterministic, call-sequenced LLM responses for
// testing. Each call consumes the next ScriptStep; when the script is
// exhausted the fallback text is returned.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	script   []ScriptStep
	next     int
	fallback string
	calls    []ModelCall
}

// NewMockLLM creates a mock LLM with the given fallback response.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// Script appends steps to the call script.
func (m *MockLLM) Script(steps ...ScriptStep) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, steps...)
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []ModelCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]ModelCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls and rewinds the script.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.next = 0
}

// Name is the provider-qualified name the mock registers under.
const Name = "mock/test-model"

// RegisterModel registers the mock as a Genkit model and returns a
// reference.
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, Name, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
			Media:      false,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	var step ScriptStep
	if m.next < len(m.script) {
		step = m.script[m.next]
		m.next++
	} else {
		step = ScriptStep{Text: m.fallback}
	}
	m.calls = append(m.calls, ModelCall{
		UserMessage: userText,
		NumMessages: len(req.Messages),
		NumTools:    len(req.Tools),
		Streamed:    cb != nil,
	})
	m.mu.Unlock()

	if step.Err != nil {
		return nil, step.Err
	}

	chunks := step.Chunks
	if len(chunks) == 0 && step.Text != "" {
		chunks = []string{step.Text}
	}
	if cb != nil {
		for _, c := range chunks {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart(c)},
			}); err != nil {
				return nil, err
			}
		}
	}

	var parts []*ai.Part
	for _, tr := range step.Tools {
		parts = append(parts, &ai.Part{
			Kind:        ai.PartToolRequest,
			ToolRequest: tr,
		})
	}
	if text := strings.Join(chunks, ""); text != "" {
		parts = append(parts, ai.NewTextPart(text))
	}
	if len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(""))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{
			Role:    ai.RoleModel,
			Content: parts,
		},
	}, nil
}

// MockEmbedder provides deterministic embedding vectors for testing.
//
// By default it generates a vector from content using SHA-256; explicit
// mappings can be added for precise cosine similarity control.
//
// Thread-safe for concurrent use.
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dim     int
}

// NewMockEmbedder creates a mock embedder with the given dimensions.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		vectors: make(map[string][]float32),
		dim:     dim,
	}
}

// SetVector registers an explicit vector for a given content string.
// Use this to control exact cosine similarity between test inputs.
func (e *MockEmbedder) SetVector(content string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[content] = vec
}

// RegisterEmbedder registers the mock as a Genkit embedder.
func (e *MockEmbedder) RegisterEmbedder(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, "mock/test-embedder", &ai.EmbedderOptions{
		Label:      "Mock Test Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *MockEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{
			Embedding: e.vectorFor(documentText(doc)),
		}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func (e *MockEmbedder) vectorFor(content string) []float32 {
	e.mu.Lock()
	if v, ok := e.vectors[content]; ok {
		e.mu.Unlock()
		return v
	}
	e.mu.Unlock()

	return deterministicVector(content, e.dim)
}

// documentText extracts all text content from a Document's parts.
func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector generates a normalized vector from content using
// SHA-256. The same content always produces the same vector.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		// Map to [-1, 1] range
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec
}
