package gemini

import (
	"context"
)

// Embedder implements ai.Embedder with the Gemini embedding model.
type Embedder struct {
	provider *Provider
}

func NewEmbedder(p *Provider) *Embedder {
	return &Embedder{provider: p}
}

func (e *Embedder) Available() bool {
	return e.provider.Available()
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	gen, err := e.provider.Generator()
	if err != nil {
		return nil, err
	}
	return gen.Embed(ctx, e.provider.Config().EmbeddingModel, texts)
}
