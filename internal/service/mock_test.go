package service

import (
	"context"
	"errors"
	"sync"

	"github.com/user/moviesearch/internal/embedding"
)

const testDim = 64

// countingProvider 记录调用次数与文本，可注入失败
type countingProvider struct {
	mu    sync.Mutex
	inner embedding.Provider
	fail  error
	calls int
	texts []string
}

func newCountingProvider() *countingProvider {
	return &countingProvider{inner: embedding.NewHashProvider(testDim)}
}

func (p *countingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.texts = append(p.texts, text)
	fail := p.fail
	p.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	return p.inner.Embed(ctx, text)
}

func (p *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.texts = append(p.texts, texts...)
	fail := p.fail
	p.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	return p.inner.EmbedBatch(ctx, texts)
}

func (p *countingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var errBoom = errors.New("connection refused")

// blockingProvider 阻塞到 release 关闭，或调用方 ctx 取消
type blockingProvider struct {
	*countingProvider
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		countingProvider: newCountingProvider(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (p *blockingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.once.Do(func() { close(p.entered) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return p.countingProvider.Embed(ctx, text)
}
