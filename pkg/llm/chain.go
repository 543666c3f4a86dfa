package llm

import "context"

// Middleware wraps an LLMClient with one cross-cutting behavior. Compose
// with Chain.
type Middleware func(next LLMClient) LLMClient

// funcClient implements LLMClient from three closures, so middleware can
// be written without declaring a struct per layer.
type funcClient struct {
	completeFn func(context.Context, CompletionRequest) (CompletionResponse, error)
	streamFn   func(context.Context, CompletionRequest) (<-chan StreamChunk, error)
	nameFn     func() string
}

func (f funcClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return f.completeFn(ctx, req)
}

func (f funcClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	return f.streamFn(ctx, req)
}

func (f funcClient) GetModelName() string {
	return f.nameFn()
}

// WrapClient builds an LLMClient from the three method implementations.
func WrapClient(
	complete func(context.Context, CompletionRequest) (CompletionResponse, error),
	stream func(context.Context, CompletionRequest) (<-chan StreamChunk, error),
	getModelName func() string,
) LLMClient {
	return funcClient{completeFn: complete, streamFn: stream, nameFn: getModelName}
}

// Chain stacks middlewares around base. The first middleware is outermost:
// Chain(c, a, b) calls a, then b, then c, so a sees every request first and
// every response last.
func Chain(base LLMClient, middlewares ...Middleware) LLMClient {
	client := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		client = middlewares[i](client)
	}
	return client
}
