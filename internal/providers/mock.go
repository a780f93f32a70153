package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockChatClient is a ChatClient for testing. Responses can be scripted
// per call; when the script runs out the last entry repeats.
type MockChatClient struct {
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	Responses    []string // Scripted responses, one per call

	// ChatFunc overrides all other behavior when set.
	ChatFunc func(ctx context.Context, req *ChatRequest) (*ChatResult, error)

	requestCount atomic.Int64
}

// NewMockChatClient creates a mock chat client with sensible defaults.
func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockChatClient) Name() string {
	return MockClientName
}

// Calls returns how many chat requests the mock has served.
func (c *MockChatClient) Calls() int {
	return int(c.requestCount.Load())
}

// Chat sends a mock chat request.
func (c *MockChatClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if c.ChatFunc != nil {
		c.requestCount.Add(1)
		return c.ChatFunc(ctx, req)
	}

	start := time.Now()
	count := c.requestCount.Add(1)

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	if c.ShouldFail {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = "mock client configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client configured to fail")
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		result.Success = false
		result.ErrorType = "mock_failure"
		result.ErrorMessage = fmt.Sprintf("mock client failed after %d requests", c.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock client failed after %d requests", c.FailAfter)
	}

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			result.Success = false
			result.ErrorType = "context_cancelled"
			result.ErrorMessage = ctx.Err().Error()
			result.ExecutionTime = time.Since(start)
			return result, ctx.Err()
		}
	}

	content := c.ResponseText
	if len(c.Responses) > 0 {
		idx := int(count) - 1
		if idx >= len(c.Responses) {
			idx = len(c.Responses) - 1
		}
		content = c.Responses[idx]
	}

	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		}
	}

	return result, nil
}

// MockOCRProvider is an OCRProvider for testing.
type MockOCRProvider struct {
	Latency    time.Duration
	ShouldFail bool
	TextByPage map[int]string // Returned per page; falls back to Text
	Text       string

	requestCount atomic.Int64
}

// NewMockOCRProvider creates a mock OCR provider.
func NewMockOCRProvider() *MockOCRProvider {
	return &MockOCRProvider{Text: "mock ocr text"}
}

// Name returns the provider identifier.
func (p *MockOCRProvider) Name() string { return MockClientName }

// RequestsPerSecond returns a high limit so tests never block.
func (p *MockOCRProvider) RequestsPerSecond() float64 { return 1000 }

// MaxRetries returns the retry attempts used by callers.
func (p *MockOCRProvider) MaxRetries() int { return 1 }

// RetryDelayBase returns a short delay to keep tests fast.
func (p *MockOCRProvider) RetryDelayBase() time.Duration { return time.Millisecond }

// Calls returns how many OCR requests the mock has served.
func (p *MockOCRProvider) Calls() int {
	return int(p.requestCount.Load())
}

// ProcessImage returns the scripted text for the page.
func (p *MockOCRProvider) ProcessImage(ctx context.Context, image []byte, pageNum int) (*OCRResult, error) {
	p.requestCount.Add(1)

	if p.Latency > 0 {
		select {
		case <-time.After(p.Latency):
		case <-ctx.Done():
			return &OCRResult{Success: false, ErrorMessage: ctx.Err().Error()}, ctx.Err()
		}
	}

	if p.ShouldFail {
		return &OCRResult{Success: false, ErrorMessage: "mock ocr failure"}, fmt.Errorf("mock ocr failure")
	}

	text := p.Text
	if t, ok := p.TextByPage[pageNum]; ok {
		text = t
	}
	return &OCRResult{
		Success:  true,
		Text:     text,
		Metadata: map[string]any{"page_num": pageNum},
	}, nil
}

// Verify interfaces
var (
	_ ChatClient  = (*MockChatClient)(nil)
	_ OCRProvider = (*MockOCRProvider)(nil)
)

// JSONResponse marshals v for use as a scripted mock response body.
func JSONResponse(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
