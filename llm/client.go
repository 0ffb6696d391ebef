// ABOUTME: CompletionService interface and the retrying wrapper that applies a
// ABOUTME: RetryPolicy around any underlying provider adapter.
package llm

import "context"

// CompletionService accepts a system+user prompt (optionally with images) and
// returns free text from which callers extract structured JSON.
type CompletionService interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// RetryingService wraps a CompletionService with a RetryPolicy.
type RetryingService struct {
	inner  CompletionService
	policy RetryPolicy
}

// WithRetry wraps svc so transient failures are retried per policy.
func WithRetry(svc CompletionService, policy RetryPolicy) *RetryingService {
	return &RetryingService{inner: svc, policy: policy}
}

// Complete calls the inner service, retrying retryable errors with backoff.
func (s *RetryingService) Complete(ctx context.Context, req Request) (*Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := s.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		if !s.policy.ShouldRetry(err, attempt) {
			return nil, err
		}

		delay := s.policy.CalculateDelay(attempt)
		if s.policy.OnRetry != nil {
			s.policy.OnRetry(err, attempt, delay)
		}

		timer := newTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
