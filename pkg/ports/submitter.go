package ports

import (
	"context"

	"github.com/nodus-reseau/leadform/pkg/domain"
)

// Submitter delivers a completed answer set to the form-processing endpoint.
//
// Implementations issue exactly one request per call and never retry.
// A nil error means the request reached the endpoint; the receiver's own verdict
// is not observable. Network-level failures wrap domain.ErrTransport.
type Submitter interface {
	Submit(ctx context.Context, answers domain.Answers) error
}

// SubmitterFunc adapts a plain function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, answers domain.Answers) error

// Submit calls f(ctx, answers).
func (f SubmitterFunc) Submit(ctx context.Context, answers domain.Answers) error {
	return f(ctx, answers)
}
