// Package formpost delivers answers to a third-party form-processing endpoint
// with a single HTML-form style POST.
package formpost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nodus-reseau/leadform/internal/logging"
	"github.com/nodus-reseau/leadform/pkg/domain"
)

// DefaultTimeout bounds a submission, connection and response included.
const DefaultTimeout = 15 * time.Second

// maxDrain caps how much of the opaque response body is read before closing.
const maxDrain = 64 << 10

// Submitter implements ports.Submitter by POSTing the answers as form fields.
type Submitter struct {
	endpoint   string
	multipart  bool
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Submitter.
type Option func(*Submitter)

// WithMultipart sends multipart/form-data, as a browser FormData body would.
func WithMultipart() Option {
	return func(s *Submitter) {
		s.multipart = true
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Submitter) {
		s.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client (tests, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) {
		s.httpClient = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// New creates a Submitter posting to endpoint.
func New(endpoint string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends every field of answers, in declaration order, in one request.
//
// The response is opaque: its status and body are drained and ignored, so
// any response counts as delivered. Only failures to complete the exchange
// (DNS, connect, timeout, cancellation) are returned, wrapping domain.ErrTransport.
func (s *Submitter) Submit(ctx context.Context, answers domain.Answers) error {
	body, contentType, err := s.encode(answers)
	if err != nil {
		return fmt.Errorf("failed to encode form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))

	s.logger.Debug("form endpoint responded", "status", resp.StatusCode)
	return nil
}

func (s *Submitter) encode(answers domain.Answers) (io.Reader, string, error) {
	if !s.multipart {
		return strings.NewReader(Encode(answers)), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range domain.Fields {
		if err := w.WriteField(string(f), answers.Get(f)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Encode renders answers as an urlencoded body, fields in declaration order.
func Encode(answers domain.Answers) string {
	var b strings.Builder
	for i, f := range domain.Fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(string(f)))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(answers.Get(f)))
	}
	return b.String()
}
