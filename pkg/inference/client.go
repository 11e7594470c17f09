// Package inference talks to the two external inference services: the
// text-chat service and the plant-disease image classifier.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agromind/plantchat/pkg/httpclient"
)

const (
	DefaultConverseURL = "http://localhost:5005/palm-chat"
	DefaultDiagnoseURL = "http://localhost:5006/detect-disease"

	maxResponseBody = 1 << 20
	maxErrorBody    = 4 << 10
)

// Gateway is the request/response contract of the inference services.
// Implementations hold no session state; each call is one network exchange
// and is never retried.
type Gateway interface {
	Converse(ctx context.Context, prompt string) (ConverseResult, error)
	Diagnose(ctx context.Context, image []byte, plant string) (DiagnoseResult, error)
}

// Client is the HTTP implementation of Gateway.
type Client struct {
	converseURL string
	diagnoseURL string
	httpClient  *http.Client
	tracer      trace.Tracer
}

type Opt func(*Client)

func WithHTTPClient(hc *http.Client) Opt {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTracerProvider(tp trace.TracerProvider) Opt {
	return func(c *Client) {
		c.tracer = tp.Tracer("plantchat/inference")
	}
}

func NewClient(converseURL, diagnoseURL string, opts ...Opt) *Client {
	c := &Client{
		converseURL: converseURL,
		diagnoseURL: diagnoseURL,
		httpClient:  httpclient.NewHTTPClient(),
		tracer:      otel.Tracer("plantchat/inference"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ConverseURL() string { return c.converseURL }
func (c *Client) DiagnoseURL() string { return c.diagnoseURL }

// Converse sends prompt to the text-chat service.
func (c *Client) Converse(ctx context.Context, prompt string) (ConverseResult, error) {
	ctx, span := c.tracer.Start(ctx, "inference.converse", trace.WithAttributes(
		attribute.String("url.full", c.converseURL),
		attribute.Int("prompt.length", len(prompt)),
	))
	defer span.End()

	body, err := json.Marshal(converseRequest{Prompt: prompt})
	if err != nil {
		return ConverseResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.converseURL, bytes.NewReader(body))
	if err != nil {
		return ConverseResult{}, fail(span, fmt.Errorf("%w: %w", ErrUnreachable, err))
	}
	req.Header.Set("Content-Type", "application/json")

	var out ConverseResult
	if err := c.do(span, req, &out); err != nil {
		return ConverseResult{}, err
	}
	return out, nil
}

// Diagnose uploads image with its plant-name tag to the classifier.
func (c *Client) Diagnose(ctx context.Context, image []byte, plant string) (DiagnoseResult, error) {
	ctx, span := c.tracer.Start(ctx, "inference.diagnose", trace.WithAttributes(
		attribute.String("url.full", c.diagnoseURL),
		attribute.String("plant", plant),
		attribute.Int("image.size", len(image)),
	))
	defer span.End()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", "image")
	if err != nil {
		return DiagnoseResult{}, err
	}
	if _, err := part.Write(image); err != nil {
		return DiagnoseResult{}, err
	}
	if err := form.WriteField("plant", plant); err != nil {
		return DiagnoseResult{}, err
	}
	if err := form.Close(); err != nil {
		return DiagnoseResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.diagnoseURL, &buf)
	if err != nil {
		return DiagnoseResult{}, fail(span, fmt.Errorf("%w: %w", ErrUnreachable, err))
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var wire diagnoseResponse
	if err := c.do(span, req, &wire); err != nil {
		return DiagnoseResult{}, err
	}

	result, err := wire.result()
	if err != nil {
		return DiagnoseResult{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("diagnosis.kind", result.Kind.String()))
	return result, nil
}

// Probe checks that something answers HTTP at url. Any response, whatever
// its status, counts as reachable.
func (c *Client) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) do(span trace.Span, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(span, fmt.Errorf("%w: %w", ErrUnreachable, err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(span, &ServerError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		})
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fail(span, fmt.Errorf("%w: %w", ErrUnreachable, err))
		}
		return fail(span, fmt.Errorf("%w: malformed response: %w", ErrServerRejected, err))
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a failure body, falling back to
// the raw text.
func errorMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(body))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
