package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// MaxResponseBytes caps how much of a provider reply is read.
const MaxResponseBytes = 4 << 20

// maxErrorBody bounds the body kept in a StatusError; it ends up in logs,
// order metadata and operator messages.
const maxErrorBody = 512

// DoRequest POSTs payload as JSON and returns the 2xx response body. Any other
// status becomes a *StatusError; every other failure is a plain error, which
// Classify treats as a transport failure.
func DoRequest(ctx context.Context, client *http.Client, endpoint string, payload any, headers map[string]string) ([]byte, error) {
	ctx, span := otel.Tracer("astrohub.providers").Start(ctx, "provider.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.url", redactQuery(endpoint)),
			attribute.String("astrohub.run_id", RunID(ctx)),
		),
	)
	defer span.End()

	fail := func(msg string, err error) ([]byte, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fail("marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fail("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if id := RunID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		return fail("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return fail("read response", err)
	}

	if resp.StatusCode/100 != 2 {
		se := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), maxErrorBody)}
		span.RecordError(se)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		return nil, se
	}
	span.SetStatus(codes.Ok, "")
	return body, nil
}

// redactQuery drops the query string, where some APIs accept credentials.
func redactQuery(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	u.RawQuery = ""
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary; provider errors are often localized.
	for n > 0 && !utf8Start(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
