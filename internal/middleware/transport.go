package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
)

// HeaderRequestID is the header carrying the per-request id. chi's
// RequestID middleware on the server side reads the same header.
const HeaderRequestID = "X-Request-Id"

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain stacks client middlewares on base. The first middleware is the
// outermost: Chain(base, A, B) sends a request through A, then B, then base.
func Chain(base http.RoundTripper, mws ...func(http.RoundTripper) http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// RequestID stamps a fresh xid on every outgoing request that has none.
// xids sort by creation time, which keeps log lines in order when grepped.
func RequestID(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(HeaderRequestID) != "" {
			return next.RoundTrip(r)
		}
		out := r.Clone(r.Context())
		if out.Header == nil {
			out.Header = make(http.Header)
		}
		out.Header.Set(HeaderRequestID, xid.New().String())
		return next.RoundTrip(out)
	})
}

// LogRequests logs every round trip: method, path, status, duration and
// request id. Success is logged at Debug, HTTP errors at Info, transport
// failures at Warn. Headers are never logged; they carry credentials.
func LogRequests(logger *slog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", r.Header.Get(HeaderRequestID)),
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(attrs, slog.String("error", err.Error()))...)
			case resp.StatusCode >= 400:
				logger.Info("request completed", append(attrs, slog.Int("status", resp.StatusCode))...)
			default:
				logger.Debug("request completed", append(attrs, slog.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}
