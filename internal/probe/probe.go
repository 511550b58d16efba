package probe

import "context"

// Failure reasons carried in Outcome.Reason.
const (
	ReasonOK         = "ok"
	ReasonHTTPStatus = "http_status"
	ReasonTimeout    = "timeout"
	ReasonDNS        = "dns"
	ReasonRefused    = "refused"
	ReasonTLS        = "tls"
	ReasonCanceled   = "canceled"
	ReasonInvalidURL = "invalid_url"
	ReasonTransport  = "transport"
	ReasonPanic      = "panic"
)

// Outcome is the result of a single probe attempt.
//
// Fields:
//   - StatusCode: HTTP status when a response arrived; 0 for transport errors.
//   - Reason: one of the Reason* constants.
//   - Err: the underlying transport error, if any.
type Outcome struct {
	Success    bool
	StatusCode int
	Reason     string
	Err        error
}

// Prober performs one bounded reachability check against a URL.
// Implementations never panic on network errors and report every failure
// through the returned Outcome.
type Prober interface {
	Probe(ctx context.Context, url string) Outcome
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, url string) Outcome

func (f ProberFunc) Probe(ctx context.Context, url string) Outcome { return f(ctx, url) }
