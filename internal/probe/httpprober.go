package probe

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// HTTPProber issues a HEAD request and treats exactly 200 as healthy.
type HTTPProber struct {
	Client  *http.Client
	Timeout time.Duration
}

// NewHTTPProber builds a prober whose connect phase is bounded by timeout and
// whose read phase is bounded by twice that. When insecure is true, server
// certificates and host names are not verified.
func NewHTTPProber(timeout time.Duration, insecure bool) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: 2 * timeout,
		DisableKeepAlives:     true,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: insecure},
	}
	return &HTTPProber{
		Client:  &http.Client{Transport: tr},
		Timeout: timeout,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, target string) Outcome {
	ctx, cancel := context.WithTimeout(ctx, 3*h.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return Outcome{Reason: ReasonInvalidURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Close = true

	resp, err := h.Client.Do(req)
	if err != nil {
		return Outcome{Reason: Classify(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Outcome{StatusCode: resp.StatusCode, Reason: ReasonHTTPStatus}
	}
	return Outcome{Success: true, StatusCode: resp.StatusCode, Reason: ReasonOK}
}
