package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"syscall"
)

// Classify maps a transport error to a failure reason for logs and the
// status API. ctx is the request context; a cancelled parent wins over
// whatever error the transport surfaced.
func Classify(ctx context.Context, err error) string {
	if err == nil {
		return ReasonOK
	}
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return ReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	var de *net.DNSError
	if errors.As(err, &de) {
		if de.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ReasonTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}

	var (
		recErr  tls.RecordHeaderError
		certErr *tls.CertificateVerificationError
		unkErr  x509.UnknownAuthorityError
		hostErr x509.HostnameError
	)
	if errors.As(err, &recErr) || errors.As(err, &certErr) ||
		errors.As(err, &unkErr) || errors.As(err, &hostErr) {
		return ReasonTLS
	}
	return ReasonTransport
}
