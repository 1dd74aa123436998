package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Failure classifies why an attempt to reach the backend failed.
type Failure string

const (
	// FailureNone means the attempt did not fail.
	FailureNone Failure = ""

	// FailureRefused means nothing accepted the connection.
	FailureRefused Failure = "refused"

	// FailureReset means the peer reset or broke the connection.
	FailureReset Failure = "reset"

	// FailureTimeout means dialing or waiting for the response timed out.
	FailureTimeout Failure = "timeout"

	// FailureDNS means the backend host could not be resolved for now.
	FailureDNS Failure = "dns"

	// FailureClosed means the server closed the connection before answering.
	FailureClosed Failure = "closed"

	// FailureCanceled means the caller gave up. Never retried.
	FailureCanceled Failure = "canceled"

	// FailurePermanent covers everything that another attempt cannot fix:
	// bad URLs, unknown hosts, TLS failures.
	FailurePermanent Failure = "permanent"
)

// Transient reports whether another attempt may succeed.
func (f Failure) Transient() bool {
	switch f {
	case FailureRefused, FailureReset, FailureTimeout, FailureDNS, FailureClosed:
		return true
	}
	return false
}

// IsTransient reports whether err is a connection-level failure worth
// retrying: timeouts, resets, refusals and temporary DNS failures.
//
// HTTP responses are never transient here. A backend that answered with a
// status has been reached, and its status is the turn's result.
func IsTransient(err error) bool {
	return Classify(err).Transient()
}

// Classify returns the Failure describing err.
func Classify(err error) Failure {
	if err == nil {
		return FailureNone
	}

	// Cancellation by the caller is final.
	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}

	return classifyNetworkError(err)
}

func classifyNetworkError(err error) Failure {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	// url.Error wraps the dial or read error of the request
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		if f := classifyNetworkError(urlErr.Err); f.Transient() {
			return f
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.Temporary() || dnsErr.IsTimeout {
			return FailureDNS
		}
		return FailurePermanent
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return FailureClosed
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED:
			return FailureRefused
		case syscall.ECONNRESET, syscall.EPIPE:
			return FailureReset
		case syscall.ETIMEDOUT:
			return FailureTimeout
		}
	}

	// Errors that lost their type on the way, e.g. through a proxy
	msg := strings.ToLower(err.Error())
	for _, p := range messagePatterns {
		if strings.Contains(msg, p.text) {
			return p.failure
		}
	}

	return FailurePermanent
}

var messagePatterns = []struct {
	text    string
	failure Failure
}{
	{"connection refused", FailureRefused},
	{"connection reset", FailureReset},
	{"broken pipe", FailureReset},
	{"timeout", FailureTimeout},
	{"temporary failure", FailureDNS},
}
