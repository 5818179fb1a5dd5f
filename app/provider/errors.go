package provider

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strings"
)

var (
	ErrInvalidProfile = errors.New("invalid transport profile")
	ErrEmptyMessage   = errors.New("prepared message is empty")
	ErrNoRecipients   = errors.New("message has no recipients")
	ErrClosed         = errors.New("transport is closed")
)

// Class buckets a send failure for the retry decision.
type Class string

const (
	ClassNetwork   Class = "network"
	ClassTimeout   Class = "timeout"
	ClassTemporary Class = "temporary"
	ClassAuth      Class = "auth"
	ClassRejected  Class = "rejected"
	ClassTLS       Class = "tls"
	ClassInvalid   Class = "invalid"
	ClassUnknown   Class = "unknown"
)

// Fatal reports whether retrying the same transport is pointless.
func (c Class) Fatal() bool {
	switch c {
	case ClassAuth, ClassRejected, ClassTLS, ClassInvalid:
		return true
	}
	return false
}

// SendError carries as much protocol detail as the transport exposes.
type SendError struct {
	Transport string
	Class     Class
	Command   string
	Code      int
	Response  string
	Err       error
}

func (e *SendError) Error() string {
	var b strings.Builder
	if e.Transport != "" {
		b.WriteString(e.Transport)
		b.WriteString(": ")
	}
	if e.Command != "" {
		b.WriteString(e.Command)
		b.WriteString(": ")
	}
	if e.Code > 0 {
		fmt.Fprintf(&b, "%d ", e.Code)
	}
	if e.Response != "" {
		b.WriteString(e.Response)
	} else if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(string(e.Class))
	}
	return b.String()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error is fatal for the transport that produced it.
func (e *SendError) Fatal() bool {
	return e.Class.Fatal()
}

// ConstructionError reports a profile that cannot produce a handle.
type ConstructionError struct {
	Profile string
	Err     error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("construct transport %s: %v", e.Profile, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Classify normalizes any send error into a *SendError.
func Classify(err error) *SendError {
	if err == nil {
		return nil
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		clone := *sendErr
		if clone.Class == "" {
			clone.Class = ClassUnknown
		}
		return &clone
	}

	out := &SendError{Class: ClassUnknown, Err: err}

	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		out.Code = protoErr.Code
		out.Response = protoErr.Msg
		out.Class = classifySMTPCode(protoErr.Code)
		return out
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		hostnameErr      x509.HostnameError
		invalidCert      x509.CertificateInvalidError
		recordHeaderErr  tls.RecordHeaderError
		certVerifyErr    *tls.CertificateVerificationError
	)
	switch {
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrNoRecipients):
		out.Class = ClassInvalid
	case errors.Is(err, context.DeadlineExceeded):
		out.Class = ClassTimeout
	case errors.Is(err, context.Canceled):
		out.Class = ClassNetwork
	case errors.As(err, &unknownAuthority), errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert), errors.As(err, &recordHeaderErr),
		errors.As(err, &certVerifyErr):
		out.Class = ClassTLS
	case isTimeout(err):
		out.Class = ClassTimeout
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), isNetError(err):
		out.Class = ClassNetwork
	}
	return out
}

// classifySMTPCode maps reply codes: 4xx temporary, auth codes fatal, other 5xx rejected.
func classifySMTPCode(code int) Class {
	switch {
	case code == 530 || code == 534 || code == 535 || code == 538:
		return ClassAuth
	case code == 454:
		// 454 is a temporary authentication failure.
		return ClassTemporary
	case code >= 400 && code < 500:
		return ClassTemporary
	case code >= 500 && code < 600:
		return ClassRejected
	}
	return ClassUnknown
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	return errors.As(err, &opErr) || errors.As(err, &dnsErr)
}
