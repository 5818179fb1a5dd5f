package provider

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/profile"
)

type SMTPProvider struct {
	profile   profile.Profile
	helo      string
	timeout   time.Duration
	tlsConfig *tls.Config
	auth      smtp.Auth

	// idle is nil when pooling is disabled.
	idle        chan *smtpConn
	maxMessages int

	mu     sync.Mutex
	closed bool
}

type smtpConn struct {
	conn   net.Conn
	client *smtp.Client
	sent   int
}

// NewSMTPProvider builds an SMTP handle for the profile. pooled keeps up to
// Pool.MaxConnections idle sessions open between sends.
func NewSMTPProvider(p profile.Profile, helo string, timeout time.Duration, pooled bool) *SMTPProvider {
	if helo == "" {
		helo = "localhost"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &SMTPProvider{
		profile: p,
		helo:    helo,
		timeout: timeout,
		tlsConfig: &tls.Config{
			ServerName:         p.Host,
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: p.InsecureSkipVerify, //nolint:gosec // opt-in relaxed profile
		},
	}

	switch p.AuthMode() {
	case profile.AuthPlain:
		s.auth = smtp.PlainAuth("", p.Username, p.Password, p.Host)
	case profile.AuthLogin:
		s.auth = &loginAuth{username: p.Username, password: p.Password, host: p.Host}
	}

	if pooled && p.Pool.MaxConnections > 0 {
		s.idle = make(chan *smtpConn, p.Pool.MaxConnections)
		s.maxMessages = p.Pool.MaxMessages
	}
	return s
}

func (s *SMTPProvider) Name() string {
	return s.profile.Name
}

// Send performs one MAIL/RCPT/DATA transaction with the prepared raw message.
func (s *SMTPProvider) Send(ctx context.Context, msg *entity.Message) (Receipt, error) {
	if len(msg.Raw) == 0 {
		return Receipt{}, s.fail("DATA", ErrEmptyMessage)
	}
	if len(msg.To) == 0 {
		return Receipt{}, s.fail("RCPT", ErrNoRecipients)
	}

	c, err := s.acquire(ctx)
	if err != nil {
		return Receipt{}, err
	}

	stop := s.bindContext(ctx, c.conn)
	err = s.transaction(c.client, msg)
	stop()

	s.release(c, err == nil)
	if err != nil {
		return Receipt{}, err
	}

	return Receipt{
		MessageID: msg.ID,
		Response:  fmt.Sprintf("250 accepted by %s", s.profile.Address()),
	}, nil
}

// Close quits every idle pooled session.
func (s *SMTPProvider) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.idle == nil {
		return nil
	}
	for {
		select {
		case c := <-s.idle:
			s.discard(c, true)
		default:
			return nil
		}
	}
}

func (s *SMTPProvider) transaction(client *smtp.Client, msg *entity.Message) error {
	if err := client.Mail(envelopeAddress(msg.From, s.profile.Username)); err != nil {
		return s.fail("MAIL FROM", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(envelopeAddress(rcpt, "")); err != nil {
			return s.fail("RCPT TO", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return s.fail("DATA", err)
	}
	if _, err := w.Write(msg.Raw); err != nil {
		_ = w.Close()
		return s.fail("DATA", err)
	}
	if err := w.Close(); err != nil {
		return s.fail("DATA", err)
	}
	return nil
}

// acquire reuses a healthy idle session or dials a new one.
func (s *SMTPProvider) acquire(ctx context.Context) (*smtpConn, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, s.fail("CONNECT", ErrClosed)
	}

	for s.idle != nil {
		var c *smtpConn
		select {
		case c = <-s.idle:
		default:
		}
		if c == nil {
			break
		}

		_ = c.conn.SetDeadline(time.Now().Add(s.timeout))
		if err := c.client.Reset(); err != nil {
			s.discard(c, false)
			continue
		}
		return c, nil
	}
	return s.dial(ctx)
}

func (s *SMTPProvider) dial(ctx context.Context) (*smtpConn, error) {
	dialer := &net.Dialer{Timeout: s.timeout}

	var (
		conn net.Conn
		err  error
	)
	if s.profile.Secure {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: s.tlsConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", s.profile.Address())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", s.profile.Address())
	}
	if err != nil {
		return nil, s.fail("CONNECT", err)
	}

	stop := s.bindContext(ctx, conn)
	defer stop()

	client, err := smtp.NewClient(conn, s.profile.Host)
	if err != nil {
		_ = conn.Close()
		return nil, s.fail("GREETING", err)
	}
	if err := client.Hello(s.helo); err != nil {
		_ = client.Close()
		return nil, s.fail("EHLO", err)
	}

	if !s.profile.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig); err != nil {
				_ = client.Close()
				return nil, s.fail("STARTTLS", err)
			}
		}
	}

	if s.auth != nil {
		if err := client.Auth(s.auth); err != nil {
			_ = client.Close()
			return nil, s.fail("AUTH", err)
		}
	}

	return &smtpConn{conn: conn, client: client}, nil
}

// release returns a healthy session to the pool or ends it.
func (s *SMTPProvider) release(c *smtpConn, ok bool) {
	c.sent++
	if !ok || s.idle == nil {
		s.discard(c, ok)
		return
	}
	if s.maxMessages > 0 && c.sent >= s.maxMessages {
		s.discard(c, true)
		return
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.discard(c, true)
		return
	}

	_ = c.conn.SetDeadline(time.Time{})
	select {
	case s.idle <- c:
	default:
		s.discard(c, true)
	}
}

func (s *SMTPProvider) discard(c *smtpConn, polite bool) {
	if polite {
		_ = c.conn.SetDeadline(time.Now().Add(5 * time.Second))
		if err := c.client.Quit(); err == nil {
			return
		}
	}
	_ = c.client.Close()
}

// bindContext applies the context deadline to the connection and unblocks
// pending I/O when the context is cancelled.
func (s *SMTPProvider) bindContext(ctx context.Context, conn net.Conn) func() {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	return func() { stop() }
}

// fail wraps err with the SMTP command and the class derived from it.
func (s *SMTPProvider) fail(command string, err error) error {
	sendErr := Classify(err)
	sendErr.Transport = s.profile.Name
	sendErr.Command = command
	if sendErr.Class == ClassUnknown {
		switch command {
		case "AUTH":
			sendErr.Class = ClassAuth
		case "STARTTLS":
			sendErr.Class = ClassTLS
		}
	}
	log.WithFields(log.Fields{
		"transport": s.profile.Name,
		"command":   command,
		"class":     sendErr.Class,
		"code":      sendErr.Code,
	}).Debugf("smtp step failed: %v", err)
	return sendErr
}

// envelopeAddress extracts the bare address from a header-style value.
func envelopeAddress(value string, fallback string) string {
	if value == "" {
		value = fallback
	}
	if addr, err := mail.ParseAddress(value); err == nil {
		return addr.Address
	}
	return value
}
