package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-website/app/entity"
	"github.com/vibast-solutions/ms-go-website/app/profile"
)

type fakeSMTPServer struct {
	ln        net.Listener
	authReply string
	mailReply string

	mu       sync.Mutex
	conns    int
	resets   int
	messages []string
}

func startFakeSMTP(t *testing.T, authReply string, mailReply string) *fakeSMTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	s := &fakeSMTPServer{ln: ln, authReply: authReply, mailReply: mailReply}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns++
			s.mu.Unlock()
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTPServer) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	reply := func(line string) {
		fmt.Fprint(bw, line+"\r\n")
		bw.Flush()
	}

	reply("220 fake ESMTP")
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		upper := strings.ToUpper(line)

		switch {
		case strings.HasPrefix(upper, "EHLO"), strings.HasPrefix(upper, "HELO"):
			reply("250-fake")
			reply("250 AUTH PLAIN LOGIN")
		case strings.HasPrefix(upper, "AUTH"):
			reply(s.authReply)
		case line == "*":
			reply("501 cancelled")
		case strings.HasPrefix(upper, "MAIL FROM:"):
			reply(s.mailReply)
		case strings.HasPrefix(upper, "RCPT TO:"):
			reply("250 OK")
		case upper == "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var body strings.Builder
			for {
				dataLine, err := br.ReadString('\n')
				if err != nil {
					return
				}
				if dataLine == ".\r\n" {
					break
				}
				body.WriteString(dataLine)
			}
			s.mu.Lock()
			s.messages = append(s.messages, body.String())
			s.mu.Unlock()
			reply("250 OK queued")
		case upper == "RSET":
			s.mu.Lock()
			s.resets++
			s.mu.Unlock()
			reply("250 OK")
		case upper == "NOOP":
			reply("250 OK")
		case upper == "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 unknown command")
		}
	}
}

func (s *fakeSMTPServer) transport(t *testing.T) profile.Profile {
	t.Helper()

	port, err := strconv.Atoi(strings.TrimPrefix(s.ln.Addr().String(), "127.0.0.1:"))
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return profile.Profile{
		Name:     "fake-smtp",
		Kind:     profile.KindSMTP,
		Host:     "127.0.0.1",
		Port:     port,
		Secure:   false,
		Auth:     profile.AuthPlain,
		Username: "user@example.com",
		Password: "secret",
		Pool:     profile.Pool{MaxConnections: 2, MaxMessages: 10},
	}
}

func (s *fakeSMTPServer) stats() (int, int, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns, s.resets, append([]string(nil), s.messages...)
}

func testMessage() *entity.Message {
	return &entity.Message{
		ID:      "msg-1@example.com",
		From:    "Website <sender@example.com>",
		To:      []string{"rcpt@example.com"},
		Subject: "Hello",
		Raw:     []byte("Subject: Hello\r\n\r\nbody line\r\n"),
	}
}

func TestSMTPProviderSendSuccess(t *testing.T) {
	t.Parallel()

	srv := startFakeSMTP(t, "235 2.7.0 Authentication successful", "250 OK")
	p := NewSMTPProvider(srv.transport(t), "website.test", 5*time.Second, false)
	defer p.Close()

	receipt, err := p.Send(context.Background(), testMessage())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if receipt.MessageID != "msg-1@example.com" {
		t.Fatalf("unexpected message id %q", receipt.MessageID)
	}
	if !strings.HasPrefix(receipt.Response, "250") {
		t.Fatalf("unexpected response %q", receipt.Response)
	}

	_, _, messages := srv.stats()
	if len(messages) != 1 || !strings.Contains(messages[0], "body line") {
		t.Fatalf("unexpected messages %v", messages)
	}
}

func TestSMTPProviderAuthFailureIsFatal(t *testing.T) {
	t.Parallel()

	srv := startFakeSMTP(t, "535 5.7.8 Username and Password not accepted", "250 OK")
	p := NewSMTPProvider(srv.transport(t), "website.test", 5*time.Second, false)
	defer p.Close()

	_, err := p.Send(context.Background(), testMessage())
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %v", err)
	}
	if sendErr.Class != ClassAuth || sendErr.Code != 535 || sendErr.Command != "AUTH" {
		t.Fatalf("unexpected error %+v", sendErr)
	}
	if !sendErr.Fatal() {
		t.Fatalf("expected auth failure to be fatal")
	}
}

func TestSMTPProviderTemporaryFailure(t *testing.T) {
	t.Parallel()

	srv := startFakeSMTP(t, "235 2.7.0 Authentication successful", "421 4.7.0 Try again later")
	p := NewSMTPProvider(srv.transport(t), "website.test", 5*time.Second, false)
	defer p.Close()

	_, err := p.Send(context.Background(), testMessage())
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %v", err)
	}
	if sendErr.Class != ClassTemporary || sendErr.Code != 421 || sendErr.Command != "MAIL FROM" {
		t.Fatalf("unexpected error %+v", sendErr)
	}
	if sendErr.Fatal() {
		t.Fatalf("expected 421 to be transient")
	}
	if sendErr.Transport != "fake-smtp" {
		t.Fatalf("unexpected transport %q", sendErr.Transport)
	}
}

func TestSMTPProviderPooledReusesSession(t *testing.T) {
	t.Parallel()

	srv := startFakeSMTP(t, "235 2.7.0 Authentication successful", "250 OK")
	p := NewSMTPProvider(srv.transport(t), "website.test", 5*time.Second, true)

	for i := 0; i < 3; i++ {
		if _, err := p.Send(context.Background(), testMessage()); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	conns, resets, messages := srv.stats()
	if conns != 1 {
		t.Fatalf("expected 1 connection, got %d", conns)
	}
	if resets != 2 {
		t.Fatalf("expected 2 resets, got %d", resets)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}

	if _, err := p.Send(context.Background(), testMessage()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}

func TestSMTPProviderConnectionRefused(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	p := NewSMTPProvider(profile.Profile{
		Name: "closed",
		Kind: profile.KindSMTP,
		Host: "127.0.0.1",
		Port: port,
		Auth: profile.AuthNone,
	}, "website.test", 2*time.Second, false)

	_, err = p.Send(context.Background(), testMessage())
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected SendError, got %v", err)
	}
	if sendErr.Class != ClassNetwork || sendErr.Command != "CONNECT" {
		t.Fatalf("unexpected error %+v", sendErr)
	}
}

func TestSMTPProviderRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	p := NewSMTPProvider(profile.Profile{Name: "x", Host: "127.0.0.1", Port: 25}, "", 0, false)
	msg := testMessage()
	msg.Raw = nil

	_, err := p.Send(context.Background(), msg)
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.Class != ClassInvalid {
		t.Fatalf("expected invalid class, got %v", err)
	}
}

func TestLoginAuthAnswersChallenges(t *testing.T) {
	t.Parallel()

	a := &loginAuth{username: "user", password: "pass", host: "localhost"}
	mech, _, err := a.Start(&smtp.ServerInfo{Name: "localhost"})
	if err != nil || mech != "LOGIN" {
		t.Fatalf("Start: %q %v", mech, err)
	}
	if resp, err := a.Next([]byte("Username:"), true); err != nil || string(resp) != "user" {
		t.Fatalf("username challenge: %q %v", resp, err)
	}
	if resp, err := a.Next([]byte("Password:"), true); err != nil || string(resp) != "pass" {
		t.Fatalf("password challenge: %q %v", resp, err)
	}
	if _, err := a.Next([]byte("What?"), true); err == nil {
		t.Fatalf("expected error for unknown challenge")
	}
	if _, _, err := a.Start(&smtp.ServerInfo{Name: "mail.example.com"}); err == nil {
		t.Fatalf("expected error for unencrypted remote host")
	}
}
