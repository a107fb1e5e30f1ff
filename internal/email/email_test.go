package email

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestOTPMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	msg, err := OTPMessage("alice@example.com", "<Alice>", "123456", 10*time.Minute, now)
	if err != nil {
		t.Fatalf("OTPMessage: %v", err)
	}
	if msg.To != "alice@example.com" || msg.Subject != SubjectOTP {
		t.Errorf("msg = %+v", msg)
	}
	for _, want := range []string{"123456", "10 minutes", "&lt;Alice&gt;", "2026 PrepMaster"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestVerificationMessage(t *testing.T) {
	msg, err := VerificationMessage("bob@example.com", "Bob", "https://prep.example.com/auth/verify-email/abc", time.Now())
	if err != nil {
		t.Fatalf("VerificationMessage: %v", err)
	}
	if !strings.Contains(msg.HTML, `href="https://prep.example.com/auth/verify-email/abc"`) {
		t.Errorf("link missing from HTML: %s", msg.HTML)
	}
}

func TestSMTPSender_Send(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"})
	s.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		return nil
	}
	if err := s.Send(context.Background(), Message{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "smtp.example.com:587" || len(gotTo) != 1 || gotTo[0] != "a@example.com" || gotAuth == nil {
		t.Errorf("addr=%q to=%v auth=%v", gotAddr, gotTo, gotAuth)
	}
	if !strings.Contains(gotMsg, "Subject: Hi\r\n") || !strings.HasSuffix(gotMsg, "\r\n\r\n<p>x</p>") {
		t.Errorf("msg = %q", gotMsg)
	}
}

func TestSMTPSender_RejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "h", Port: 25})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { t.Fatal("must not send"); return nil }
	if err := s.Send(context.Background(), Message{To: "a@example.com\r\nBcc: x@example.com"}); err == nil {
		t.Error("expected error for newline in header")
	}
}

func TestSMTPSender_WrapsError(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "h", Port: 25})
	boom := errors.New("refused")
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	if err := s.Send(context.Background(), Message{To: "a@example.com"}); !errors.Is(err, boom) {
		t.Errorf("want wrapped error, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	log, hook := test.NewNullLogger()
	if err := (LogSender{Log: log}).Send(context.Background(), Message{To: "a@example.com", Subject: "S", HTML: "secret"}); err != nil {
		t.Fatal(err)
	}
	e := hook.LastEntry()
	if e == nil || e.Data["to"] != "a@example.com" {
		t.Fatalf("entry = %v", e)
	}
	if strings.Contains(e.Message, "secret") {
		t.Error("body must not be logged")
	}
}

func TestOutbox(t *testing.T) {
	o := &Outbox{}
	if _, ok := o.Last(); ok {
		t.Error("empty outbox has no last message")
	}
	_ = o.Send(context.Background(), Message{To: "a"})
	_ = o.Send(context.Background(), Message{To: "b"})
	if m, _ := o.Last(); m.To != "b" || len(o.Sent()) != 2 {
		t.Errorf("Outbox = %v", o.Sent())
	}
}
