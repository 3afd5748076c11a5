package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"
	"time"
)

const (
	smtpDialTimeout = 10 * time.Second

	// smtpSendTimeout bounds the whole SMTP dialogue. A relay that
	// accepts the connection and then stalls must surface as a dispatch
	// failure, not hold the caller's rollback hostage.
	smtpSendTimeout = 30 * time.Second
)

var messageTemplate = template.Must(template.New("otp").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: Your sign-in code\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Your one-time sign-in code is {{.Code}}.\r\n" +
		"\r\n" +
		"It expires in {{.TTL}}. If you did not request it, you can ignore this message.\r\n"))

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPDispatcher sends codes over plain SMTP with optional AUTH. It
// dials per send; auth traffic is low enough that connection pooling
// would buy nothing.
type SMTPDispatcher struct {
	cfg SMTPConfig
}

var _ Dispatcher = (*SMTPDispatcher)(nil)

func NewSMTPDispatcher(cfg SMTPConfig) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) Send(ctx context.Context, address, code string, ttl time.Duration) error {
	var body bytes.Buffer
	err := messageTemplate.Execute(&body, map[string]string{
		"From": d.cfg.From,
		"To":   address,
		"Code": code,
		"TTL":  formatTTL(ttl),
	})
	if err != nil {
		return fmt.Errorf("notify: render message: %w", err)
	}

	addr := net.JoinHostPort(d.cfg.Host, fmt.Sprintf("%d", d.cfg.Port))

	dialer := net.Dialer{Timeout: smtpDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: dial smtp: %w", err)
	}

	// net/smtp never consults ctx, so the deadline on the socket is the
	// only thing bounding the dialogue from greeting through QUIT.
	deadline := time.Now().Add(smtpSendTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: set smtp deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, d.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: smtp handshake: %w", err)
	}
	defer client.Close()

	if d.cfg.Username != "" {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: d.cfg.Host}); err != nil {
				return fmt.Errorf("notify: starttls: %w", err)
			}
		}
		auth := smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("notify: smtp auth: %w", err)
		}
	}

	if err := client.Mail(d.cfg.From); err != nil {
		return fmt.Errorf("notify: mail from: %w", err)
	}
	if err := client.Rcpt(address); err != nil {
		return fmt.Errorf("notify: rcpt to: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: smtp data: %w", err)
	}
	if _, err := w.Write(body.Bytes()); err != nil {
		_ = w.Close()
		return fmt.Errorf("notify: write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: finish message: %w", err)
	}

	return client.Quit()
}

func formatTTL(ttl time.Duration) string {
	s := ttl.Round(time.Second).String()
	s = strings.Replace(s, "m0s", "m", 1)
	s = strings.Replace(s, "h0m", "h", 1)
	return s
}
