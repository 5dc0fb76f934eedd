package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
)

// MailNotifier delivers the report over SMTP: implicit TLS first, STARTTLS as fallback.
type MailNotifier struct {
	Host      string
	SSLPort   int
	TLSPort   int
	Sender    string
	Password  string
	Receivers []string
	Timeout   time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

// NewMailNotifier creates a MailNotifier from config.
func NewMailNotifier(cfg config.MailConfig, logger *logging.Logger) *MailNotifier {
	return &MailNotifier{
		Host:      cfg.Host,
		SSLPort:   cfg.SSLPort,
		TLSPort:   cfg.TLSPort,
		Sender:    cfg.Sender,
		Password:  cfg.Password,
		Receivers: config.SplitList(cfg.Receivers),
		Timeout:   30 * time.Second,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *MailNotifier) Name() string { return "mail" }

func (m *MailNotifier) Enabled() bool {
	return m.Host != "" && m.Sender != "" && m.Password != "" && len(m.Receivers) > 0
}

// Send submits msg to all receivers in a single SMTP transaction.
func (m *MailNotifier) Send(ctx context.Context, msg *Message) error {
	body, err := m.buildMIME(msg)
	if err != nil {
		return err
	}
	auth := smtp.PlainAuth("", m.Sender, m.Password, m.Host)

	sslErr := m.sendSSL(ctx, auth, body)
	if sslErr == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.logger.Warn().Err(sslErr).Int("port", m.SSLPort).Int("fallback_port", m.TLSPort).
		Msg("smtp ssl failed, trying starttls")

	addr := net.JoinHostPort(m.Host, fmt.Sprint(m.TLSPort))
	if err := smtp.SendMail(addr, auth, m.Sender, m.Receivers, body); err != nil {
		return errors.Join(fmt.Errorf("smtp ssl: %w", sslErr), fmt.Errorf("smtp starttls: %w", err))
	}
	return nil
}

func (m *MailNotifier) sendSSL(ctx context.Context, auth smtp.Auth, body []byte) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: m.Timeout},
		Config:    &tls.Config{ServerName: m.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.Host, fmt.Sprint(m.SSLPort)))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := client.Mail(m.Sender); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range m.Receivers {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	return client.Quit()
}

// buildMIME renders an HTML mail, multipart/related when a chart is attached.
func (m *MailNotifier) buildMIME(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }

	header("From", m.Sender)
	header("To", strings.Join(m.Receivers, ", "))
	header("Subject", mime.BEncoding.Encode("UTF-8", msg.Title))
	header("Date", m.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if len(msg.Chart) == 0 {
		header("Content-Type", "text/html; charset=UTF-8")
		header("Content-Transfer-Encoding", "base64")
		buf.WriteString("\r\n")
		writeBase64(&buf, []byte(msg.MailHTML))
		return buf.Bytes(), nil
	}

	var parts bytes.Buffer
	mw := multipart.NewWriter(&parts)
	header("Content-Type", fmt.Sprintf("multipart/related; boundary=%q", mw.Boundary()))
	buf.WriteString("\r\n")

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=UTF-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, fmt.Errorf("create html part: %w", err)
	}
	writeBase64(htmlPart, []byte(msg.MailHTML))

	imgPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"image/png"},
		"Content-Transfer-Encoding": {"base64"},
		"Content-ID":                {"<" + ChartContentID + ">"},
		"Content-Disposition":       {`inline; filename="score.png"`},
	})
	if err != nil {
		return nil, fmt.Errorf("create image part: %w", err)
	}
	writeBase64(imgPart, msg.Chart)

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	buf.Write(parts.Bytes())
	return buf.Bytes(), nil
}

// writeBase64 writes data base64-encoded in 76-column lines.
func writeBase64(w io.Writer, data []byte) {
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 76 {
		io.WriteString(w, enc[:76]+"\r\n")
		enc = enc[76:]
	}
	io.WriteString(w, enc+"\r\n")
}
