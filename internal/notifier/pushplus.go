package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
)

// PushPlusNotifier posts HTML reports to the PushPlus webhook, once per token.
type PushPlusNotifier struct {
	Endpoint   string
	Tokens     []string
	MaxRetries int
	RetryBase  time.Duration
	Client     *http.Client
	logger     *logging.Logger
}

// NewPushPlusNotifier creates a notifier with optional proxy support.
func NewPushPlusNotifier(cfg config.PushPlusConfig, proxyURL string, logger *logging.Logger) *PushPlusNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &PushPlusNotifier{
		Endpoint:   cfg.Endpoint,
		Tokens:     config.SplitList(cfg.Token),
		MaxRetries: cfg.MaxRetries,
		RetryBase:  time.Second,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		logger: logger,
	}
}

func (p *PushPlusNotifier) Name() string { return "pushplus" }

func (p *PushPlusNotifier) Enabled() bool { return len(p.Tokens) > 0 }

type pushPlusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Post sends one message for a single token.
func (p *PushPlusNotifier) Post(ctx context.Context, token, title, content string) error {
	payload := map[string]string{
		"token":    token,
		"title":    title,
		"content":  content,
		"template": "html",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushplus API error: status %d, body: %s", resp.StatusCode, truncate(respBody, 200))
	}
	var pr pushPlusResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return fmt.Errorf("decode pushplus response: %w", err)
	}
	if pr.Code != http.StatusOK {
		return fmt.Errorf("pushplus rejected message: code %d, msg: %s", pr.Code, pr.Msg)
	}
	return nil
}

// PostWithRetry sends a message with exponential backoff retry.
func (p *PushPlusNotifier) PostWithRetry(ctx context.Context, token, title, content string) error {
	var lastErr error
	for i := 0; i <= p.MaxRetries; i++ {
		err := p.Post(ctx, token, title, content)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == p.MaxRetries {
			break
		}
		backoff := p.RetryBase * time.Duration(1<<uint(i))
		p.logger.Warn().Err(err).Str("token", maskToken(token)).
			Int("attempt", i+1).Dur("retry_in", backoff).Msg("pushplus send failed")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts exhausted: %w", p.MaxRetries+1, lastErr)
}

// Send delivers msg.HTML to every configured token. Each token is tried independently.
func (p *PushPlusNotifier) Send(ctx context.Context, msg *Message) error {
	var errs []error
	for _, token := range p.Tokens {
		if err := p.PostWithRetry(ctx, token, msg.Title, msg.HTML); err != nil {
			errs = append(errs, fmt.Errorf("token %s: %w", maskToken(token), err))
			continue
		}
		p.logger.Info().Str("token", maskToken(token)).Msg("pushplus sent")
	}
	return errors.Join(errs...)
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
