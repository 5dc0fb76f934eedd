package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyaniteli/daily-energy-strategy/internal/config"
	"github.com/kyaniteli/daily-energy-strategy/internal/logging"
)

type pushPlusServer struct {
	*httptest.Server
	mu     sync.Mutex
	tokens []string
}

func newPushPlusServer(t *testing.T, reply func(token string, n int) (int, string)) *pushPlusServer {
	s := &pushPlusServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "html", body["template"])
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		s.mu.Lock()
		s.tokens = append(s.tokens, body["token"])
		n := len(s.tokens)
		s.mu.Unlock()

		status, resp := reply(body["token"], n)
		w.WriteHeader(status)
		fmt.Fprint(w, resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *pushPlusServer) hits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func newTestPushPlus(endpoint, tokens string, retries int) *PushPlusNotifier {
	p := NewPushPlusNotifier(config.PushPlusConfig{Endpoint: endpoint, Token: tokens, MaxRetries: retries}, "", logging.NewSilent())
	p.RetryBase = time.Millisecond
	return p
}

func TestPushPlus_FansOutPerToken(t *testing.T) {
	srv := newPushPlusServer(t, func(string, int) (int, string) {
		return http.StatusOK, `{"code":200,"msg":"请求成功"}`
	})
	p := newTestPushPlus(srv.URL, "tokA, tokB,,", 0)
	assert.True(t, p.Enabled())

	err := p.Send(context.Background(), &Message{Title: "t", HTML: "<b>x</b>"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tokA", "tokB"}, srv.hits())
}

func TestPushPlus_BusinessCodeFailure(t *testing.T) {
	srv := newPushPlusServer(t, func(token string, _ int) (int, string) {
		if token == "bad" {
			return http.StatusOK, `{"code":903,"msg":"无效的用户token"}`
		}
		return http.StatusOK, `{"code":200,"msg":"ok"}`
	})
	p := newTestPushPlus(srv.URL, "bad,good", 0)

	err := p.Send(context.Background(), &Message{Title: "t", HTML: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 903")
	assert.Equal(t, []string{"bad", "good"}, srv.hits(), "a failing token must not block the next one")
}

func TestPushPlus_RetriesThenSucceeds(t *testing.T) {
	srv := newPushPlusServer(t, func(_ string, n int) (int, string) {
		if n == 1 {
			return http.StatusBadGateway, "upstream"
		}
		return http.StatusOK, `{"code":200}`
	})
	p := newTestPushPlus(srv.URL, "tok", 1)

	require.NoError(t, p.Send(context.Background(), &Message{Title: "t", HTML: "x"}))
	assert.Len(t, srv.hits(), 2)
}

func TestPushPlus_RetriesExhausted(t *testing.T) {
	srv := newPushPlusServer(t, func(string, int) (int, string) {
		return http.StatusInternalServerError, "boom"
	})
	p := newTestPushPlus(srv.URL, "tok", 2)

	err := p.Send(context.Background(), &Message{Title: "t", HTML: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts exhausted")
	assert.Len(t, srv.hits(), 3)
}

func TestDispatcher_DisabledChannelsMakeNoNetworkCalls(t *testing.T) {
	srv := newPushPlusServer(t, func(string, int) (int, string) {
		return http.StatusOK, `{"code":200}`
	})
	push := newTestPushPlus(srv.URL, "", 0)
	mail := NewMailNotifier(config.MailConfig{Host: "127.0.0.1", SSLPort: 1, TLSPort: 1}, logging.NewSilent())

	d := NewDispatcher(logging.NewSilent(), push, mail)
	results := d.Dispatch(context.Background(), &Message{Title: "t", HTML: "x"})

	require.Len(t, results, 2)
	assert.True(t, results[0].Skipped)
	assert.True(t, results[1].Skipped)
	assert.Empty(t, srv.hits())
	assert.Zero(t, Delivered(results))
}

type stubChannel struct {
	name string
	err  error
	sent int
}

func (s *stubChannel) Name() string  { return s.name }
func (s *stubChannel) Enabled() bool { return true }
func (s *stubChannel) Send(context.Context, *Message) error {
	s.sent++
	return s.err
}

func TestDispatcher_FailureDoesNotStopOtherChannels(t *testing.T) {
	bad := &stubChannel{name: "bad", err: fmt.Errorf("down")}
	good := &stubChannel{name: "good"}
	d := NewDispatcher(logging.NewSilent(), bad, good)

	results := d.Dispatch(context.Background(), &Message{Title: "t"})
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, bad.sent)
	assert.Equal(t, 1, good.sent)
	assert.Equal(t, 1, Delivered(results))
}

func TestMail_Enabled(t *testing.T) {
	cfg := config.MailConfig{Host: "smtp.qq.com", SSLPort: 465, TLSPort: 587}
	assert.False(t, NewMailNotifier(cfg, logging.NewSilent()).Enabled())

	cfg.Sender, cfg.Password = "me@qq.com", "secret"
	assert.False(t, NewMailNotifier(cfg, logging.NewSilent()).Enabled())

	cfg.Receivers = "a@x.com, b@y.com"
	m := NewMailNotifier(cfg, logging.NewSilent())
	assert.True(t, m.Enabled())
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, m.Receivers)
}

func TestMail_BuildMIME(t *testing.T) {
	m := NewMailNotifier(config.MailConfig{
		Host: "smtp.qq.com", Sender: "me@qq.com", Password: "p", Receivers: "a@x.com,b@y.com",
	}, logging.NewSilent())
	m.now = func() time.Time { return time.Date(2025, 3, 7, 15, 30, 0, 0, time.UTC) }

	plain, err := m.buildMIME(&Message{Title: "复盘日报 03-07", MailHTML: "<p>hi</p>"})
	require.NoError(t, err)
	s := string(plain)
	assert.Contains(t, s, "From: me@qq.com\r\n")
	assert.Contains(t, s, "To: a@x.com, b@y.com\r\n")
	assert.Contains(t, s, "Subject: =?UTF-8?b?")
	assert.Contains(t, s, "Content-Type: text/html; charset=UTF-8")
	assert.NotContains(t, s, "multipart")

	related, err := m.buildMIME(&Message{Title: "t", MailHTML: "<img src=\"cid:score-chart\">", Chart: []byte("\x89PNG")})
	require.NoError(t, err)
	s = string(related)
	assert.Contains(t, s, "multipart/related; boundary=")
	assert.Contains(t, s, "Content-ID: <score-chart>")
	assert.Contains(t, s, "Content-Type: image/png")
	assert.True(t, strings.Count(s, "Content-Transfer-Encoding: base64") >= 2)
}
