package broker

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeKiwoom is an in-process stand-in for the REST API.
type fakeKiwoom struct {
	t      *testing.T
	server *httptest.Server

	issued   atomic.Int32
	expires  func() time.Time
	tokenRaw func() (int, string) // overrides the token response when set

	mu       sync.Mutex
	handlers map[string]func(body map[string]string) (int, string)
	requests []recordedRequest
}

type recordedRequest struct {
	APIID  string
	Path   string
	Header http.Header
	Body   map[string]string
}

func newFakeKiwoom(t *testing.T) *fakeKiwoom {
	t.Helper()
	f := &fakeKiwoom{
		t:        t,
		expires:  func() time.Time { return time.Now().Add(24 * time.Hour) },
		handlers: make(map[string]func(map[string]string) (int, string)),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeKiwoom) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	body := map[string]string{}
	_ = json.Unmarshal(data, &body)

	apiID := r.Header.Get("api-id")
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{APIID: apiID, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	handler := f.handlers[apiID]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json;charset=UTF-8")

	if r.URL.Path == PathIssueToken {
		f.issued.Add(1)
		if f.tokenRaw != nil {
			status, payload := f.tokenRaw()
			w.WriteHeader(status)
			_, _ = io.WriteString(w, payload)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"expires_dt":  f.expires().UTC().Format(ExpiryLayout),
			"token_type":  "bearer",
			"token":       "tok-" + time.Now().Format("150405.000000000"),
			"return_code": 0,
			"return_msg":  "정상적으로 처리되었습니다",
		})
		return
	}

	if handler == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"unknown api-id"}`)
		return
	}
	status, payload := handler(body)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeKiwoom) handle(apiID string, fn func(body map[string]string) (int, string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[apiID] = fn
}

func (f *fakeKiwoom) respond(apiID, payload string) {
	f.handle(apiID, func(map[string]string) (int, string) { return http.StatusOK, payload })
}

func (f *fakeKiwoom) calls(apiID string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.APIID == apiID {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeKiwoom) guard() *TokenGuard {
	return NewTokenGuard(AuthConfig{
		BaseURL:   f.server.URL,
		AppKey:    "app-key",
		AppSecret: "app-secret",
		Location:  time.UTC,
		Logger:    zerolog.Nop(),
	})
}

func (f *fakeKiwoom) client() *Client {
	return NewClient(ClientConfig{
		BaseURL:   f.server.URL,
		AppKey:    "app-key",
		AppSecret: "app-secret",
		Logger:    zerolog.Nop(),
	}, f.guard())
}
