package stack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/openframes/framehost/internal/frames"
	"github.com/openframes/framehost/internal/signer"
)

// fakeProxy answers the get and action proxy endpoints from a scripted
// handler and records every request it sees.
type fakeProxy struct {
	t       *testing.T
	mu      sync.Mutex
	reqs    []*http.Request
	bodies  [][]byte
	handler func(w http.ResponseWriter, r *http.Request)
	server  *httptest.Server
}

func newFakeProxy(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *fakeProxy {
	p := &fakeProxy{t: t, handler: handler}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		p.mu.Lock()
		p.reqs = append(p.reqs, r.Clone(context.Background()))
		p.bodies = append(p.bodies, body)
		p.mu.Unlock()
		p.handler(w, r)
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProxy) requests() []*http.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*http.Request(nil), p.reqs...)
}

func writeBundle(w http.ResponseWriter, status frames.Status) {
	bundle := frames.FrameBundle{
		Farcaster: &frames.ParseResult{
			Status:        status,
			Frame:         frames.Frame{Version: frames.VersionVNext, ImageURL: "https://example.com/i.png"},
			Reports:       map[string][]frames.Report{},
			Specification: frames.DialectFarcaster,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(bundle)
}

func newTestSession(t *testing.T, proxy *fakeProxy, mutate func(cfg *SessionConfig)) *Session {
	cfg := SessionConfig{
		GetProxyURL:    proxy.server.URL + "/frames",
		ActionProxyURL: proxy.server.URL + "/frames",
		HomeframeURL:   "https://frame.example/home",
		HTTPClient:     proxy.server.Client(),
		Signer:         &signer.Unsigned{FID: 1},
		AllowUnsigned:  true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestNewPanicsWithoutTransport(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for missing HTTP client")
		}
	}()
	New(SessionConfig{Signer: &signer.Unsigned{}, GetProxyURL: "x", ActionProxyURL: "y"})
}

func TestInitialGetLoadsFrame(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s; want GET", r.Method)
		}
		if got := r.URL.Query().Get("url"); got != "https://frame.example/home" {
			t.Errorf("url param = %q", got)
		}
		writeBundle(w, frames.StatusSuccess)
	})
	s := newTestSession(t, proxy, nil)
	s.LoadInitialFrame(context.Background())

	st := s.Stack()
	if len(st) != 1 || st[0].Kind != KindDone {
		t.Fatalf("stack = %+v; want single done item", st)
	}
	if s.IsLoading() {
		t.Fatal("loading flag still set")
	}
	cur := s.CurrentFrame()
	if cur == nil || cur.Frame.ImageURL != "https://example.com/i.png" {
		t.Fatalf("current frame = %+v", cur)
	}
}

func TestInitialGetClearsPlaceholder(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		writeBundle(w, frames.StatusSuccess)
	})
	s := newTestSession(t, proxy, nil)
	// Simulate a server-rendered placeholder already on the stack.
	s.mu.Lock()
	s.stack = s.stack.Load(Item{Kind: KindDone, Timestamp: 1, Frame: &frames.FrameBundle{}})
	s.mu.Unlock()

	s.LoadInitialFrame(context.Background())
	if st := s.Stack(); len(st) != 1 {
		t.Fatalf("placeholder survived the initial load: %+v", st)
	}
}

func TestInitialFrameInstalledSynchronously(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected")
	})
	bundle := &frames.FrameBundle{Farcaster: &frames.ParseResult{Status: frames.StatusSuccess}}
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.InitialFrame = bundle
	})
	s.LoadInitialFrame(context.Background())
	st := s.Stack()
	if len(st) != 1 || st[0].Frame != bundle {
		t.Fatalf("stack = %+v", st)
	}
}

func TestServerErrorBecomesRequestError(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	var reported error
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.OnError = func(err error) { reported = err }
	})
	s.LoadInitialFrame(context.Background())

	st := s.Stack()
	if len(st) != 1 || st[0].Kind != KindRequestError {
		t.Fatalf("stack = %+v; want a request error", st)
	}
	if st[0].ResponseStatus != http.StatusBadGateway {
		t.Fatalf("status = %d; want 502", st[0].ResponseStatus)
	}
	if reported == nil {
		t.Fatal("error side channel not invoked")
	}
}

func TestClientErrorBodyStillParsed(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeBundle(w, frames.StatusFailure)
	})
	s := newTestSession(t, proxy, nil)
	s.LoadInitialFrame(context.Background())

	st := s.Stack()
	if len(st) != 1 || st[0].Kind != KindDone {
		t.Fatalf("stack = %+v; want done item carrying the failure result", st)
	}
	if st[0].Frame.Farcaster.Status != frames.StatusFailure {
		t.Fatalf("status = %s", st[0].Frame.Farcaster.Status)
	}
}

func TestPostButtonClearsInputText(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("postUrl"); got != "https://frame.example/action" {
			t.Errorf("postUrl = %q", got)
		}
		writeBundle(w, frames.StatusSuccess)
	})
	s := newTestSession(t, proxy, nil)
	s.SetInputText("hello")

	frame := frames.Frame{Version: frames.VersionVNext, PostURL: "https://frame.example/post"}
	button := frames.FrameButton{Action: frames.ActionPost, Label: "Go", Target: "https://frame.example/action"}
	s.OnButtonPress(context.Background(), frame, button, 0)

	if got := s.InputText(); got != "" {
		t.Fatalf("input text = %q; want cleared", got)
	}
	body := proxy.bodies[0]
	var envelope struct {
		UntrustedData struct {
			ButtonIndex int    `json:"buttonIndex"`
			InputText   string `json:"inputText"`
		} `json:"untrustedData"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode posted body: %v", err)
	}
	if envelope.UntrustedData.ButtonIndex != 1 || envelope.UntrustedData.InputText != "hello" {
		t.Fatalf("posted payload = %+v", envelope.UntrustedData)
	}
}

func TestPostTargetPrecedence(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		writeBundle(w, frames.StatusSuccess)
	})
	s := newTestSession(t, proxy, nil)

	// No button target: the frame's post URL wins over the home URL.
	frame := frames.Frame{PostURL: "https://frame.example/frame-post"}
	s.OnButtonPress(context.Background(), frame, frames.FrameButton{Action: frames.ActionPost, Label: "a"}, 0)
	// Neither button nor frame target: falls back to the home URL.
	s.OnButtonPress(context.Background(), frames.Frame{}, frames.FrameButton{Action: frames.ActionPost, Label: "b"}, 1)

	reqs := proxy.requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d; want 2", len(reqs))
	}
	if got := reqs[0].URL.Query().Get("postUrl"); got != "https://frame.example/frame-post" {
		t.Fatalf("first postUrl = %q", got)
	}
	if got := reqs[1].URL.Query().Get("postUrl"); got != "https://frame.example/home" {
		t.Fatalf("second postUrl = %q", got)
	}
}

func TestMissingSignerDelegates(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no network call expected without a signer")
	})
	missing := false
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.AllowUnsigned = false
		cfg.Signer = &signer.Unsigned{OnMissing: func() { missing = true }}
	})
	s.OnButtonPress(context.Background(), frames.Frame{}, frames.FrameButton{Action: frames.ActionPost, Label: "x", Target: "https://t.example"}, 0)
	if !missing {
		t.Fatal("missing-signer callback not invoked")
	}
	if len(s.Stack()) != 0 {
		t.Fatal("stack mutated without a signer")
	}
}

func TestLinkButtonConfirmsAndOpens(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("link buttons must not hit the network")
	})
	var confirmed, opened string
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.ConfirmRedirect = func(target string) bool { confirmed = target; return true }
		cfg.OpenURL = func(target string) { opened = target }
	})
	s.OnButtonPress(context.Background(), frames.Frame{}, frames.FrameButton{Action: frames.ActionLink, Label: "x", Target: "https://ext.example"}, 0)
	if confirmed != "https://ext.example" || opened != "https://ext.example" {
		t.Fatalf("confirmed=%q opened=%q", confirmed, opened)
	}

	// Declined confirmation opens nothing.
	opened = ""
	s2 := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.ConfirmRedirect = func(string) bool { return false }
		cfg.OpenURL = func(target string) { opened = target }
	})
	s2.OnButtonPress(context.Background(), frames.Frame{}, frames.FrameButton{Action: frames.ActionLink, Label: "x", Target: "https://ext.example"}, 0)
	if opened != "" {
		t.Fatalf("opened %q after declined confirmation", opened)
	}
}

func TestMintButtonInvokesCallback(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("mint buttons must not hit the network")
	})
	var mint MintContext
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.OnMint = func(_ context.Context, m MintContext) { mint = m }
	})
	target := "eip155:7777777:0x060f3edd18c47f59bd23d063bbeb9aa4a8fec6df"
	s.OnButtonPress(context.Background(), frames.Frame{}, frames.FrameButton{Action: frames.ActionMint, Label: "Mint", Target: target}, 0)
	if mint.Target != target {
		t.Fatalf("mint target = %q", mint.Target)
	}
	if len(s.Stack()) != 0 {
		t.Fatal("mint mutated the stack")
	}
}

func TestRedirectResponseRestoresStack(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"location":"https://ext.example/page"}`))
	})
	var opened string
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.ConfirmRedirect = func(string) bool { return true }
		cfg.OpenURL = func(target string) { opened = target }
	})
	s.OnButtonPress(context.Background(), frames.Frame{PostURL: "https://frame.example/post"},
		frames.FrameButton{Action: frames.ActionPostRedirect, Label: "Go"}, 0)

	if opened != "https://ext.example/page" {
		t.Fatalf("opened = %q", opened)
	}
	if len(s.Stack()) != 0 {
		t.Fatalf("redirect altered the stack: %+v", s.Stack())
	}
	if got := proxy.requests()[0].URL.Query().Get("postType"); got != frames.ActionPostRedirect {
		t.Fatalf("postType = %q", got)
	}
}

func TestMessageResponseBecomesMessageItem(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Thanks for voting"}`))
	})
	s := newTestSession(t, proxy, nil)
	s.OnButtonPress(context.Background(), frames.Frame{PostURL: "https://frame.example/post"},
		frames.FrameButton{Action: frames.ActionPost, Label: "Vote"}, 0)

	st := s.Stack()
	if len(st) != 1 || st[0].Kind != KindMessage || st[0].Message != "Thanks for voting" {
		t.Fatalf("stack = %+v; want one message item", st)
	}
}

func TestFrameURLResponseRecurses(t *testing.T) {
	var calls int
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"frameUrl":"https://next.example/frame"}`))
			return
		}
		if got := r.URL.Query().Get("postUrl"); got != "https://next.example/frame" {
			t.Errorf("forwarded postUrl = %q", got)
		}
		writeBundle(w, frames.StatusSuccess)
	})
	s := newTestSession(t, proxy, nil)
	s.OnButtonPress(context.Background(), frames.Frame{PostURL: "https://frame.example/post"},
		frames.FrameButton{Action: frames.ActionPost, Label: "Go"}, 0)

	if calls != 2 {
		t.Fatalf("proxy calls = %d; want 2", calls)
	}
	st := s.Stack()
	if len(st) != 2 {
		t.Fatalf("stack = %+v; want message then done", st)
	}
	if st[0].Kind != KindDone || st[1].Kind != KindMessage {
		t.Fatalf("kinds = [%s %s]; want [done message]", st[0].Kind, st[1].Kind)
	}
}

func TestTxButtonTwoPhasePost(t *testing.T) {
	var posts []string
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		posts = append(posts, r.URL.Query().Get("postType")+" "+r.URL.Query().Get("postUrl"))
		if r.URL.Query().Get("postType") == frames.ActionTx {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chainId":"eip155:10","method":"eth_sendTransaction","params":{}}`))
			return
		}
		writeBundle(w, frames.StatusSuccess)
	})
	var txData json.RawMessage
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.OnTransaction = func(_ context.Context, tx TransactionContext) (string, error) {
			txData = tx.Data
			return "0xabc123", nil
		}
	})
	button := frames.FrameButton{
		Action:  frames.ActionTx,
		Label:   "Send",
		Target:  "https://frame.example/txdata",
		PostURL: "https://frame.example/txdone",
	}
	s.OnButtonPress(context.Background(), frames.Frame{PostURL: "https://frame.example/post"}, button, 0)

	if len(posts) != 2 {
		t.Fatalf("posts = %v; want calldata request then transition", posts)
	}
	if posts[0] != "tx https://frame.example/txdata" {
		t.Fatalf("first post = %q", posts[0])
	}
	// Transaction ids go to the button's post_url, not its target.
	if posts[1] != " https://frame.example/txdone" {
		t.Fatalf("second post = %q", posts[1])
	}
	if txData == nil {
		t.Fatal("transaction callback never received calldata")
	}
	var envelope struct {
		UntrustedData struct {
			TransactionID string `json:"transactionId"`
		} `json:"untrustedData"`
	}
	if err := json.Unmarshal(proxy.bodies[1], &envelope); err != nil {
		t.Fatalf("decode transition body: %v", err)
	}
	if envelope.UntrustedData.TransactionID != "0xabc123" {
		t.Fatalf("transactionId = %q", envelope.UntrustedData.TransactionID)
	}
	if st := s.Stack(); len(st) != 1 || st[0].Kind != KindDone {
		t.Fatalf("stack = %+v; want the transition result only", st)
	}
}

func TestTxAbortedWhenNoTransactionID(t *testing.T) {
	var calls int
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"method":"eth_sendTransaction"}`))
	})
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.OnTransaction = func(context.Context, TransactionContext) (string, error) { return "", nil }
	})
	s.OnButtonPress(context.Background(), frames.Frame{},
		frames.FrameButton{Action: frames.ActionTx, Label: "Send", Target: "https://frame.example/txdata"}, 0)
	if calls != 1 {
		t.Fatalf("proxy calls = %d; want only the calldata request", calls)
	}
	if len(s.Stack()) != 0 {
		t.Fatal("aborted tx mutated the stack")
	}
}

func TestStackChangeObserver(t *testing.T) {
	proxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		writeBundle(w, frames.StatusSuccess)
	})
	var snapshots []Stack
	s := newTestSession(t, proxy, func(cfg *SessionConfig) {
		cfg.OnStackChange = func(st Stack) { snapshots = append(snapshots, st) }
	})
	s.LoadInitialFrame(context.Background())
	if len(snapshots) < 2 {
		t.Fatalf("snapshots = %d; want pending then done", len(snapshots))
	}
	if snapshots[0][0].Kind != KindPending {
		t.Fatalf("first snapshot head = %s; want pending", snapshots[0][0].Kind)
	}
	last := snapshots[len(snapshots)-1]
	if last[0].Kind != KindDone {
		t.Fatalf("last snapshot head = %s; want done", last[0].Kind)
	}
}
