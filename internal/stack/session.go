package stack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openframes/framehost/internal/frames"
	"github.com/openframes/framehost/internal/logx"
	"github.com/openframes/framehost/internal/signer"
)

// MintContext is handed to the mint callback; no network call is made for
// mint actions by the session itself.
type MintContext struct {
	Target string
	Button frames.FrameButton
	Frame  frames.Frame
}

// TransactionContext carries the calldata returned by a tx button's target
// so the caller can submit it on chain and hand back a transaction id.
type TransactionContext struct {
	Target string
	Button frames.FrameButton
	Frame  frames.Frame
	Data   json.RawMessage
}

// SessionConfig wires a Session's collaborators. Transport, proxy endpoints
// and signer are capabilities the caller must supply; the session never
// reaches for ambient state.
type SessionConfig struct {
	// GetProxyURL and ActionProxyURL are the runtime's own proxy endpoints.
	// Frame targets are never fetched directly.
	GetProxyURL    string
	ActionProxyURL string

	// HomeframeURL is the frame to load when no initial frame is supplied,
	// and the last-resort post target.
	HomeframeURL string

	// InitialFrame is an optional server-rendered frame the stack starts from.
	InitialFrame *frames.FrameBundle

	// Dialect selects which parse result CurrentFrame exposes.
	Dialect frames.Dialect

	HTTPClient *http.Client
	Signer     signer.Signer

	// AllowUnsigned permits posting the signer's best-effort envelope even
	// when no real signer is configured.
	AllowUnsigned bool

	// FrameContext is threaded opaquely into every signed action.
	FrameContext     json.RawMessage
	ConnectedAddress string

	// OnMint receives mint button presses.
	OnMint func(ctx context.Context, mint MintContext)
	// OnTransaction submits calldata and returns the resulting transaction
	// id, or empty to abort the frame transition.
	OnTransaction func(ctx context.Context, tx TransactionContext) (string, error)
	// ConfirmRedirect asks the user whether to follow an external URL.
	// A nil callback declines every redirect.
	ConfirmRedirect func(target string) bool
	// OpenURL opens a confirmed URL in a new browsing context.
	OpenURL func(target string)
	// OnError is the alert-style side channel for interaction failures.
	OnError func(err error)
	// OnStackChange observes every stack transition, e.g. for a debug feed.
	OnStackChange func(s Stack)
}

// Session is the per-frame interaction state machine. A session owns its
// stack exclusively; methods must not be called concurrently, but distinct
// sessions are fully independent.
type Session struct {
	cfg SessionConfig
	id  string

	mu        sync.Mutex
	stack     Stack
	inputText string
	loading   bool
	frameURL  string
	lastTS    int64
}

// New builds a session. Missing transport, signer or proxy endpoints are
// wiring bugs, not runtime conditions, and panic.
func New(cfg SessionConfig) *Session {
	if cfg.HTTPClient == nil {
		panic("stack: SessionConfig.HTTPClient is required")
	}
	if cfg.Signer == nil {
		panic("stack: SessionConfig.Signer is required")
	}
	if cfg.GetProxyURL == "" || cfg.ActionProxyURL == "" {
		panic("stack: proxy endpoints are required")
	}
	if cfg.Dialect == "" {
		cfg.Dialect = frames.DialectFarcaster
	}
	s := &Session{
		cfg:      cfg,
		id:       uuid.NewString(),
		frameURL: cfg.HomeframeURL,
	}
	if cfg.InitialFrame != nil {
		s.stack = s.stack.ResetInitialFrame(cfg.InitialFrame, cfg.HomeframeURL, s.nextTimestamp())
	}
	return s
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Stack returns the current stack value. The returned slice is never
// mutated afterwards; callers may hold onto it.
func (s *Session) Stack() Stack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stack
}

// IsLoading reports whether a request is in flight.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// InputText returns the current input buffer.
func (s *Session) InputText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputText
}

// SetInputText replaces the input buffer.
func (s *Session) SetInputText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputText = text
}

// CurrentFrame returns the configured dialect's result from the newest done
// item, or nil when nothing has loaded yet.
func (s *Session) CurrentFrame() *frames.ParseResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.stack {
		if s.stack[i].Kind == KindDone && s.stack[i].Frame != nil {
			return s.stack[i].Frame.Result(s.cfg.Dialect)
		}
	}
	return nil
}

// ClearFrameStack resets the stack, discarding any server-rendered
// placeholder. In-flight completions referencing cleared items become no-ops.
func (s *Session) ClearFrameStack() {
	s.mu.Lock()
	s.stack = s.stack.Clear()
	s.mu.Unlock()
	s.notify()
}

// LoadInitialFrame seeds the stack. With an initial frame configured it is
// installed synchronously; otherwise, when a home URL exists, an initial GET
// is issued through the proxy, clearing any placeholder first.
func (s *Session) LoadInitialFrame(ctx context.Context) {
	if s.cfg.InitialFrame != nil {
		s.mu.Lock()
		s.stack = s.stack.ResetInitialFrame(s.cfg.InitialFrame, s.cfg.HomeframeURL, s.nextTimestamp())
		s.mu.Unlock()
		s.notify()
		return
	}
	if s.cfg.HomeframeURL == "" {
		return
	}
	s.FetchFrame(ctx, FrameRequest{
		Method:           http.MethodGet,
		Target:           s.cfg.HomeframeURL,
		ClearPlaceholder: true,
	})
}

// OnButtonPress handles a press of button (0-based index) on frame. Failures
// are reported through OnError and the stack; they never propagate.
func (s *Session) OnButtonPress(ctx context.Context, frame frames.Frame, button frames.FrameButton, index int) {
	if !s.cfg.Signer.HasSigner() && !s.cfg.AllowUnsigned {
		s.cfg.Signer.OnMissingSigner()
		return
	}
	switch button.Action {
	case frames.ActionLink:
		s.openExternal(button.Target)
	case frames.ActionMint:
		if s.cfg.OnMint != nil {
			s.cfg.OnMint(ctx, MintContext{Target: button.Target, Button: button, Frame: frame})
		}
	case frames.ActionTx:
		s.pressTx(ctx, frame, button, index)
	default:
		// post and post_redirect; unknown actions were already rejected by
		// the parsers and fall through to a plain post.
		target := firstNonEmpty(button.Target, frame.PostURL, s.cfg.HomeframeURL)
		if target == "" {
			s.reportError(fmt.Errorf("no target or fallback post URL for button %d", index+1))
			return
		}
		s.pressPost(ctx, frame, button, index, target, "")
	}
}

// pressTx runs the two-phase tx flow: fetch calldata from the button target,
// submit it through the transaction callback, then post the transaction id.
// Transaction ids go to a post_url, never to a plain target, hence the
// distinct precedence on the second POST.
func (s *Session) pressTx(ctx context.Context, frame frames.Frame, button frames.FrameButton, index int) {
	signed, err := s.signAction(ctx, frame, button, index, "")
	if err != nil {
		s.reportError(fmt.Errorf("sign tx data request: %w", err))
		return
	}
	data, err := s.fetchTransactionData(ctx, button.Target, signed)
	if err != nil {
		s.reportError(fmt.Errorf("fetch tx data: %w", err))
		return
	}
	if s.cfg.OnTransaction == nil {
		s.reportError(fmt.Errorf("tx button pressed without a transaction callback"))
		return
	}
	txID, err := s.cfg.OnTransaction(ctx, TransactionContext{
		Target: button.Target,
		Button: button,
		Frame:  frame,
		Data:   data,
	})
	if err != nil {
		s.reportError(fmt.Errorf("submit transaction: %w", err))
		return
	}
	if txID == "" {
		return
	}
	target := firstNonEmpty(button.PostURL, frame.PostURL, button.Target)
	s.pressPost(ctx, frame, button, index, target, txID)
}

func (s *Session) pressPost(ctx context.Context, frame frames.Frame, button frames.FrameButton, index int, target, txID string) {
	signed, err := s.signAction(ctx, frame, button, index, txID)
	if err != nil {
		s.reportError(fmt.Errorf("sign frame action: %w", err))
		return
	}
	postType := ""
	if button.Action == frames.ActionPostRedirect {
		postType = frames.ActionPostRedirect
	}
	s.FetchFrame(ctx, FrameRequest{
		Method:   http.MethodPost,
		Target:   target,
		PostType: postType,
		Signed:   signed,
	})
}

func (s *Session) signAction(ctx context.Context, frame frames.Frame, button frames.FrameButton, index int, txID string) (*signer.SignedRequest, error) {
	s.mu.Lock()
	input := s.inputText
	frameURL := s.frameURL
	s.mu.Unlock()
	return s.cfg.Signer.SignFrameAction(ctx, signer.SignOptions{
		ButtonIndex:   index + 1,
		Target:        button.Target,
		URL:           frameURL,
		InputText:     input,
		State:         frame.State,
		TransactionID: txID,
		Address:       s.cfg.ConnectedAddress,
		FrameContext:  s.cfg.FrameContext,
	})
}

// FrameRequest parameterizes the single network primitive every interaction
// funnels through.
type FrameRequest struct {
	Method   string
	Target   string
	PostType string
	Signed   *signer.SignedRequest
	// ClearPlaceholder drops any server-rendered placeholder entry before
	// the pending item is pushed, so the two never coexist on the stack.
	ClearPlaceholder bool
}

// proxyResponse is the envelope the proxy answers with: exactly one of a
// frame bundle, a redirect location, a message, or a forward frame URL.
type proxyResponse struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	FrameURL string `json:"frameUrl,omitempty"`
}

// FetchFrame issues one request through the proxy and folds the outcome into
// the stack. Every failure path lands as a requestError item; nothing is
// thrown past this boundary.
func (s *Session) FetchFrame(ctx context.Context, req FrameRequest) {
	pending := Item{
		Kind:      KindPending,
		Timestamp: s.takeTimestamp(),
		Method:    req.Method,
		URL:       req.Target,
	}
	s.mu.Lock()
	if req.ClearPlaceholder {
		s.stack = s.stack.Clear()
	}
	s.stack = s.stack.Load(pending)
	s.loading = true
	s.mu.Unlock()
	s.notify()

	start := time.Now()
	status, body, err := s.doProxyRequest(ctx, req)
	elapsed := roundMs(time.Since(start))

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	if err != nil || status >= http.StatusInternalServerError {
		if err == nil {
			err = fmt.Errorf("proxy returned status %d", status)
		}
		s.failPending(pending, status, elapsed, err)
		return
	}

	var envelope proxyResponse
	if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil {
		s.failPending(pending, status, elapsed, fmt.Errorf("decode proxy response: %w", jsonErr))
		return
	}

	switch {
	case envelope.Location != "":
		// A redirect is not a frame transition; restore the stack.
		s.mu.Lock()
		s.stack = s.stack.Remove(pending)
		s.mu.Unlock()
		s.notify()
		s.openExternal(envelope.Location)
	case envelope.Message != "":
		s.replacePending(pending, Item{
			Kind:      KindMessage,
			Timestamp: pending.Timestamp,
			Method:    pending.Method,
			URL:       pending.URL,
			SpeedMs:   elapsed,
			Message:   envelope.Message,
		})
	case envelope.FrameURL != "":
		s.replacePending(pending, Item{
			Kind:      KindMessage,
			Timestamp: pending.Timestamp,
			Method:    pending.Method,
			URL:       pending.URL,
			SpeedMs:   elapsed,
			Message:   "Fetching frame from " + envelope.FrameURL,
		})
		s.OnButtonPress(ctx, frames.Frame{}, frames.FrameButton{
			Action: frames.ActionPost,
			Target: envelope.FrameURL,
		}, 0)
	default:
		bundle := new(frames.FrameBundle)
		if jsonErr := json.Unmarshal(body, bundle); jsonErr != nil {
			s.failPending(pending, status, elapsed, fmt.Errorf("decode frame bundle: %w", jsonErr))
			return
		}
		s.replacePending(pending, Item{
			Kind:      KindDone,
			Timestamp: pending.Timestamp,
			Method:    pending.Method,
			URL:       pending.URL,
			SpeedMs:   elapsed,
			Frame:     bundle,
		})
		s.mu.Lock()
		s.frameURL = req.Target
		if req.Method == http.MethodPost {
			s.inputText = ""
		}
		s.mu.Unlock()
	}
}

// doProxyRequest performs the actual HTTP exchange with the proxy.
func (s *Session) doProxyRequest(ctx context.Context, req FrameRequest) (int, []byte, error) {
	endpoint, err := s.proxyURL(req)
	if err != nil {
		return 0, nil, err
	}
	var bodyReader io.Reader
	if req.Signed != nil && len(req.Signed.Body) > 0 {
		bodyReader = bytes.NewReader(req.Signed.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	logx.Log.Debug().
		Str("session", s.id).
		Str("method", req.Method).
		Str("target", req.Target).
		Msg("proxy request")
	resp, err := s.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (s *Session) proxyURL(req FrameRequest) (string, error) {
	base := s.cfg.ActionProxyURL
	if req.Method == http.MethodGet {
		base = s.cfg.GetProxyURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse proxy URL: %w", err)
	}
	q := u.Query()
	if req.Method == http.MethodGet {
		q.Set("url", req.Target)
	} else {
		q.Set("postUrl", req.Target)
		if req.PostType != "" {
			q.Set("postType", req.PostType)
		}
		if req.Signed != nil {
			for key, values := range req.Signed.SearchParams {
				for _, v := range values {
					q.Add(key, v)
				}
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// fetchTransactionData posts the signed tx-data request with postType=tx and
// returns the raw calldata payload. This call does not touch the stack; only
// the follow-up frame transition does.
func (s *Session) fetchTransactionData(ctx context.Context, target string, signed *signer.SignedRequest) (json.RawMessage, error) {
	status, body, err := s.doProxyRequest(ctx, FrameRequest{
		Method:   http.MethodPost,
		Target:   target,
		PostType: frames.ActionTx,
		Signed:   signed,
	})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("tx data request returned status %d", status)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("tx data response is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func (s *Session) openExternal(target string) {
	if s.cfg.ConfirmRedirect == nil || !s.cfg.ConfirmRedirect(target) {
		return
	}
	if s.cfg.OpenURL != nil {
		s.cfg.OpenURL(target)
	}
}

func (s *Session) replacePending(pending, item Item) {
	s.mu.Lock()
	s.stack = s.stack.Done(pending, item)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) failPending(pending Item, status int, elapsed float64, err error) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	logx.Log.Warn().
		Str("session", s.id).
		Str("url", pending.URL).
		Int("status", status).
		Err(err).
		Msg("frame request failed")
	s.mu.Lock()
	s.stack = s.stack.RequestError(pending, Item{
		Kind:           KindRequestError,
		Timestamp:      pending.Timestamp,
		Method:         pending.Method,
		URL:            pending.URL,
		SpeedMs:        elapsed,
		ResponseStatus: status,
		ErrorMessage:   err.Error(),
	})
	s.mu.Unlock()
	s.notify()
	s.reportError(err)
}

func (s *Session) reportError(err error) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}

func (s *Session) notify() {
	if s.cfg.OnStackChange == nil {
		return
	}
	s.cfg.OnStackChange(s.Stack())
}

func (s *Session) takeTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextTimestamp()
}

// nextTimestamp returns a strictly increasing millisecond timestamp; callers
// must hold mu. Two requests inside the same millisecond would otherwise
// collide on the stack's identity key.
func (s *Session) nextTimestamp() int64 {
	ts := time.Now().UnixMilli()
	if ts <= s.lastTS {
		ts = s.lastTS + 1
	}
	s.lastTS = ts
	return ts
}

// roundMs converts a duration to milliseconds with two decimal places.
func roundMs(d time.Duration) float64 {
	ms := float64(d.Microseconds()) / 1000.0
	return math.Round(ms*100) / 100
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
