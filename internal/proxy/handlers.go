package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/openframes/framehost/internal/config"
	"github.com/openframes/framehost/internal/debughub"
	"github.com/openframes/framehost/internal/frames"
	"github.com/openframes/framehost/internal/logx"
	"github.com/openframes/framehost/internal/metrics"
	"github.com/openframes/framehost/internal/sessionstore"
)

// maxFrameBodyBytes bounds how much of an upstream response is read. Frame
// documents are small; anything larger is not a frame.
const maxFrameBodyBytes = 4 << 20

// getFrameParams are the query parameters of the get proxy endpoint.
type getFrameParams struct {
	URL           string
	Specification *string
}

// postFrameParams are the query parameters of the action proxy endpoint.
type postFrameParams struct {
	PostURL  string
	PostType *string
}

// API implements the frame proxy endpoints. The proxy exists so browser
// clients never contact third-party frame origins directly.
type API struct {
	cfg config.ServerConfig
	// client follows redirects and serves the get proxy; postClient stops
	// at the first response so the action proxy can hand redirects back as
	// location envelopes.
	client     *http.Client
	postClient *http.Client
	sessions   sessionstore.Store
	hub        *debughub.Hub
}

// NewAPI wires the handler set. A nil client gets a default with the
// configured request timeout. A nil hub disables the debug feed.
func NewAPI(cfg config.ServerConfig, client *http.Client, sessions sessionstore.Store, hub *debughub.Hub) *API {
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	postClient := &http.Client{
		Transport: client.Transport,
		Jar:       client.Jar,
		Timeout:   client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if sessions == nil {
		sessions = sessionstore.NewMemoryStore(0)
	}
	return &API{cfg: cfg, client: client, postClient: postClient, sessions: sessions, hub: hub}
}

func bindGetFrameParams(r *http.Request) (getFrameParams, error) {
	var params getFrameParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "url", q, &params.URL); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "specification", q, &params.Specification); err != nil {
		return params, err
	}
	return params, nil
}

func bindPostFrameParams(r *http.Request) (postFrameParams, error) {
	var params postFrameParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "postUrl", q, &params.PostURL); err != nil {
		return params, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "postType", q, &params.PostType); err != nil {
		return params, err
	}
	return params, nil
}

// GetFrames is the get proxy: fetch the target document and parse it.
func (a *API) GetFrames(w http.ResponseWriter, r *http.Request) {
	params, err := bindGetFrameParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkProxyTarget(params.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, params.URL, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := a.client.Do(req)
	if err != nil {
		metrics.ObserveProxyRequest("frames_get", "upstream_error", time.Since(start).Seconds())
		writeError(w, http.StatusBadGateway, fmt.Sprintf("fetch %s: %v", params.URL, err))
		return
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBodyBytes))
	metrics.ObserveProxyRequest("frames_get", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("read %s: %v", params.URL, err))
		return
	}

	bundle, err := frames.ParseFramesWithReports(r.Context(), string(body), frames.ParseSettings{
		FrameURL:          params.URL,
		FallbackPostURL:   params.URL,
		FromRequestMethod: http.MethodGet,
		StrictFrames:      a.cfg.StrictFrames,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	observeBundle(bundle)
	if params.Specification != nil {
		switch frames.Dialect(*params.Specification) {
		case frames.DialectFarcaster:
			writeJSON(w, http.StatusOK, bundle.Farcaster)
		case frames.DialectOpenFrames:
			writeJSON(w, http.StatusOK, bundle.OpenFrames)
		case frames.DialectFarcasterV2:
			writeJSON(w, http.StatusOK, bundle.FarcasterV2)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown specification %q", *params.Specification))
		}
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

// PostFrames is the action proxy: relay a signed action body to the frame
// server and classify the answer. Redirects become location envelopes, JSON
// bodies are relayed as-is, HTML bodies are parsed into a frame bundle.
func (a *API) PostFrames(w http.ResponseWriter, r *http.Request) {
	params, err := bindPostFrameParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := checkProxyTarget(params.PostURL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	postType := ""
	if params.PostType != nil {
		postType = *params.PostType
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, params.PostURL, strings.NewReader(string(body)))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.postClient.Do(req)
	if err != nil {
		metrics.ObserveProxyRequest("frames_post", "upstream_error", time.Since(start).Seconds())
		writeError(w, http.StatusBadGateway, fmt.Sprintf("post %s: %v", params.PostURL, err))
		return
	}
	defer resp.Body.Close()
	upstream, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBodyBytes))
	metrics.ObserveProxyRequest("frames_post", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("read %s: %v", params.PostURL, err))
		return
	}

	// Frame servers answer post_redirect with a 3xx; hand the location back
	// instead of following it so the client can confirm with the user.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if loc == "" {
			writeError(w, http.StatusBadGateway, "redirect without location header")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"location": loc})
		return
	}
	if postType == frames.ActionPostRedirect {
		logx.Log.Warn().Str("post_url", params.PostURL).Int("status", resp.StatusCode).Msg("post_redirect answered without redirect")
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") || postType == frames.ActionTx {
		// Message payloads, tx calldata and structured validation failures
		// are relayed verbatim, status included.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(upstream)
		return
	}

	bundle, err := frames.ParseFramesWithReports(r.Context(), string(upstream), frames.ParseSettings{
		FrameURL:          params.PostURL,
		FallbackPostURL:   params.PostURL,
		FromRequestMethod: http.MethodPost,
		StrictFrames:      a.cfg.StrictFrames,
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	observeBundle(bundle)
	status := http.StatusOK
	if resp.StatusCode >= 400 {
		status = resp.StatusCode
	}
	writeJSON(w, status, bundle)
}

// SaveSession persists an interaction stack snapshot.
func (a *API) SaveSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	snapshot, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !json.Valid(snapshot) {
		writeError(w, http.StatusBadRequest, "snapshot must be valid JSON")
		return
	}
	_, loadErr := a.sessions.Load(r.Context(), id)
	if err := a.sessions.Save(r.Context(), id, snapshot); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if loadErr == sessionstore.ErrNotFound {
		metrics.SessionOpened()
	}
	if a.hub != nil {
		a.hub.Publish(debughub.Event{SessionID: id, Stack: snapshot})
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSession returns a persisted stack snapshot.
func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	snapshot, err := a.sessions.Load(r.Context(), id)
	if err == sessionstore.ErrNotFound {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(snapshot)
}

// DeleteSession removes a persisted stack snapshot.
func (a *API) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	_, loadErr := a.sessions.Load(r.Context(), id)
	if err := a.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// Only decrement the gauge for snapshots that actually existed.
	if loadErr == nil {
		metrics.SessionClosed()
	}
	w.WriteHeader(http.StatusNoContent)
}

func observeBundle(bundle *frames.FrameBundle) {
	metrics.ObserveParse(string(frames.DialectFarcaster), string(bundle.Farcaster.Status))
	metrics.ObserveParse(string(frames.DialectOpenFrames), string(bundle.OpenFrames.Status))
	metrics.ObserveParse(string(frames.DialectFarcasterV2), string(bundle.FarcasterV2.Status))
}

// checkProxyTarget rejects targets the proxy must not fetch.
func checkProxyTarget(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid target URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported target scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target URL has no host")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
