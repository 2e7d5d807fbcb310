// Package mcptool exposes frame parsing as MCP tools for development
// tooling: frame_parse validates raw HTML, frame_fetch retrieves a URL and
// parses it.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openframes/framehost/internal/frames"
)

// maxFetchBytes bounds how much of a fetched page is read.
const maxFetchBytes = 4 << 20

// Options configures the tool server.
type Options struct {
	Version      string
	HTTPClient   *http.Client
	StrictFrames bool
}

// NewServer builds the MCP server with both frame tools registered.
func NewServer(opts Options) *server.MCPServer {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := server.NewMCPServer("framehost", opts.Version, server.WithToolCapabilities(false))

	parseTool := mcp.NewTool("frame_parse",
		mcp.WithDescription("Parse frame meta tags out of an HTML document and report validation diagnostics for every dialect."),
		mcp.WithString("html", mcp.Required(), mcp.Description("Raw HTML document")),
		mcp.WithString("frame_url", mcp.Description("URL the document notionally lives at; used for post URL fallback and manifest domain checks")),
	)
	s.AddTool(parseTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := req.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		frameURL := req.GetString("frame_url", "")
		return parseResult(ctx, html, frameURL, opts)
	})

	fetchTool := mcp.NewTool("frame_fetch",
		mcp.WithDescription("Fetch a URL and parse its frame meta tags."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Frame URL to fetch")),
	)
	s.AddTool(fetchTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		resp, err := opts.HTTPClient.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("fetch %s: %v", target, err)), nil
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", target, err)), nil
		}
		return parseResult(ctx, string(body), target, opts)
	})

	return s
}

// NewHTTPHandler wraps the MCP server for mounting into the proxy router.
func NewHTTPHandler(opts Options) http.Handler {
	return server.NewStreamableHTTPServer(NewServer(opts))
}

func parseResult(ctx context.Context, html, frameURL string, opts Options) (*mcp.CallToolResult, error) {
	bundle, err := frames.ParseFramesWithReports(ctx, html, frames.ParseSettings{
		FrameURL:          frameURL,
		FallbackPostURL:   frameURL,
		FromRequestMethod: http.MethodGet,
		StrictFrames:      opts.StrictFrames,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(b)), nil
}
