package proxy

import (
	"context"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/openframes/framehost/internal/logx"
	"github.com/openframes/framehost/internal/version"
)

const openapiSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "framehost proxy API", "version": "1.0.0"},
  "paths": {
    "/frames": {
      "get": {
        "summary": "Fetch a frame URL and parse its meta tags",
        "parameters": [
          {"name": "url", "in": "query", "required": true, "schema": {"type": "string", "format": "uri"}},
          {"name": "specification", "in": "query", "required": false,
           "schema": {"type": "string", "enum": ["farcaster", "openframes", "farcaster_v2"]}}
        ],
        "responses": {
          "200": {"description": "Parsed frame bundle"},
          "400": {"description": "Invalid target URL"},
          "502": {"description": "Upstream fetch failed"}
        }
      },
      "post": {
        "summary": "Relay a signed frame action and classify the answer",
        "parameters": [
          {"name": "postUrl", "in": "query", "required": true, "schema": {"type": "string", "format": "uri"}},
          {"name": "postType", "in": "query", "required": false,
           "schema": {"type": "string", "enum": ["post_redirect", "tx"]}}
        ],
        "responses": {
          "200": {"description": "Frame bundle, location envelope, or relayed JSON"},
          "400": {"description": "Invalid target URL"},
          "502": {"description": "Upstream post failed"}
        }
      }
    },
    "/api/sessions/{session_id}": {
      "get": {
        "summary": "Load a persisted interaction stack snapshot",
        "parameters": [{"name": "session_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"200": {"description": "Snapshot"}, "404": {"description": "Unknown session"}}
      },
      "put": {
        "summary": "Persist an interaction stack snapshot",
        "parameters": [{"name": "session_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"204": {"description": "Saved"}}
      },
      "delete": {
        "summary": "Delete a persisted snapshot",
        "parameters": [{"name": "session_id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {"204": {"description": "Deleted"}}
      }
    },
    "/api/state": {
      "get": {
        "summary": "Server build and process state",
        "responses": {"200": {"description": "State"}}
      }
    },
    "/healthz": {
      "get": {
        "summary": "Liveness check",
        "responses": {"200": {"description": "OK"}}
      }
    }
  }
}`

var openapiJSON = mustOpenAPISchema()

// mustOpenAPISchema loads and validates the document once at startup; a broken
// document is a build defect, not a runtime condition.
func mustOpenAPISchema() []byte {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData([]byte(openapiSpec))
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("load openapi schema")
	}
	doc.Info.Version = version.Version
	if err := doc.Validate(context.Background()); err != nil {
		logx.Log.Fatal().Err(err).Msg("invalid openapi schema")
	}
	b, err := doc.MarshalJSON()
	if err != nil {
		logx.Log.Fatal().Err(err).Msg("marshal openapi schema")
	}
	return b
}

// OpenAPIHandler serves the validated API document.
func OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openapiJSON)
	}
}
