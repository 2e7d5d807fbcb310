package proxy

import (
	"net/http"
	"runtime"

	"github.com/openframes/framehost/internal/metrics"
	"github.com/openframes/framehost/internal/version"
)

// stateResponse is the /api/state payload.
type stateResponse struct {
	Version   string               `json:"version"`
	BuildSHA  string               `json:"buildSha"`
	BuildDate string               `json:"buildDate"`
	Process   metrics.ProcessStats `json:"process"`
}

// StateHandler reports build metadata and a process snapshot.
func StateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stateResponse{
			Version:   version.Version,
			BuildSHA:  version.BuildSHA,
			BuildDate: version.BuildDate,
			Process:   metrics.CollectProcessStats(runtime.NumGoroutine()),
		})
	}
}
