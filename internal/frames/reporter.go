package frames

// ReportLevel is the severity of a single report.
type ReportLevel string

const (
	ReportLevelError   ReportLevel = "error"
	ReportLevelWarning ReportLevel = "warning"
)

// Report is one diagnostic produced while parsing, attributed to the dialect
// that discovered it.
type Report struct {
	Message string      `json:"message"`
	Source  Dialect     `json:"source"`
	Level   ReportLevel `json:"level"`
}

// Reporter accumulates keyed reports during one dialect's parse pass.
// Keys are meta tag names or logical field paths. Counters are maintained
// incrementally so HasErrors and HasReports are O(1).
type Reporter struct {
	source  Dialect
	reports map[string][]Report
	errors  int
	total   int
}

// NewReporter returns a Reporter whose reports default to the given source.
func NewReporter(source Dialect) *Reporter {
	return &Reporter{source: source, reports: map[string][]Report{}}
}

// Error records an error-level report for key.
func (r *Reporter) Error(key, message string) {
	r.ErrorFrom(key, message, r.source)
}

// ErrorFrom records an error-level report attributed to another dialect.
// Used when one dialect re-reports a problem discovered by another.
func (r *Reporter) ErrorFrom(key, message string, source Dialect) {
	r.reports[key] = append(r.reports[key], Report{Message: message, Source: source, Level: ReportLevelError})
	r.errors++
	r.total++
}

// Warn records a warning-level report for key.
func (r *Reporter) Warn(key, message string) {
	r.WarnFrom(key, message, r.source)
}

// WarnFrom records a warning-level report attributed to another dialect.
func (r *Reporter) WarnFrom(key, message string, source Dialect) {
	r.reports[key] = append(r.reports[key], Report{Message: message, Source: source, Level: ReportLevelWarning})
	r.total++
}

// HasErrors reports whether any error-level report was recorded.
func (r *Reporter) HasErrors() bool { return r.errors > 0 }

// HasReports reports whether anything at all was recorded.
func (r *Reporter) HasReports() bool { return r.total > 0 }

// Reports exposes the keyed report mapping for inclusion in a parse result.
func (r *Reporter) Reports() map[string][]Report { return r.reports }

// Status derives the parse status from the accumulated reports: failure iff
// at least one error exists.
func (r *Reporter) Status() Status {
	if r.HasErrors() {
		return StatusFailure
	}
	return StatusSuccess
}
