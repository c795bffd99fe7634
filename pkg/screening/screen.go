// Package screening checks user-supplied free text for injection payloads
// before it reaches storage. The ingestion and create-work endpoints are
// unauthenticated, so hostile input is expected; findings are logged for
// abuse review but never cause a rejection — declarations are voluntary
// records and screening exists to flag, not to block.
package screening

import (
	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/declaro-arts/declaro-engine/pkg/logging"
)

// maxLoggedValueLength bounds how much of an offending value is logged.
const maxLoggedValueLength = 120

// Finding describes one field that matched an injection signature.
type Finding struct {
	Field       string // name of the offending input field
	Kind        string // "sqli" or "xss"
	Fingerprint string // libinjection fingerprint, empty for xss
}

// Screener runs libinjection checks over request fields.
type Screener struct {
	logger *zap.Logger
}

// NewScreener creates a Screener that logs findings through the given logger.
func NewScreener(logger *zap.Logger) *Screener {
	return &Screener{logger: logger.Named("screening")}
}

// CheckField tests a single free-text value. Returns nil when the value is
// clean. Empty values are never flagged.
func (s *Screener) CheckField(field, value string) *Finding {
	if value == "" {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &Finding{Field: field, Kind: "sqli", Fingerprint: string(fingerprint)}
	}

	if libinjection.IsXSS(value) {
		return &Finding{Field: field, Kind: "xss"}
	}

	return nil
}

// ScreenFields checks every named value and logs a warning per finding.
// The request proceeds regardless of the result.
func (s *Screener) ScreenFields(fields map[string]string) []Finding {
	var findings []Finding
	for field, value := range fields {
		finding := s.CheckField(field, value)
		if finding == nil {
			continue
		}
		findings = append(findings, *finding)
		s.logger.Warn("Injection pattern in free-text field",
			zap.String("field", finding.Field),
			zap.String("kind", finding.Kind),
			zap.String("fingerprint", finding.Fingerprint),
			zap.String("value", logging.TruncateString(value, maxLoggedValueLength)),
		)
	}
	return findings
}
