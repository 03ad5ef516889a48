// Package market implements identifier formatting, validation, and
// segment detection for the five supported market segments.
package market

import (
	"fmt"
	"regexp"
	"strings"

	"StockPulse/internal/domain/models"
)

// ValidationError signals a malformed identifier or an unsupported
// segment. It is surfaced before any network call is attempted.
type ValidationError struct {
	Code    string
	Segment models.MarketSegment
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid identifier %q (%s): %s", e.Code, e.Segment, e.Reason)
}

var domesticPrefixes = []string{
	"600", "601", "603", "605", // Shanghai main board
	"000", "001", "002", "003", // Shenzhen main board / SME
	"300", "301", "303", // ChiNext
	"688", "689", // STAR market
	"430", "830", "831", "832", // NEEQ
	"8", "4", // Beijing exchange
}

var (
	sixDigits = regexp.MustCompile(`^\d{6}$`)
	hkDigits  = regexp.MustCompile(`^\d{4,5}$`)
	usLetters = regexp.MustCompile(`^[A-Z]{1,5}$`)
	etfCode   = regexp.MustCompile(`^(5\d{5}|1[0-8]\d{4})$`)
	lofCode   = regexp.MustCompile(`^1[56]\d{4}$`)
)

// Format normalizes a raw code for the given segment. Formatting is
// idempotent: Format(Format(code)) == Format(code).
func Format(code string, segment models.MarketSegment) string {
	code = strings.TrimSpace(code)
	switch segment {
	case models.EquityHK:
		digits := keepDigits(code)
		if digits == "" {
			return code
		}
		if len(digits) > 5 {
			digits = digits[len(digits)-5:]
		}
		return leftPad(digits, 5)
	case models.EquityUS:
		return strings.ToUpper(code)
	default:
		return code
	}
}

// Validate checks a formatted code against the segment's pattern rules.
func Validate(code string, segment models.MarketSegment) error {
	switch segment {
	case models.EquityDomestic:
		if !sixDigits.MatchString(code) {
			return &ValidationError{Code: code, Segment: segment, Reason: "must be 6 digits"}
		}
		for _, p := range domesticPrefixes {
			if strings.HasPrefix(code, p) {
				return nil
			}
		}
		return &ValidationError{Code: code, Segment: segment, Reason: "unknown exchange prefix"}
	case models.EquityHK:
		if !hkDigits.MatchString(code) {
			return &ValidationError{Code: code, Segment: segment, Reason: "must be 4 or 5 digits"}
		}
		return nil
	case models.EquityUS:
		if !usLetters.MatchString(code) {
			return &ValidationError{Code: code, Segment: segment, Reason: "must be 1-5 uppercase letters"}
		}
		return nil
	case models.FundETF:
		if !etfCode.MatchString(code) {
			return &ValidationError{Code: code, Segment: segment, Reason: "must be 6 digits starting with 5 or 10-18"}
		}
		return nil
	case models.FundLOF:
		if !lofCode.MatchString(code) {
			return &ValidationError{Code: code, Segment: segment, Reason: "must be 6 digits starting with 15 or 16"}
		}
		return nil
	}
	return &ValidationError{Code: code, Segment: segment, Reason: "unsupported segment"}
}

// Detect guesses the segment from the code shape alone. Detection order
// matters: fund patterns are checked before the generic 6-digit
// domestic rule so 510300 resolves as ETF, not A-share.
func Detect(code string) (models.MarketSegment, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch {
	case usLetters.MatchString(code):
		return models.EquityUS, true
	case lofCode.MatchString(code):
		return models.FundLOF, true
	case etfCode.MatchString(code):
		return models.FundETF, true
	case sixDigits.MatchString(code):
		return models.EquityDomestic, true
	case hkDigits.MatchString(code):
		return models.EquityHK, true
	}
	return "", false
}

// Resolve formats and validates a raw code, detecting the segment when
// it is empty. This is the single entry point for building a
// SecurityIdentifier; a returned identifier is always well-formed.
func Resolve(code string, segment models.MarketSegment) (models.SecurityIdentifier, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.SecurityIdentifier{}, &ValidationError{Code: code, Segment: segment, Reason: "empty code"}
	}
	if segment == "" {
		detected, ok := Detect(code)
		if !ok {
			return models.SecurityIdentifier{}, &ValidationError{Code: code, Reason: "unrecognized code shape"}
		}
		segment = detected
	}
	if !segment.Valid() {
		return models.SecurityIdentifier{}, &ValidationError{Code: code, Segment: segment, Reason: "unknown segment"}
	}
	formatted := Format(code, segment)
	if err := Validate(formatted, segment); err != nil {
		return models.SecurityIdentifier{}, err
	}
	return models.SecurityIdentifier{Code: formatted, Segment: segment}, nil
}

// SmokeTestCode returns the fixed identifier used for per-segment
// connectivity probes.
func SmokeTestCode(segment models.MarketSegment) string {
	switch segment {
	case models.EquityDomestic:
		return "600271"
	case models.EquityHK:
		return "00700"
	case models.EquityUS:
		return "AAPL"
	case models.FundETF:
		return "510300"
	case models.FundLOF:
		return "161725"
	}
	return ""
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func leftPad(s string, width int) string {
	for len(s) < width {
		s = "0" + s
	}
	return s
}
