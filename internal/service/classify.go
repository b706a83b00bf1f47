package service

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// QueryKind is the registry lookup parameter a raw query maps to.
type QueryKind string

// Registry query parameter names, matching the lookup service's API.
const (
	QueryRegistration QueryKind = "reg_no"
	QueryPAN          QueryKind = "pan"
	QueryUPI          QueryKind = "upi"
	QueryName         QueryKind = "name"
)

// Identifier patterns recognized in registry queries.
// Registration numbers follow the corporate registry format (state code
// letter + 8 digits), PAN is the tax identifier format, and UPI is the
// payment handle format. Anything else is treated as an entity name.
var (
	regNoPattern = regexp.MustCompile(`^IN[AHZP]\d{8}$`)
	panPattern   = regexp.MustCompile(`^[A-Z]{5}\d{4}[A-Z]$`)
	upiPattern   = regexp.MustCompile(`^[A-Za-z0-9_.-]{2,}@[A-Za-z]{2,}$`)
)

// nameCaser title-cases name queries so "acme trading ltd" and
// "ACME TRADING LTD" hit the same registry records.
var nameCaser = cases.Title(language.English)

// ClassifyQuery maps a raw user query to the registry parameter it should
// be sent as, returning the parameter kind and the normalized value.
// Identifier formats are matched case-insensitively and normalized to the
// registry's canonical casing; everything else is a name query.
func ClassifyQuery(query string) (QueryKind, string) {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)

	switch {
	case regNoPattern.MatchString(upper):
		return QueryRegistration, upper
	case panPattern.MatchString(upper):
		return QueryPAN, upper
	case upiPattern.MatchString(q):
		return QueryUPI, strings.ToLower(q)
	default:
		return QueryName, nameCaser.String(q)
	}
}
