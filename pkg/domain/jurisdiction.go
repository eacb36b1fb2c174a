package domain

import (
	"regexp"

	dErrors "treasury/pkg/domain-errors"
)

// RuleJurisdiction is the ISO 3166-1 alpha-2 shape check. Membership in the
// ISO list is not verified.
const RuleJurisdiction = "must match ^[A-Z]{2}$"

var jurisdictionPattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Jurisdiction is a two letter uppercase country code.
type Jurisdiction string

// ParseJurisdiction validates a jurisdiction code.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	if !jurisdictionPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid jurisdiction code")
	}
	return Jurisdiction(s), nil
}

func (j Jurisdiction) String() string {
	return string(j)
}
