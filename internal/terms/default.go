package terms

import (
	"bytes"
	_ "embed"
)

//go:embed pam.json
var defaultPAM []byte

// DefaultPAM returns a yearly principal at maturity loan with quarterly interest payments.
// Currencies are left empty and have to be set before deriving the template.
func DefaultPAM() (Terms, error) {
	return ParseTerms(bytes.NewReader(defaultPAM))
}
