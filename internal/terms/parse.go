package terms

import (
	"encoding/json"
	"io"

	"github.com/Lumerin-protocol/actus-originator/internal/lib"
)

// ParseTerms reads a flat terms record, unknown fields are rejected
func ParseTerms(r io.Reader) (Terms, error) {
	var t Terms
	if err := decodeStrict(r, &t); err != nil {
		return Terms{}, err
	}
	return t, nil
}

// ParseOverrides reads order level overrides, unknown fields are rejected
func ParseOverrides(r io.Reader) (Overrides, error) {
	var o Overrides
	if err := decodeStrict(r, &o); err != nil {
		return Overrides{}, err
	}
	return o, nil
}

func decodeStrict(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return lib.WrapError(ErrMalformedTerms, err)
	}
	return nil
}
