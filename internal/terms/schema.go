package terms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
)

var (
	termsType     = reflect.TypeOf(Terms{})
	overridesType = reflect.TypeOf(Overrides{})
	timestampType = reflect.TypeOf(Timestamp(0))
	decimalType   = reflect.TypeOf(Decimal{})
	addressType   = reflect.TypeOf(common.Address{})
)

// dates that are replaced by the anchor date of an order
var anchorFields = map[string]bool{
	"ContractDealDate": true,
	"StatusDate":       true,
}

// overrideIndex maps the i-th field of Overrides to the index of the Terms field it overrides
var overrideIndex = buildOverrideIndex()

var validate = newValidator()

func buildOverrideIndex() []int {
	index := make([]int, overridesType.NumField())
	for i := 0; i < overridesType.NumField(); i++ {
		of := overridesType.Field(i)
		tf, ok := termsType.FieldByName(of.Name)
		if !ok || of.Type.Kind() != reflect.Pointer || of.Type.Elem() != tf.Type {
			panic(fmt.Sprintf("override %s does not match terms schema", of.Name))
		}
		index[i] = tf.Index[0]
	}
	return index
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// FieldNames returns the json names of the terms in canonical order
func FieldNames() []string {
	names := make([]string, termsType.NumField())
	for i := range names {
		names[i] = jsonName(termsType.Field(i))
	}
	return names
}

// Validate checks value ranges and date ordering of absolute terms
func Validate(t *Terms) error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return malformed(field, "%s", reason)
	}

	return malformed("terms", "%s", err)
}
