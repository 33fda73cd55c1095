// Package forms validates submitted form values against per-field rules and
// reports failures as Italian messages keyed by field name.
package forms

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seoaudit/seoconsole/internal/format"
)

// Rule constrains one named field. Zero values disable a check.
type Rule struct {
	Label     string
	Required  bool
	MinLength int
	MaxLength int
	Email     bool
	URL       bool
	Pattern   *regexp.Regexp
	PatternIT string
	OneOf     []string
	Integer   bool
}

type Rules map[string]Rule

// Errors maps field names to the first failing message for that field.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e[f]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

var validate = validator.New()

// Validate checks values against rules. Empty optional fields skip every other
// check. The returned map is nil when everything passes.
func Validate(values url.Values, rules Rules) Errors {
	errs := Errors{}

	for field, rule := range rules {
		value := strings.TrimSpace(values.Get(field))
		if msg := check(value, rule); msg != "" {
			errs[field] = msg
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func check(value string, rule Rule) string {
	label := rule.Label
	if label == "" {
		label = "Il campo"
	}

	if value == "" {
		if rule.Required {
			return fmt.Sprintf("%s è obbligatorio", label)
		}
		return ""
	}

	if rule.MinLength > 0 && validate.Var(value, "min="+strconv.Itoa(rule.MinLength)) != nil {
		return fmt.Sprintf("%s deve contenere almeno %d caratteri", label, rule.MinLength)
	}
	if rule.MaxLength > 0 && validate.Var(value, "max="+strconv.Itoa(rule.MaxLength)) != nil {
		return fmt.Sprintf("%s non può superare %d caratteri", label, rule.MaxLength)
	}
	if rule.Email && validate.Var(value, "email") != nil {
		return "Inserisci un indirizzo email valido"
	}
	if rule.URL && !format.ValidURL(value) {
		return "Inserisci un URL valido"
	}
	if rule.Integer && validate.Var(value, "number") != nil {
		return fmt.Sprintf("%s deve essere un numero", label)
	}
	if len(rule.OneOf) > 0 && validate.Var(value, "oneof="+strings.Join(rule.OneOf, " ")) != nil {
		return "Seleziona un valore valido"
	}
	if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		if rule.PatternIT != "" {
			return rule.PatternIT
		}
		return fmt.Sprintf("%s non è nel formato corretto", label)
	}
	return ""
}
