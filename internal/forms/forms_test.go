package forms

import (
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timeRule = Rule{
	Label:     "L'orario",
	Pattern:   regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`),
	PatternIT: "Usa il formato HH:MM",
}

func TestValidate(t *testing.T) {
	rules := Rules{
		"name":      {Label: "Il nome", Required: true, MinLength: 2},
		"email":     {Email: true},
		"domain":    {Label: "Il dominio", Required: true, URL: true},
		"frequency": {Label: "La frequenza", OneOf: []string{"daily", "weekly"}},
		"time":      timeRule,
		"client_id": {Label: "Il cliente", Integer: true},
	}

	tests := []struct {
		name   string
		values url.Values
		failed map[string]string
	}{
		{
			name:   "all good",
			values: url.Values{"name": {"Acme"}, "email": {"info@acme.it"}, "domain": {"acme.it"}, "time": {"09:30"}},
		},
		{
			name:   "missing required",
			values: url.Values{"name": {"  "}},
			failed: map[string]string{"name": "Il nome è obbligatorio", "domain": "Il dominio è obbligatorio"},
		},
		{
			name:   "bad formats",
			values: url.Values{"name": {"A"}, "email": {"nope"}, "domain": {"not a url"}, "frequency": {"yearly"}, "time": {"25:00"}, "client_id": {"x"}},
			failed: map[string]string{
				"name":      "Il nome deve contenere almeno 2 caratteri",
				"email":     "Inserisci un indirizzo email valido",
				"domain":    "Inserisci un URL valido",
				"frequency": "Seleziona un valore valido",
				"time":      "Usa il formato HH:MM",
				"client_id": "Il cliente deve essere un numero",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.values, rules)
			if tt.failed == nil {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			assert.Equal(t, Errors(tt.failed), errs)
		})
	}
}

func TestErrors_Error(t *testing.T) {
	errs := Errors{"b": "due", "a": "uno"}
	assert.Equal(t, "validation failed: a: uno; b: due", errs.Error())
	assert.True(t, errs.Has("a"))
	assert.False(t, errs.Has("c"))
}
