package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveCode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "Acme", want: "ACME"},
		{name: "strips punctuation and spaces", in: "Acme, Inc.", want: "ACMEINC"},
		{name: "keeps digits", in: "42 Widgets", want: "42WIDGETS"},
		{name: "truncates to twelve", in: "International Business Machines", want: "INTERNATIONA"},
		{name: "drops non ascii", in: "Café Zürich", want: "CAFZRICH"},
		{name: "empty when nothing usable", in: "!!! ???", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveCode(tt.in))
		})
	}
}

func TestDeriveCodeIsDeterministicAndMayCollide(t *testing.T) {
	assert.Equal(t, DeriveCode("Acme Inc"), DeriveCode("ACME-INC"))
}
