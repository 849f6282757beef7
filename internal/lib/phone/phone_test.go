package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid("+263771234567"))
	assert.True(t, Valid("+1234567890"))
	assert.False(t, Valid("263771234567"))
	assert.False(t, Valid("+123456789"))
	assert.False(t, Valid("+1234567890123456"))
	assert.False(t, Valid("+26377abc4567"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{name: "already e164", raw: "+263771234567", want: "+263771234567", wantOK: true},
		{name: "local with trunk zero", raw: "0771 234 567", want: "+263771234567", wantOK: true},
		{name: "international prefix", raw: "00263771234567", want: "+263771234567", wantOK: true},
		{name: "country code without plus", raw: "263771234567", want: "+263771234567", wantOK: true},
		{name: "bare subscriber number", raw: "771234567", want: "+263771234567", wantOK: true},
		{name: "punctuation", raw: "(077) 123-4567", want: "+263771234567", wantOK: true},
		{name: "empty", raw: "  ", wantOK: false},
		{name: "too short", raw: "12345", wantOK: false},
		{name: "letters", raw: "call me", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw, "263")
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
