package httpgin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEtagMatches(t *testing.T) {
	tag := weakETag([]byte(`{"seats":[]}`))
	strong := tag[2:]

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{"empty", "", false},
		{"exact", tag, true},
		{"strong form", strong, true},
		{"wildcard", "*", true},
		{"in list", `W/"other", ` + tag, true},
		{"different", `W/"other"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, etagMatches(tt.header, tag))
		})
	}
}

func TestWeakETag_Stable(t *testing.T) {
	a := weakETag([]byte("x"))
	assert.Equal(t, a, weakETag([]byte("x")))
	assert.NotEqual(t, a, weakETag([]byte("y")))
	assert.Regexp(t, `^W/"[A-Za-z0-9_-]+"$`, a)
}
