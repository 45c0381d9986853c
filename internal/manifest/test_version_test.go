package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVersion(t *testing.T) {
	tests := []struct {
		raw   string
		exact string
		spec  string
	}{
		{"", "", ""},
		{"*", "", ""},
		{"latest", "", ""},
		{"1.2.3", "1.2.3", ""},
		{"v1.9.0", "v1.9.0", ""},
		{"==2.31.0", "2.31.0", ""},
		{"[13.0.1]", "13.0.1", ""},
		{"1.0.0-beta.2", "1.0.0-beta.2", ""},
		{"^4.17.1", "", "^4.17.1"},
		{"~> 7.0", "", "~> 7.0"},
		{">=3.9", "", ">=3.9"},
		{"[1.0,2.0)", "", "[1.0,2.0)"},
		{"1.2.x", "", "1.2.x"},
		{"1.+", "", "1.+"},
		{"==1.*", "", "==1.*"},
		{"${spring.version}", "", "${spring.version}"},
		{"git+https://github.com/a/b.git", "", "git+https://github.com/a/b.git"},
	}
	for _, tt := range tests {
		exact, spec := ClassifyVersion(tt.raw)
		if tt.exact == "" {
			assert.Nil(t, exact, tt.raw)
		} else if assert.NotNil(t, exact, tt.raw) {
			assert.Equal(t, tt.exact, *exact, tt.raw)
		}
		if tt.spec == "" {
			assert.Nil(t, spec, tt.raw)
		} else if assert.NotNil(t, spec, tt.raw) {
			assert.Equal(t, tt.spec, *spec, tt.raw)
		}
	}
}
