package language

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"src/Program.cs", "C#", true},
		{"web/App.TSX", "TypeScript", true},
		{"main.go", "Go", true},
		{"infra/main.tf", "HCL", true},
		{"Dockerfile", "Dockerfile", true},
		{"deploy/Dockerfile.prod", "Dockerfile", true},
		{"Makefile", "Makefile", true},
		{"LICENSE", "", false},
		{"assets/logo.png", "", false},
		{".gitignore", "", false},
	}
	for _, tt := range tests {
		got, ok := ForPath(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".cs", Extension("a/b/Foo.CS"))
	assert.Equal(t, ".gz", Extension("dist/pkg.tar.gz"))
	assert.Equal(t, "", Extension("README"))
	assert.Equal(t, "", Extension(".env"))
	assert.Equal(t, ".json", Extension("dir.v2/package.json"))
}
