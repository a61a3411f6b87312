package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gavelhq/gavel/internal/config"
)

func TestExcluded(t *testing.T) {
	rules := config.Default().Exclusions

	tests := []struct {
		path string
		want bool
	}{
		{"src/app.py", false},
		{"node_modules/react/index.js", true},
		{"vendor/lib.js", true},
		{"packages/vendor/util.go", true},
		{"src/test_handlers.py", true},
		{"assets/app.min.js", true},
		{"package-lock.json", true},
		{"frontend/package-lock.json", true},
		{"Cargo.lock", true},
		{"src/main.go", false},
		{"docs/guide.md", false},
		// The basename never matches directory rules, and near-miss
		// directory names stay in.
		{"src/vendored/x.go", false},
		// But the "vendor." filename prefix rule still applies.
		{"src/vendor.bundle.js", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Excluded(tt.path, rules), "path %s", tt.path)
	}
}

func TestExcluded_CustomRules(t *testing.T) {
	rules := config.ExclusionConfig{
		Directories:  []string{"generated"},
		FilePrefixes: []string{"auto_"},
		FilePatterns: []string{"*.pb.go"},
	}

	assert.True(t, Excluded("api/generated/client.go", rules))
	assert.True(t, Excluded("pkg/auto_bindings.go", rules))
	assert.True(t, Excluded("proto/service.pb.go", rules))
	assert.False(t, Excluded("api/handlers/client.go", rules))
}
