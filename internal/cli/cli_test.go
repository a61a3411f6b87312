package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOverrides(t *testing.T) {
	flagPlatform = "gitlab"
	flagProvider = "anthropic"
	flagModel = ""
	flagBatchSize = 3
	flagNoCache = true
	flagNoVerify = false
	t.Cleanup(func() {
		flagPlatform, flagProvider, flagModel = "", "", ""
		flagBatchSize = 0
		flagNoCache, flagNoVerify = false, false
	})

	m := buildOverrides()

	assert.Equal(t, "gitlab", m["platform"])
	assert.Equal(t, "anthropic", m["provider"])
	assert.Equal(t, "3", m["batchSize"])
	assert.Equal(t, "true", m["noCache"])
	_, hasModel := m["model"]
	assert.False(t, hasModel, "unset flags produce no override")
	_, hasNoVerify := m["noVerify"]
	assert.False(t, hasNoVerify)
}

func TestCacheSubcommands(t *testing.T) {
	var names []string
	for _, c := range cacheCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"clear", "expire", "stats"}, names)
}
