package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceFlag(t *testing.T) {
	assert.Equal(t, "ssl", ReduceFlag("ssl"))
	assert.Equal(t, "ssl", ReduceFlag("+ssl"))
	assert.Equal(t, "ssl", ReduceFlag("-ssl"))
	assert.Equal(t, "", ReduceFlag(""))
	// only one sign is stripped
	assert.Equal(t, "-ssl", ReduceFlag("--ssl"))
}

func TestClassify(t *testing.T) {
	iuse := []string{"+acl", "gpm", "-minimal", "nls", "python", "vim-pager"}
	pkguse := []string{"python", "nls", "-gpm"}
	use := []string{"acl", "python"}

	byName := make(map[string]FlagState)
	for _, cf := range Classify(iuse, pkguse, use) {
		byName[cf.Name] = cf.State
	}

	assert.Equal(t, FlagSelectedEnabled, byName["python"])
	assert.Equal(t, FlagSelectedNotEnabled, byName["nls"])
	assert.Equal(t, FlagEnabledNotSelected, byName["acl"])
	assert.Equal(t, FlagManuallyDisabled, byName["gpm"])
	assert.Equal(t, FlagDisabled, byName["minimal"])
	assert.Equal(t, FlagDisabled, byName["vim-pager"])
}

func TestClassifyEmpty(t *testing.T) {
	assert.Empty(t, Classify(nil, nil, nil))
	assert.Empty(t, Classify(nil, []string{"ssl"}, []string{"ssl"}))
}

func TestClassifyKeepsIuseOrder(t *testing.T) {
	flags := Classify([]string{"zlib", "acl", "+minimal"}, nil, nil)
	names := make([]string, 0, len(flags))
	for _, cf := range flags {
		names = append(names, cf.Name)
	}
	assert.Equal(t, []string{"zlib", "acl", "minimal"}, names)
}
