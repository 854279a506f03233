package cli

import (
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/klauern/feedsync/internal/model"
)

func TestVersionCommandText(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "feedsync version "+Version, lines[0])
	for i, label := range []string{"commit:", "built:", "go:", "guides format:"} {
		line := lines[i+1]
		assert.True(t, strings.HasPrefix(line, "  "+label), "line %d = %q", i+2, line)
	}
	assert.Contains(t, out, runtime.Version())
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCommandFormats(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	Version, Commit = "1.2.3", "abc1234"
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	tests := map[string]struct {
		args      []string
		unmarshal func([]byte, any) error
	}{
		"json": {args: []string{"version", "--format", "json"}, unmarshal: json.Unmarshal},
		"yaml": {args: []string{"version", "-f", "yaml"}, unmarshal: yaml.Unmarshal},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)

			var info buildInfo
			require.NoError(t, tt.unmarshal([]byte(out), &info))
			assert.Equal(t, "1.2.3", info.Version)
			assert.Equal(t, "abc1234", info.Commit)
			assert.Equal(t, model.DocumentVersion, info.DocumentVersion)
		})
	}

	_, err := runCLI(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestVersionFlagUsesVersion(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "feedsync")
}
