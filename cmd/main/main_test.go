package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alias-service/internal/alias/model"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "import", "migrate", "serve"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestRunCmd_ThresholdDefaultsToConfig(t *testing.T) {
	cmd := newRunCmd(&app{})
	fl := cmd.Flags().Lookup("threshold")
	require.NotNil(t, fl)
	assert.Equal(t, "0", fl.DefValue)
	assert.Contains(t, fl.Usage, "ALIAS_THRESHOLD")
}

func TestPersistError(t *testing.T) {
	assert.NoError(t, persistError(model.PersistReport{Written: 3}, 3))

	err := persistError(model.PersistReport{Written: 1, Skipped: 2}, 3)
	assert.EqualError(t, err, "2 of 3 alias writes skipped")

	err = persistError(model.PersistReport{Failures: []model.WriteFailure{{RecordID: "g1"}}}, 3)
	assert.EqualError(t, err, "1 of 3 alias writes failed")

	err = persistError(model.PersistReport{Skipped: 1, Failures: []model.WriteFailure{{RecordID: "g1"}}}, 3)
	assert.EqualError(t, err, "1 of 3 alias writes failed, 1 skipped")
}

func TestRunCmd_DryRunFromFiles(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LOG_FILE", filepath.Join(dir, "alias.log"))
	t.Setenv("ALIAS_THRESHOLD", "0.9")

	g := filepath.Join(dir, "gibbo.csv")
	s := filepath.Join(dir, "sampars.csv")
	report := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(g, []byte("id,name\ng1,Milk 1L\n"), 0o644))
	require.NoError(t, os.WriteFile(s, []byte("id,name\ns1,Milk 1 Liter\n"), 0o644))

	root := newRootCmd()
	root.SetArgs([]string{"run", "--dry-run", "--threshold", "0.7",
		"--file", "gibbo=" + g, "--file", "sampars=" + s, "--report", report})
	require.NoError(t, root.ExecuteContext(context.Background()))

	raw, err := os.ReadFile(report)
	require.NoError(t, err)
	var out struct {
		Plan    model.Result        `json:"plan"`
		Persist model.PersistReport `json:"persist"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, 0.7, out.Plan.Opts.Threshold, "flag wins over env")
	assert.Equal(t, 2, out.Plan.Stats.Records)
	assert.Equal(t, 1, out.Plan.Stats.Targets)
	assert.Equal(t, 1, out.Persist.Written)
}
