package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
training:
  episodes: 30
  max_steps: 50
  visualize_every: 10
  checkpoint_prefix: clitest
  archive_dir: %s
checkpoint:
  backend: file
  dir: %s
viz:
  kind: plot
  dir: %s
log:
  level: error
`, filepath.Join(dir, "archive"), filepath.Join(dir, "ckpt"), filepath.Join(dir, "viz"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTrainEvaluateInspect(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := execute(t, "train", "--config", cfgPath)
	require.NoError(t, err)

	for _, name := range []string{"clitest-agent0.ckpt", "clitest-agent1.ckpt"} {
		assert.FileExists(t, filepath.Join(dir, "ckpt", name))
	}
	plots, err := filepath.Glob(filepath.Join(dir, "viz", "best_*.png"))
	require.NoError(t, err)
	assert.Len(t, plots, 3)

	out, err := execute(t, "evaluate", "--config", cfgPath, "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "episodes 5")

	out, err = execute(t, "inspect", "checkpoint", "clitest-agent1", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "tabular")
	assert.Contains(t, out, "[10 3]")

	out, err = execute(t, "inspect", "archive", "--config", cfgPath, "--render", "--color=false")
	require.NoError(t, err)
	assert.Contains(t, out, "EPISODE")
	assert.Contains(t, out, "best episode")
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := execute(t, "train", "--config", cfgPath, "--episodes", "5", "--checkpoint-backend", "none", "--viz", "none")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(dir, "ckpt"))
	assert.NoDirExists(t, filepath.Join(dir, "viz"))
}

func TestEvaluateRequiresStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	_, err := execute(t, "evaluate", "--config", cfgPath, "--checkpoint-backend", "none")
	assert.ErrorContains(t, err, "checkpoint.backend")
}

func TestInvalidConfigFails(t *testing.T) {
	_, err := execute(t, "train", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = execute(t, "train", "--config", writeConfig(t, dir), "--stepping", "sideways")
	assert.Error(t, err)
}
