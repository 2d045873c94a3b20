package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteSynthetic(t *testing.T) {
	t.Setenv("RANN_DATASET_SYNTHETIC_N", "300")
	t.Setenv("RANN_DATASET_SYNTHETIC_DIM", "4")
	t.Setenv("RANN_DATASET_SYNTHETIC_QUERIES", "10")
	t.Setenv("RANN_GRAPH_N_NEIGHBORS", "5")
	t.Setenv("RANN_GRAPH_SEED", "3")
	t.Setenv("RANN_EVAL_K", "5")

	require.NoError(t, Execute(nil))
}

func TestExecuteErrors(t *testing.T) {
	assert.Error(t, Execute([]string{"-no-such-flag"}))
	assert.Error(t, Execute([]string{"-config", filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, Execute([]string{"-dataset", "missing-dataset"}))
}
