package cgan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlotLosses(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "losses.png")
	gen := []float64{1.2, 1.1, 0.9}
	dis := []float64{0.7, 0.65, 0.72}
	require.NoError(t, PlotLosses(gen, dis, fname))
	info, err := os.Stat(fname)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestPlotLossesMismatchedHistories(t *testing.T) {
	require.Error(t, PlotLosses([]float64{1.0}, []float64{1.0, 2.0}, "unused.png"))
	require.Error(t, PlotLosses(nil, nil, "unused.png"))
}
