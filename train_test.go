package cgan

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
)

func makeSyntheticFolder(rng *rand.Rand, n, channels, size int) *ImageFolder {
	samples := make([][]float64, n)
	for i := range samples {
		sample := make([]float64, channels*size*size)
		for j := range sample {
			sample[j] = rng.Float64()*2.0 - 1.0
		}
		samples[i] = sample
	}
	return &ImageFolder{
		Root:     "synthetic",
		Size:     size,
		Channels: channels,
		samples:  samples,
	}
}

func snapshotLearnables(t *testing.T, nodes gorgonia.Nodes) [][]float64 {
	t.Helper()
	out := make([][]float64, len(nodes))
	for i, n := range nodes {
		data, ok := n.Value().Data().([]float64)
		require.True(t, ok, "learnable %s must be backed by []float64", n.Name())
		out[i] = append([]float64{}, data...)
	}
	return out
}

func TestStepParameterIsolation(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(1337))
	trainer, err := NewTrainer(cfg, rng)
	require.NoError(t, err)
	defer trainer.Close()

	folder := makeSyntheticFolder(rng, 4, cfg.Channels, cfg.ImageSize)
	real, err := folder.Batch([]int{0, 1})
	require.NoError(t, err)
	background, err := folder.Batch([]int{2, 3})
	require.NoError(t, err)

	genBefore := snapshotLearnables(t, trainer.gan.GeneratorLearnables())
	disBefore := snapshotLearnables(t, trainer.discriminator.Learnables())

	// Discriminator update must leave every generator parameter bit-identical
	disLoss, err := trainer.stepDiscriminator(real, background)
	require.NoError(t, err)
	require.False(t, math.IsNaN(disLoss))
	assert.Equal(t, genBefore, snapshotLearnables(t, trainer.gan.GeneratorLearnables()))
	disAfter := snapshotLearnables(t, trainer.discriminator.Learnables())
	assert.NotEqual(t, disBefore, disAfter)

	// Generator update must leave every discriminator parameter bit-identical
	genLoss, err := trainer.stepGenerator(background)
	require.NoError(t, err)
	require.False(t, math.IsNaN(genLoss))
	assert.Equal(t, disAfter, snapshotLearnables(t, trainer.discriminator.Learnables()))
	assert.NotEqual(t, genBefore, snapshotLearnables(t, trainer.gan.GeneratorLearnables()))
}

func TestFrozenDiscriminatorSharesWeights(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(99))
	trainer, err := NewTrainer(cfg, rng)
	require.NoError(t, err)
	defer trainer.Close()

	folder := makeSyntheticFolder(rng, 4, cfg.Channels, cfg.ImageSize)
	real, err := folder.Batch([]int{0, 1})
	require.NoError(t, err)
	background, err := folder.Batch([]int{2, 3})
	require.NoError(t, err)

	_, err = trainer.stepDiscriminator(real, background)
	require.NoError(t, err)

	// The copies on the GAN graph share backing with the training
	// discriminator, so the solver step must be visible on both graphs
	for i, l := range trainer.discriminator.private.Layers {
		frozen := trainer.gan.modifiedDiscriminator.private.Layers[i]
		if l.WeightNode != nil {
			assert.Equal(t, l.WeightNode.Value().Data(), frozen.WeightNode.Value().Data(), "layer #%d weights diverged", i)
		}
		if l.BiasNode != nil {
			assert.Equal(t, l.BiasNode.Value().Data(), frozen.BiasNode.Value().Data(), "layer #%d bias diverged", i)
		}
	}
}

func TestTrainEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.OutputDir = t.TempDir()
	rng := rand.New(rand.NewSource(2024))

	trainer, err := NewTrainer(cfg, rng)
	require.NoError(t, err)
	defer trainer.Close()

	products := makeSyntheticFolder(rng, 2, cfg.Channels, cfg.ImageSize)
	backgrounds := makeSyntheticFolder(rng, 2, cfg.Channels, cfg.ImageSize)

	require.NoError(t, trainer.Train(products, backgrounds))

	// 2 products with batch size 2 and 1 epoch is exactly one step
	genLosses, disLosses := trainer.LossHistory()
	require.Len(t, genLosses, 1)
	require.Len(t, disLosses, 1)
	require.False(t, math.IsNaN(genLosses[0]) || math.IsInf(genLosses[0], 0))
	require.False(t, math.IsNaN(disLosses[0]) || math.IsInf(disLosses[0], 0))

	// Checkpoint cadence of 1 epoch writes exactly one grid
	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "epoch_1.png", entries[0].Name())
	_, err = os.Stat(filepath.Join(cfg.OutputDir, "epoch_1.png"))
	require.NoError(t, err)
}

func TestNewTrainerRejectsBadImageSize(t *testing.T) {
	cfg := testConfig()
	cfg.ImageSize = 10
	_, err := NewTrainer(cfg, rand.New(rand.NewSource(1)))
	require.Error(t, err)
}

func TestNewTrainerRejectsBadCadences(t *testing.T) {
	cfg := testConfig()
	cfg.LogEvery = 0
	_, err := NewTrainer(cfg, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Logging cadence")

	cfg = testConfig()
	cfg.CheckpointEvery = 0
	_, err = NewTrainer(cfg, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Checkpoint cadence")
}
