package cgan

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func testConfig() Config {
	return Config{
		NoiseSize:       4,
		BaseWidth:       2,
		ImageSize:       8,
		Channels:        3,
		BatchSize:       2,
		Epochs:          1,
		LearningRate:    0.001,
		Beta1:           0.5,
		Beta2:           0.999,
		LogEvery:        1,
		CheckpointEvery: 1,
		SampleCount:     6,
		SamplesPerRow:   5,
	}
}

func randImageBatch(rng *rand.Rand, batch, channels, size int) *tensor.Dense {
	data := make([]float64, batch*channels*size*size)
	for i := range data {
		data[i] = rng.Float64()*2.0 - 1.0
	}
	return tensor.New(tensor.WithShape(batch, channels, size, size), tensor.WithBacking(data))
}

func TestGeneratorOutputMatchesBackgroundShape(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(13))

	g := gorgonia.NewGraph()
	gen := BuildGenerator(g, cfg)
	noise := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.NoiseSize, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("noise"))
	background := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("background"))
	require.NoError(t, gen.Fwd(noise, background, cfg.BatchSize))

	// Shape agreement is known statically
	require.Equal(t, []int{cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize}, []int(gen.Out().Shape()))

	require.NoError(t, gorgonia.Let(noise, NoiseVolume(rng, cfg.BatchSize, cfg.NoiseSize, cfg.ImageSize, cfg.ImageSize)))
	require.NoError(t, gorgonia.Let(background, randImageBatch(rng, cfg.BatchSize, cfg.Channels, cfg.ImageSize)))
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	// Terminal Tanh bounds the synthetic image to [-1, 1]
	for _, v := range gen.Out().Value().Data().([]float64) {
		require.False(t, math.IsNaN(v))
		require.GreaterOrEqual(t, v, -1.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestDiscriminatorOutputBounds(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(17))

	g := gorgonia.NewGraph()
	dis := BuildDiscriminator(g, cfg)
	candidate := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("candidate"))
	background := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("background"))
	require.NoError(t, dis.Fwd(candidate, background, cfg.BatchSize))

	// One scalar verdict per sample
	require.Equal(t, []int{cfg.BatchSize, 1}, []int(dis.Out().Shape()))

	require.NoError(t, gorgonia.Let(candidate, randImageBatch(rng, cfg.BatchSize, cfg.Channels, cfg.ImageSize)))
	require.NoError(t, gorgonia.Let(background, randImageBatch(rng, cfg.BatchSize, cfg.Channels, cfg.ImageSize)))
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	verdicts := dis.Out().Value().Data().([]float64)
	require.Len(t, verdicts, cfg.BatchSize)
	for _, v := range verdicts {
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 1.0)
	}
}

func TestGeneratorRejectsFlatInputs(t *testing.T) {
	cfg := testConfig()
	g := gorgonia.NewGraph()
	gen := BuildGenerator(g, cfg)
	noise := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, cfg.NoiseSize), gorgonia.WithName("noise"))
	background := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("background"))
	require.Error(t, gen.Fwd(noise, background, cfg.BatchSize))
}
