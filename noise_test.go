package cgan

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseVolumeReplicatesOverSpace(t *testing.T) {
	volume := NoiseVolume(rand.New(rand.NewSource(7)), 2, 3, 4, 4)
	require.Equal(t, []int{2, 3, 4, 4}, []int(volume.Shape()))

	data := volume.Data().([]float64)
	plane := 4 * 4
	for b := 0; b < 2; b++ {
		for c := 0; c < 3; c++ {
			offset := (b*3 + c) * plane
			for i := 1; i < plane; i++ {
				require.Equal(t, data[offset], data[offset+i], "channel plane must hold a single replicated value")
			}
		}
	}
	// Different channels carry independent draws
	assert.NotEqual(t, data[0], data[plane])
}

func TestNoiseVolumeDeterministic(t *testing.T) {
	a := NoiseVolume(rand.New(rand.NewSource(7)), 2, 3, 4, 4)
	b := NoiseVolume(rand.New(rand.NewSource(7)), 2, 3, 4, 4)
	require.Equal(t, a.Data().([]float64), b.Data().([]float64))
}

func TestNormRandDenseShape(t *testing.T) {
	d := NormRandDense(rand.New(rand.NewSource(1)), 4, 10)
	require.Equal(t, []int{4, 10}, []int(d.Shape()))
	require.Len(t, d.Data().([]float64), 40)
}

func TestNoiseVolumeMatchesLatentDraws(t *testing.T) {
	latents := NormRandDense(rand.New(rand.NewSource(7)), 2, 3)
	volume := NoiseVolume(rand.New(rand.NewSource(7)), 2, 3, 4, 4)

	codes := latents.Data().([]float64)
	data := volume.Data().([]float64)
	plane := 4 * 4
	for i, v := range codes {
		require.Equal(t, v, data[i*plane], "plane %d must replicate latent draw %d", i, i)
	}
}
