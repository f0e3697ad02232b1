package cgan

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// NormRandDense Return reference to tensor.Dense filled with normally distributed float64 values
//
// rng - random source (pass a seeded one to reproduce results)
// batchSize - Simply batch size
// n - Number of elements in each batch
// Resulting dense will have batchSize*n elements
func NormRandDense(rng *rand.Rand, batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// NoiseVolume Samples one latent vector of standard normals per batch entry
// and replicates it across the spatial dimensions, producing a
// (batchSize, noiseSize, height, width) tensor ready to be channel-concatenated
// with a background batch.
func NoiseVolume(rng *rand.Rand, batchSize, noiseSize, height, width int) *tensor.Dense {
	latents := NormRandDense(rng, batchSize, noiseSize)
	codes := latents.Data().([]float64)
	plane := height * width
	data := make([]float64, batchSize*noiseSize*plane)
	for b := 0; b < batchSize; b++ {
		for c := 0; c < noiseSize; c++ {
			v := codes[b*noiseSize+c]
			offset := (b*noiseSize + c) * plane
			for i := 0; i < plane; i++ {
				data[offset+i] = v
			}
		}
	}
	return tensor.New(tensor.WithShape(batchSize, noiseSize, height, width), tensor.WithBacking(data))
}
