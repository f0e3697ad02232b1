package cgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GeneratorNet Abstraction for generator part of conditional GAN.
//
// Input is a noise volume (latent vector replicated over the spatial
// dimensions) channel-concatenated with a background image batch. Output is a
// synthetic image batch with the same spatial size and channel count as the
// background.
type GeneratorNet struct {
	private *Network
}

// Generator Constructor for GeneratorNet
func Generator(Layers ...*Layer) *GeneratorNet {
	return &GeneratorNet{private: &Network{
		Name:   "generator",
		Layers: Layers,
	}}
}

// Out Returns reference to output node
func (net *GeneratorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided noise volume and background batch
//
// noise - node holding the replicated latent vectors, shaped (batch, noise_size, height, width)
// background - node holding the background image batch, shaped (batch, channels, height, width)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
func (net *GeneratorNet) Fwd(noise, background *gorgonia.Node, batchSize int) error {
	if noise.Dims() != 4 {
		return fmt.Errorf("Generator's noise input must have 4 dimensions, but got %d", noise.Dims())
	}
	if background.Dims() != 4 {
		return fmt.Errorf("Generator's background input must have 4 dimensions, but got %d", background.Dims())
	}
	conditioned, err := gorgonia.Concat(1, noise, background)
	if err != nil {
		return errors.Wrap(err, "Can't concatenate noise and background over channel axis [Generator]")
	}
	gorgonia.WithName("generator_input")(conditioned)
	if err := net.private.Fwd(conditioned, batchSize); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}
