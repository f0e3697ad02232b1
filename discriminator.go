package cgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// DiscriminatorNet Abstraction for discriminator part of conditional GAN. It's simple neural network actually.
//
// Input is a candidate image batch (real or synthetic) channel-concatenated
// with the background batch it was (or should have been) composited onto.
// Output is a single probability per sample, bounded in [0, 1].
type DiscriminatorNet struct {
	private *Network
}

// Discriminator Constructor for DiscriminatorNet
func Discriminator(Layers ...*Layer) *DiscriminatorNet {
	return &DiscriminatorNet{private: &Network{
		Name:   "discriminator",
		Layers: Layers,
	}}
}

// Out Returns reference to output node
func (net *DiscriminatorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *DiscriminatorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided candidate image batch and background batch
//
// candidate - node holding the image batch to judge, shaped (batch, channels, height, width)
// background - node holding the background image batch of the same shape
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
func (net *DiscriminatorNet) Fwd(candidate, background *gorgonia.Node, batchSize int) error {
	if candidate.Dims() != 4 {
		return fmt.Errorf("Discriminator's candidate input must have 4 dimensions, but got %d", candidate.Dims())
	}
	if background.Dims() != 4 {
		return fmt.Errorf("Discriminator's background input must have 4 dimensions, but got %d", background.Dims())
	}
	conditioned, err := gorgonia.Concat(1, candidate, background)
	if err != nil {
		return errors.Wrap(err, "Can't concatenate candidate and background over channel axis [Discriminator]")
	}
	gorgonia.WithName("discriminator_input")(conditioned)
	if err := net.private.Fwd(conditioned, batchSize); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return nil
}
