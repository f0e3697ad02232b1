package cgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GAN Conditional GAN assembled on a single expression graph.
//
// generatorPart - reference to Generator
// discriminatorPart - reference to Discriminator (lives on its own training graph)
// modifiedDiscriminator - copy of structure of Discriminator which learnables would be ignored during the training process
//
// The copied discriminator weight nodes are created with gorgonia.WithValue on
// the training discriminator's value tensors, so both graphs share the same
// backing arrays: every solver step applied to the discriminator on its
// training graph is immediately visible here. The generator's solver never
// steps the copies, so during the generator update the discriminator acts as
// a constant function - gradients flow through it into the generator only.
type GAN struct {
	generatorPart     *GeneratorNet
	discriminatorPart *DiscriminatorNet

	modifiedDiscriminator *DiscriminatorNet

	out           *gorgonia.Node
	learnables    gorgonia.Nodes
	learnablesGen gorgonia.Nodes
}

// NewGAN Constructor for GAN
//
// g - graph the generator was defined on
// definedGenerator - Generator (must be defined on g)
// definedDiscriminator - Discriminator defined on its own training graph
func NewGAN(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet) (*GAN, error) {
	definedGAN := GAN{
		generatorPart:     definedGenerator,
		discriminatorPart: definedDiscriminator,
		modifiedDiscriminator: &DiscriminatorNet{private: &Network{
			Name:   "gan_discriminator",
			Layers: make([]*Layer, len(definedDiscriminator.private.Layers)),
		}},
		learnablesGen: definedGenerator.Learnables(),
		learnables:    append(gorgonia.Nodes{}, definedGenerator.Learnables()...),
	}
	// Discriminator part for GAN
	for i, l := range definedDiscriminator.private.Layers {
		definedGAN.modifiedDiscriminator.private.Layers[i] = &Layer{
			Activation:    l.Activation,
			Options:       l.Options,
			Type:          l.Type,
			KernelHeight:  l.KernelHeight,
			KernelWidth:   l.KernelWidth,
			Padding:       l.Padding,
			Stride:        l.Stride,
			Dilation:      l.Dilation,
			ReshapeDims:   l.ReshapeDims,
			UpsampleScale: l.UpsampleScale,
			Epsilon:       l.Epsilon,
		}
		if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
			return nil, fmt.Errorf("Discriminator's Layer %d has nil weight node", i)
		}
		if l.WeightNode != nil {
			definedGAN.modifiedDiscriminator.private.Layers[i].WeightNode = gorgonia.NewTensor(g, gorgonia.Float64, l.WeightNode.Dims(), gorgonia.WithShape(l.WeightNode.Shape()...), gorgonia.WithName(l.WeightNode.Name()+"_gan"), gorgonia.WithValue(l.WeightNode.Value()))
			definedGAN.learnables = append(definedGAN.learnables, definedGAN.modifiedDiscriminator.private.Layers[i].WeightNode)
		}
		if l.BiasNode != nil {
			definedGAN.modifiedDiscriminator.private.Layers[i].BiasNode = gorgonia.NewTensor(g, gorgonia.Float64, l.BiasNode.Dims(), gorgonia.WithShape(l.BiasNode.Shape()...), gorgonia.WithName(l.BiasNode.Name()+"_gan"), gorgonia.WithValue(l.BiasNode.Value()))
			definedGAN.learnables = append(definedGAN.learnables, definedGAN.modifiedDiscriminator.private.Layers[i].BiasNode)
		}
	}
	return &definedGAN, nil
}

// Out Returns reference to output node
func (net *GAN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// Learnables Returns learnables nodes
func (net *GAN) Learnables() gorgonia.Nodes {
	return net.learnables
}

// GeneratorLearnables Returns learnables nodes of generator part
func (net *GAN) GeneratorLearnables() gorgonia.Nodes {
	return net.learnablesGen
}

// Fwd Initializates feedforward of the Generator's output through the frozen
// Discriminator copy, conditioned on the same background the Generator saw.
//
// background - background node on the GAN graph (the one fed to the Generator)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// Note: candidate input node is not needed since input for Discriminator is just Generator's output
func (net *GAN) Fwd(background *gorgonia.Node, batchSize int) error {
	if net.generatorPart.Out() == nil {
		return fmt.Errorf("Generator part of GAN must be fed forward first")
	}
	if len(net.modifiedDiscriminator.private.Layers) == 0 {
		return fmt.Errorf("GAN must have one layer in Discriminator part atleast")
	}
	if err := net.modifiedDiscriminator.Fwd(net.generatorPart.Out(), background, batchSize); err != nil {
		return errors.Wrap(err, "[GAN, Discriminator part]")
	}
	net.out = net.modifiedDiscriminator.Out()
	return nil
}
