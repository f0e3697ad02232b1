package cgan

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// BuildGenerator Defines the conditional generator stack on the provided graph.
//
// Input is the noise volume concatenated with the background over the channel
// axis: (batch, noise_size+channels, s, s). Two stride-2 convolution blocks
// compress it to s/4, two upsample+convolution blocks bring it back to s, and
// a final convolution with Tanh produces the synthetic image in [-1, 1] with
// the same spatial size and channel count as the background. Every
// convolution is followed by per-batch normalization and a rectifier, except
// the output one. Image size must be divisible by 8.
//
//	input(nz+c, s, s) => conv4x4/2(ngf, s/2) => conv4x4/2(2*ngf, s/4)
//	                  => up(s/2)+conv3x3(ngf) => up(s)+conv3x3(ngf)
//	                  => conv3x3(c, s, s) => tanh
func BuildGenerator(g *gorgonia.ExprGraph, cfg Config) *GeneratorNet {
	ngf := cfg.BaseWidth
	inChannels := cfg.NoiseSize + cfg.Channels

	gen_w0 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(ngf, inChannels, 4, 4), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w1 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(2*ngf, ngf, 4, 4), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w2 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(ngf, 2*ngf, 3, 3), gorgonia.WithName("generator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w3 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(ngf, ngf, 3, 3), gorgonia.WithName("generator_w3"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w4 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.Channels, ngf, 3, 3), gorgonia.WithName("generator_w4"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_b4 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(1, cfg.Channels, 1, 1), gorgonia.WithName("generator_b4"), gorgonia.WithInit(gorgonia.Zeroes()))

	return Generator(
		[]*Layer{
			{
				WeightNode:   gen_w0,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 4,
				KernelWidth:  4,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "generator_bn0", ngf, Rectify),
			{
				WeightNode:   gen_w1,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 4,
				KernelWidth:  4,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "generator_bn1", 2*ngf, Rectify),
			{
				Type:          LayerUpsample,
				Activation:    NoActivation,
				UpsampleScale: 2,
			},
			{
				WeightNode:   gen_w2,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 3,
				KernelWidth:  3,
				Padding:      []int{1, 1},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "generator_bn2", ngf, Rectify),
			{
				Type:          LayerUpsample,
				Activation:    NoActivation,
				UpsampleScale: 2,
			},
			{
				WeightNode:   gen_w3,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 3,
				KernelWidth:  3,
				Padding:      []int{1, 1},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "generator_bn3", ngf, Rectify),
			{
				WeightNode:   gen_w4,
				BiasNode:     gen_b4,
				Type:         LayerConvolutional,
				Activation:   Tanh,
				KernelHeight: 3,
				KernelWidth:  3,
				Padding:      []int{1, 1},
				Stride:       []int{1, 1},
				Dilation:     []int{1, 1},
			},
		}...,
	)
}

// BuildDiscriminator Defines the conditional discriminator stack on the provided graph.
//
// Input is the candidate image concatenated with the background over the
// channel axis: (batch, 2*channels, s, s). Three stride-2 convolution blocks
// with leaky rectification compress it to s/8, then a linear layer with
// sigmoid maps the flattened features to a single bounded probability per
// sample. Per-batch normalization on every block except the first one.
//
//	input(2*c, s, s) => conv4x4/2(ndf, s/2) => conv4x4/2(2*ndf, s/4)
//	                 => conv4x4/2(4*ndf, s/8) => flatten => linear(1) => sigmoid
func BuildDiscriminator(g *gorgonia.ExprGraph, cfg Config) *DiscriminatorNet {
	ndf := cfg.BaseWidth
	inChannels := 2 * cfg.Channels
	featSize := cfg.ImageSize / 8
	leaky := []Options{{Alpha: 0.2}}

	dis_w0 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(ndf, inChannels, 4, 4), gorgonia.WithName("discriminator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w1 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(2*ndf, ndf, 4, 4), gorgonia.WithName("discriminator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w2 := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(4*ndf, 2*ndf, 4, 4), gorgonia.WithName("discriminator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w3 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 4*ndf*featSize*featSize), gorgonia.WithName("discriminator_w3"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_b3 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 1), gorgonia.WithName("discriminator_b3"), gorgonia.WithInit(gorgonia.Zeroes()))

	return Discriminator(
		[]*Layer{
			{
				WeightNode:   dis_w0,
				Type:         LayerConvolutional,
				Activation:   LeakyRectify,
				Options:      leaky,
				KernelHeight: 4,
				KernelWidth:  4,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
				Dilation:     []int{1, 1},
			},
			{
				WeightNode:   dis_w1,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 4,
				KernelWidth:  4,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "discriminator_bn1", 2*ndf, LeakyRectify, leaky...),
			{
				WeightNode:   dis_w2,
				Type:         LayerConvolutional,
				Activation:   NoActivation,
				KernelHeight: 4,
				KernelWidth:  4,
				Padding:      []int{1, 1},
				Stride:       []int{2, 2},
				Dilation:     []int{1, 1},
			},
			batchNormLayer(g, "discriminator_bn2", 4*ndf, LeakyRectify, leaky...),
			{
				Type:       LayerFlatten,
				Activation: NoActivation,
			},
			{
				WeightNode: dis_w3,
				BiasNode:   dis_b3,
				Type:       LayerLinear,
				Activation: Sigmoid,
			},
		}...,
	)
}

func batchNormLayer(g *gorgonia.ExprGraph, name string, channels int, activation ActivationFunc, opts ...Options) *Layer {
	shape := tensor.Shape{1, channels, 1, 1}
	gamma := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(shape...), gorgonia.WithName(fmt.Sprintf("%s_gamma", name)), gorgonia.WithInit(gorgonia.Ones()))
	beta := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(shape...), gorgonia.WithName(fmt.Sprintf("%s_beta", name)), gorgonia.WithInit(gorgonia.Zeroes()))
	return &Layer{
		WeightNode: gamma,
		BiasNode:   beta,
		Type:       LayerBatchNorm,
		Activation: activation,
		Options:    opts,
	}
}
