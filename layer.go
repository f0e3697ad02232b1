package cgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Layer Just an alias to Weight+Bias+ActivationFunction combo
//
// For convolutional layers WeightNode is the kernel tensor and BiasNode (optional)
// must be shaped (1, channels, 1, 1). For batch normalization layers WeightNode
// is the learnable scale and BiasNode the learnable shift, both shaped
// (1, channels, 1, 1).
type Layer struct {
	WeightNode *gorgonia.Node
	BiasNode   *gorgonia.Node
	Activation ActivationFunc
	Options    []Options
	Type       LayerType

	KernelHeight int
	KernelWidth  int
	Padding      []int
	Stride       []int
	Dilation     []int
	ReshapeDims  []int

	// Scale factor for upsample layers
	UpsampleScale int
	// Numerical stability term for batch normalization layers
	Epsilon float64
}

type LayerType uint16

const (
	LayerLinear = LayerType(iota)
	LayerFlatten
	LayerConvolutional
	LayerMaxpool
	LayerReshape
	LayerUpsample
	LayerBatchNorm
)

var (
	allowedNoWeights = []LayerType{LayerMaxpool, LayerFlatten, LayerReshape, LayerUpsample}
)

func noWeightsAllowed(checkType LayerType) bool {
	return checkLayerType(checkType, allowedNoWeights...)
}

func checkLayerType(checkType LayerType, t ...LayerType) bool {
	for _, typeOf := range t {
		if checkType == typeOf {
			return true
		}
	}
	return false
}

// Fwd Feedforwards input node through the layer (weights and bias applied, activation is not)
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied for bias addition
// input - Input node
func (layer *Layer) Fwd(batchSize int, input *gorgonia.Node) (*gorgonia.Node, error) {
	switch layer.Type {
	case LayerLinear:
		tOp, err := gorgonia.Transpose(layer.WeightNode)
		if err != nil {
			return nil, errors.Wrap(err, "Can't transpose weights")
		}
		nonActivated, err := gorgonia.Mul(input, tOp)
		if err != nil {
			return nil, errors.Wrap(err, "Can't multiply input and weights")
		}
		if layer.BiasNode == nil {
			return nonActivated, nil
		}
		if batchSize < 2 {
			nonActivated, err = gorgonia.Add(nonActivated, layer.BiasNode)
			if err != nil {
				return nil, errors.Wrap(err, "Can't add bias to non-activated output")
			}
			return nonActivated, nil
		}
		nonActivated, err = gorgonia.BroadcastAdd(nonActivated, layer.BiasNode, nil, []byte{0})
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't add bias [in broadcast term with batch_size = %d] to non-activated output", batchSize))
		}
		return nonActivated, nil
	case LayerConvolutional:
		nonActivated, err := gorgonia.Conv2d(input, layer.WeightNode, tensor.Shape{layer.KernelHeight, layer.KernelWidth}, layer.Padding, layer.Stride, layer.Dilation)
		if err != nil {
			return nil, errors.Wrap(err, "Can't convolve[2D] input by kernel")
		}
		if layer.BiasNode == nil {
			return nonActivated, nil
		}
		nonActivated, err = gorgonia.BroadcastAdd(nonActivated, layer.BiasNode, nil, []byte{0, 2, 3})
		if err != nil {
			return nil, errors.Wrap(err, "Can't add bias to non-activated output of convolutional layer")
		}
		return nonActivated, nil
	case LayerMaxpool:
		nonActivated, err := gorgonia.MaxPool2D(input, tensor.Shape{layer.KernelHeight, layer.KernelWidth}, layer.Padding, layer.Stride)
		if err != nil {
			return nil, errors.Wrap(err, "Can't maxpool[2D] input by kernel")
		}
		return nonActivated, nil
	case LayerFlatten:
		nonActivated, err := gorgonia.Reshape(input, tensor.Shape{batchSize, input.Shape().TotalSize() / batchSize})
		if err != nil {
			return nil, errors.Wrap(err, "Can't flatten input")
		}
		return nonActivated, nil
	case LayerReshape:
		nonActivated, err := gorgonia.Reshape(input, layer.ReshapeDims)
		if err != nil {
			return nil, errors.Wrap(err, "Can't reshape input")
		}
		return nonActivated, nil
	case LayerUpsample:
		nonActivated, err := gorgonia.Upsample2D(input, layer.UpsampleScale)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't upsample[2D] input with scale = %d", layer.UpsampleScale))
		}
		return nonActivated, nil
	case LayerBatchNorm:
		nonActivated, err := layer.batchNorm(input)
		if err != nil {
			return nil, errors.Wrap(err, "Can't apply batch normalization to input")
		}
		return nonActivated, nil
	default:
		return nil, fmt.Errorf("Layer's type '%d' (uint16) is not handled", layer.Type)
	}
}

// batchNorm Normalizes input across the batch and spatial dimensions using
// current-batch statistics, then applies the learnable scale and shift.
// Gorgonia v0.9.x ships a BatchNorm op with running statistics, but the
// training pipeline needs plain per-batch statistics on both evaluation
// graphs (see GAN), so the op is composed from primitives instead.
func (layer *Layer) batchNorm(input *gorgonia.Node) (*gorgonia.Node, error) {
	channels := layer.WeightNode.Shape()[1]
	mean, err := gorgonia.Mean(input, 0, 2, 3)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do mean(x)")
	}
	mean, err = gorgonia.Reshape(mean, tensor.Shape{1, channels, 1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape mean(x)")
	}
	centered, err := gorgonia.BroadcastSub(input, mean, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x-mean(x))")
	}
	squared, err := gorgonia.Square(centered)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x^2)")
	}
	variance, err := gorgonia.Mean(squared, 0, 2, 3)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do var(x)")
	}
	variance, err = gorgonia.Reshape(variance, tensor.Shape{1, channels, 1, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape var(x)")
	}
	epsilon := layer.Epsilon
	if epsilon == 0.0 {
		epsilon = 1e-5
	}
	epsScalar := gorgonia.NewScalar(input.Graph(), input.Dtype(), gorgonia.WithValue(epsilon))
	variance, err = gorgonia.Add(variance, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+eps)")
	}
	denom, err := gorgonia.Sqrt(variance)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do √x")
	}
	normalized, err := gorgonia.BroadcastHadamardDiv(centered, denom, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x/√var(x))")
	}
	scaled, err := gorgonia.BroadcastHadamardProd(normalized, layer.WeightNode, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (gamma.*x)")
	}
	shifted, err := gorgonia.BroadcastAdd(scaled, layer.BiasNode, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+beta)")
	}
	return shifted, nil
}

// activate Applies the layer's activation function (with its options) to the node
func (layer *Layer) activate(nonActivated *gorgonia.Node) (*gorgonia.Node, error) {
	if layer.Activation == nil {
		return nonActivated, nil
	}
	return layer.Activation(nonActivated, layer.Options...)
}
