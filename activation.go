package cgan

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) { return a, nil }
func Rectify(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }
func Sigmoid(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Tanh(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Softplus(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)     { return gorgonia.Softplus(a) }
func Softmax(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
	for i := range opts {
		// Check if axis option is provided
		// First i-th option with provided field 'Axis' would be considered for use.
		if len(opts[i].Axis) > 0 {
			return gorgonia.SoftMax(a, opts[i].Axis...)
		}
	}
	return gorgonia.SoftMax(a)
}

// LeakyRectify Leaky variant of Rectify. Gorgonia v0.9.x has no dedicated
// leaky ReLU node, so it is composed from primitives as
//
//	max(x, 0) - alpha*max(-x, 0)
//
// Default slope for the negative part is 0.01. First option with provided
// field 'Alpha' overrides it.
func LeakyRectify(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
	alpha := 0.01
	for i := range opts {
		if opts[i].Alpha != 0.0 {
			alpha = opts[i].Alpha
			break
		}
	}
	positive, err := gorgonia.Rectify(a)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do max(x, 0)")
	}
	neg, err := gorgonia.Neg(a)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	negative, err := gorgonia.Rectify(neg)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do max(-x, 0)")
	}
	alphaScalar := gorgonia.NewScalar(a.Graph(), a.Dtype(), gorgonia.WithValue(alpha))
	scaled, err := gorgonia.Mul(alphaScalar, negative)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do alpha*x")
	}
	return gorgonia.Sub(positive, scaled)
}

// Options Struct for holding options for certain activation functions.
type Options struct {
	Axis  []int
	Alpha float64
}
