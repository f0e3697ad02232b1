package cgan

import (
	"fmt"
	"math"
	"math/rand"
	"path/filepath"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Trainer Owns both evaluation graphs of the conditional GAN and drives the
// alternating optimization.
//
// The discriminator is trained on its own graph: generated images reach it
// only as materialized tensor values, so no gradient can flow back into the
// generator there. The generator is trained through the GAN graph, where the
// discriminator copy's weights are shared by value with the training
// discriminator but never stepped by the generator's solver.
type Trainer struct {
	cfg Config
	rng *rand.Rand

	generator     *GeneratorNet
	discriminator *DiscriminatorNet
	gan           *GAN

	// GAN graph (generator training + sample generation)
	inputNoise         *gorgonia.Node
	inputBackgroundGen *gorgonia.Node
	targetGen          *gorgonia.Node

	// Discriminator training graph
	inputCandidates    *gorgonia.Node
	inputBackgroundDis *gorgonia.Node
	targetDis          *gorgonia.Node

	generatedSamples gorgonia.Value
	costGenValue     gorgonia.Value
	costDisValue     gorgonia.Value

	vmGen    gorgonia.VM
	vmSample gorgonia.VM
	vmDis    gorgonia.VM

	solverGen gorgonia.Solver
	solverDis gorgonia.Solver

	genLossHistory []float64
	disLossHistory []float64
}

// NewTrainer Constructor for Trainer. Builds both networks, wires the two
// evaluation graphs, the losses, the gradients and the Adam solvers.
func NewTrainer(cfg Config, rng *rand.Rand) (*Trainer, error) {
	if cfg.ImageSize%8 != 0 {
		return nil, fmt.Errorf("Image size must be divisible by 8, but got %d", cfg.ImageSize)
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("Batch size must be positive, but got %d", cfg.BatchSize)
	}
	if cfg.LogEvery < 1 {
		return nil, fmt.Errorf("Logging cadence must be positive, but got %d", cfg.LogEvery)
	}
	if cfg.CheckpointEvery < 1 {
		return nil, fmt.Errorf("Checkpoint cadence must be positive, but got %d", cfg.CheckpointEvery)
	}
	t := &Trainer{
		cfg: cfg,
		rng: rng,
	}

	// Define graph for GAN feedforward and Generator training
	ganGraph := gorgonia.NewGraph()
	// Define graph for Discriminator training
	disGraph := gorgonia.NewGraph()

	t.generator = BuildGenerator(ganGraph, cfg)
	t.inputNoise = gorgonia.NewTensor(ganGraph, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.NoiseSize, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("generator_noise"))
	t.inputBackgroundGen = gorgonia.NewTensor(ganGraph, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("generator_background"))
	if err := t.generator.Fwd(t.inputNoise, t.inputBackgroundGen, cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Generator feedforward")
	}

	// Discriminator sees the real and the generated batch at once, hence 2*batch
	t.discriminator = BuildDiscriminator(disGraph, cfg)
	t.inputCandidates = gorgonia.NewTensor(disGraph, gorgonia.Float64, 4, gorgonia.WithShape(2*cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("discriminator_candidates"))
	t.inputBackgroundDis = gorgonia.NewTensor(disGraph, gorgonia.Float64, 4, gorgonia.WithShape(2*cfg.BatchSize, cfg.Channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("discriminator_background"))
	if err := t.discriminator.Fwd(t.inputCandidates, t.inputBackgroundDis, 2*cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Discriminator feedforward")
	}

	gan, err := NewGAN(ganGraph, t.generator, t.discriminator)
	if err != nil {
		return nil, errors.Wrap(err, "Can't assemble GAN")
	}
	t.gan = gan
	if err := t.gan.Fwd(t.inputBackgroundGen, cfg.BatchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize GAN feedforward")
	}

	gorgonia.Read(t.gan.GeneratorOut(), &t.generatedSamples)

	// Generator loss: discriminator's verdict on generated images against label=1
	t.targetGen = gorgonia.NewTensor(ganGraph, gorgonia.Float64, t.gan.Out().Dims(), gorgonia.WithShape(t.gan.Out().Shape()...), gorgonia.WithName("gan_discriminator_target"))
	costGen, err := BinaryCrossEntropyLoss(t.gan.Out(), t.targetGen)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define Generator loss")
	}
	gorgonia.WithName("gan_discriminator_loss")(costGen)
	if _, err := gorgonia.Grad(costGen, t.gan.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for GAN")
	}
	gorgonia.Read(costGen, &t.costGenValue)

	// Discriminator loss: verdict on the combined real+generated batch
	t.targetDis = gorgonia.NewTensor(disGraph, gorgonia.Float64, 2, gorgonia.WithShape(2*cfg.BatchSize, 1), gorgonia.WithName("discriminator_target"))
	costDis, err := BinaryCrossEntropyLoss(t.discriminator.Out(), t.targetDis)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define Discriminator loss")
	}
	gorgonia.WithName("discriminator_loss")(costDis)
	if _, err := gorgonia.Grad(costDis, t.discriminator.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for Discriminator")
	}
	gorgonia.Read(costDis, &t.costDisValue)

	t.vmGen = gorgonia.NewTapeMachine(ganGraph, gorgonia.BindDualValues(t.gan.Learnables()...))
	t.vmSample = gorgonia.NewTapeMachine(ganGraph)
	t.vmDis = gorgonia.NewTapeMachine(disGraph, gorgonia.BindDualValues(t.discriminator.Learnables()...))

	t.solverGen = gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearningRate), gorgonia.WithBeta1(cfg.Beta1), gorgonia.WithBeta2(cfg.Beta2))
	t.solverDis = gorgonia.NewAdamSolver(gorgonia.WithBatchSize(float64(cfg.BatchSize)), gorgonia.WithLearnRate(cfg.LearningRate), gorgonia.WithBeta1(cfg.Beta1), gorgonia.WithBeta2(cfg.Beta2))

	return t, nil
}

// Close Releases both tape machines
func (t *Trainer) Close() {
	t.vmGen.Close()
	t.vmSample.Close()
	t.vmDis.Close()
}

// Generator Returns the generator network
func (t *Trainer) Generator() *GeneratorNet {
	return t.generator
}

// Discriminator Returns the discriminator network
func (t *Trainer) Discriminator() *DiscriminatorNet {
	return t.discriminator
}

// LossHistory Returns per-step generator and discriminator losses recorded by Train
func (t *Trainer) LossHistory() (gen, dis []float64) {
	return t.genLossHistory, t.disLossHistory
}

// Generate Runs the generator on fresh noise for the provided background
// batch and returns the synthetic images as a detached tensor value.
func (t *Trainer) Generate(background *tensor.Dense) (*tensor.Dense, error) {
	cfg := t.cfg
	noise := NoiseVolume(t.rng, cfg.BatchSize, cfg.NoiseSize, cfg.ImageSize, cfg.ImageSize)
	if err := gorgonia.Let(t.inputNoise, noise); err != nil {
		return nil, errors.Wrap(err, "Can't init noise value")
	}
	if err := gorgonia.Let(t.inputBackgroundGen, background); err != nil {
		return nil, errors.Wrap(err, "Can't init background value")
	}
	// The sampling machine evaluates the whole GAN graph, so the loss target
	// must hold a value as well even though nobody reads the loss here
	if err := gorgonia.Let(t.targetGen, tensor.Ones(tensor.Float64, cfg.BatchSize, 1)); err != nil {
		return nil, errors.Wrap(err, "Can't init target value")
	}
	if err := t.vmSample.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run sampling machine")
	}
	t.vmSample.Reset()
	generated, ok := t.generatedSamples.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Generator output is not a dense tensor, but %T", t.generatedSamples)
	}
	return generated.Clone().(*tensor.Dense), nil
}

// Step Performs one full training step on the provided real product batch and
// background batch:
//  1. generate a synthetic batch from fresh noise conditioned on the backgrounds;
//  2. one Adam step on the discriminator against the combined
//     (real, background, label=1) + (synthetic, background, label=0) batch;
//  3. one Adam step on the generator against label=1 with fresh noise.
//
// Returned losses are reported as-is: divergence or NaN is not detected here.
func (t *Trainer) Step(real, background *tensor.Dense) (genLoss, disLoss float64, err error) {
	disLoss, err = t.stepDiscriminator(real, background)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Can't do Discriminator update")
	}
	genLoss, err = t.stepGenerator(background)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Can't do Generator update")
	}
	return genLoss, disLoss, nil
}

// stepDiscriminator One Adam step on the discriminator against the combined
// real and generated batch. The generated images participate as plain tensor
// values, so the generator's parameters stay untouched.
func (t *Trainer) stepDiscriminator(real, background *tensor.Dense) (float64, error) {
	cfg := t.cfg
	generated, err := t.Generate(background)
	if err != nil {
		return 0, errors.Wrap(err, "Can't generate synthetic batch")
	}
	realLabels := tensor.Ones(tensor.Float64, cfg.BatchSize, 1)
	generatedLabels := tensor.Ones(tensor.Float64, cfg.BatchSize, 1)
	generatedLabels.Zero()

	allSamples, err := tensor.Concat(0, real, generated)
	if err != nil {
		return 0, errors.Wrap(err, "Can't concatenate real and generated samples")
	}
	allBackgrounds, err := tensor.Concat(0, background, background)
	if err != nil {
		return 0, errors.Wrap(err, "Can't concatenate backgrounds")
	}
	allLabels, err := tensor.Concat(0, realLabels, generatedLabels)
	if err != nil {
		return 0, errors.Wrap(err, "Can't concatenate labels")
	}
	if err := gorgonia.Let(t.inputCandidates, allSamples); err != nil {
		return 0, errors.Wrap(err, "Can't init candidates value")
	}
	if err := gorgonia.Let(t.inputBackgroundDis, allBackgrounds); err != nil {
		return 0, errors.Wrap(err, "Can't init backgrounds value")
	}
	if err := gorgonia.Let(t.targetDis, allLabels); err != nil {
		return 0, errors.Wrap(err, "Can't init labels value")
	}
	if err := t.vmDis.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run Discriminator training machine")
	}
	if err := t.solverDis.Step(gorgonia.NodesToValueGrads(t.discriminator.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply Discriminator solver step")
	}
	t.vmDis.Reset()
	return scalarValue(t.costDisValue), nil
}

// stepGenerator One Adam step on the generator: fresh noise through the GAN
// graph against label=1. Only the generator's learnables are stepped; the
// discriminator copies on the GAN graph act as constants.
func (t *Trainer) stepGenerator(background *tensor.Dense) (float64, error) {
	cfg := t.cfg
	noise := NoiseVolume(t.rng, cfg.BatchSize, cfg.NoiseSize, cfg.ImageSize, cfg.ImageSize)
	if err := gorgonia.Let(t.inputNoise, noise); err != nil {
		return 0, errors.Wrap(err, "Can't init noise value")
	}
	if err := gorgonia.Let(t.inputBackgroundGen, background); err != nil {
		return 0, errors.Wrap(err, "Can't init background value")
	}
	// The generator "wants" the discriminator to answer 1 on its output
	if err := gorgonia.Let(t.targetGen, tensor.Ones(tensor.Float64, cfg.BatchSize, 1)); err != nil {
		return 0, errors.Wrap(err, "Can't init target value")
	}
	if err := t.vmGen.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run Generator training machine")
	}
	if err := t.solverGen.Step(gorgonia.NodesToValueGrads(t.gan.GeneratorLearnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply Generator solver step")
	}
	t.vmGen.Reset()
	return scalarValue(t.costGenValue), nil
}

// Train Runs the full training loop: a fixed number of epochs over the product
// dataset, one Step per product batch, with a background batch drawn from its
// own independently shuffled stream. Progress is logged every cfg.LogEvery
// steps and a grid of generated samples is written every cfg.CheckpointEvery
// epochs. There is no convergence check and no early stopping.
func (t *Trainer) Train(products, backgrounds *ImageFolder) error {
	cfg := t.cfg
	productBatcher, err := NewBatcher(products, cfg.BatchSize, t.rng)
	if err != nil {
		return errors.Wrap(err, "Can't prepare product batches")
	}
	backgroundBatcher, err := NewBatcher(backgrounds, cfg.BatchSize, t.rng)
	if err != nil {
		return errors.Wrap(err, "Can't prepare background batches")
	}
	steps := productBatcher.StepsPerEpoch()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		for step := 1; step <= steps; step++ {
			real, err := productBatcher.Next()
			if err != nil {
				return errors.Wrap(err, "Can't draw product batch")
			}
			background, err := backgroundBatcher.Next()
			if err != nil {
				return errors.Wrap(err, "Can't draw background batch")
			}
			genLoss, disLoss, err := t.Step(real, background)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("Can't do training step #%d of epoch #%d", step, epoch))
			}
			t.genLossHistory = append(t.genLossHistory, genLoss)
			t.disLossHistory = append(t.disLossHistory, disLoss)
			if step%cfg.LogEvery == 0 {
				fmt.Printf("Epoch [%d/%d], Step [%d/%d], Generator Loss: %.4f, Discriminator Loss: %.4f\n", epoch, cfg.Epochs, step, steps, genLoss, disLoss)
			}
		}
		if epoch%cfg.CheckpointEvery == 0 {
			grid, err := t.SampleGrid(cfg.SampleCount, backgroundBatcher)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("Can't generate sample grid for epoch #%d", epoch))
			}
			fname := filepath.Join(cfg.OutputDir, fmt.Sprintf("epoch_%d.png", epoch))
			if err := SaveImageGrid(grid, cfg.SamplesPerRow, fname); err != nil {
				return errors.Wrap(err, fmt.Sprintf("Can't save sample grid for epoch #%d", epoch))
			}
		}
	}
	return nil
}

// SampleGrid Generates at least n synthetic images (in batch-sized runs,
// conditioned on backgrounds drawn from the provided stream) and returns the
// first n of them stacked into a single (n, channels, size, size) tensor.
func (t *Trainer) SampleGrid(n int, backgrounds *Batcher) (*tensor.Dense, error) {
	if n < 1 {
		return nil, fmt.Errorf("Sample count must be positive, but got %d", n)
	}
	var collected *tensor.Dense
	for collected == nil || collected.Shape()[0] < n {
		background, err := backgrounds.Next()
		if err != nil {
			return nil, errors.Wrap(err, "Can't draw background batch")
		}
		generated, err := t.Generate(background)
		if err != nil {
			return nil, errors.Wrap(err, "Can't generate samples")
		}
		if collected == nil {
			collected = generated
			continue
		}
		collected, err = collected.Vstack(generated)
		if err != nil {
			return nil, errors.Wrap(err, "Can't stack generated samples")
		}
	}
	if collected.Shape()[0] == n {
		return collected, nil
	}
	sliced, err := collected.Slice(SlicerOneStep{0, n})
	if err != nil {
		return nil, errors.Wrap(err, "Can't slice generated samples")
	}
	return sliced.Materialize().(*tensor.Dense), nil
}

func scalarValue(v gorgonia.Value) float64 {
	if v == nil {
		return math.NaN()
	}
	f, ok := v.Data().(float64)
	if !ok {
		return math.NaN()
	}
	return f
}
