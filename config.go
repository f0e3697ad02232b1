package cgan

// Config Set of hyperparameters for the conditional GAN training pipeline.
//
// NoiseSize - length of the latent vector sampled for each generated image
// BaseWidth - base channel width; generator and discriminator widths are multiples of it
// ImageSize - spatial size of every image (images are square). Must be divisible by 8 since the discriminator downsamples three times
// Channels - number of image channels (3 for RGB)
// BatchSize - number of samples per training batch
// Epochs - fixed number of epochs; the only termination condition
// LearningRate, Beta1, Beta2 - Adam solver parameters, shared by both networks
// LogEvery - progress line cadence in steps
// CheckpointEvery - sample grid cadence in epochs
// SampleCount, SamplesPerRow - layout of the periodic sample grid
// ProductsDir, BackgroundsDir - roots of the two labeled-image-folder datasets
// OutputDir - where sample grids and the loss plot are written
type Config struct {
	NoiseSize int
	BaseWidth int
	ImageSize int
	Channels  int

	BatchSize    int
	Epochs       int
	LearningRate float64
	Beta1        float64
	Beta2        float64

	LogEvery        int
	CheckpointEvery int
	SampleCount     int
	SamplesPerRow   int

	ProductsDir    string
	BackgroundsDir string
	OutputDir      string
}
