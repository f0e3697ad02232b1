package main

import (
	"log"
	"math/rand"
	"os"
	"path/filepath"

	cgan "github.com/rebel747/Conditional-GANs"
)

var (
	noiseSize       = 100
	baseWidth       = 64
	imageSize       = 64
	channels        = 3
	batchSize       = 16
	numEpochs       = 200
	learningRate    = 0.0002
	beta1           = 0.5
	beta2           = 0.999
	logEvery        = 100
	checkpointEvery = 10
	sampleCount     = 25
	samplesPerRow   = 5

	productsDir    = "./data/products"
	backgroundsDir = "./data/backgrounds"
	outputDir      = "./out"
)

func main() {
	// Initialize seed with constant value to reproduce results
	rng := rand.New(rand.NewSource(1337))

	cfg := cgan.Config{
		NoiseSize:       noiseSize,
		BaseWidth:       baseWidth,
		ImageSize:       imageSize,
		Channels:        channels,
		BatchSize:       batchSize,
		Epochs:          numEpochs,
		LearningRate:    learningRate,
		Beta1:           beta1,
		Beta2:           beta2,
		LogEvery:        logEvery,
		CheckpointEvery: checkpointEvery,
		SampleCount:     sampleCount,
		SamplesPerRow:   samplesPerRow,
		ProductsDir:     productsDir,
		BackgroundsDir:  backgroundsDir,
		OutputDir:       outputDir,
	}

	products, err := cgan.NewImageFolder(cfg.ProductsDir, cfg.Channels, cfg.ImageSize)
	if err != nil {
		log.Fatalf("Can't load product images: %v", err)
	}
	backgrounds, err := cgan.NewImageFolder(cfg.BackgroundsDir, cfg.Channels, cfg.ImageSize)
	if err != nil {
		log.Fatalf("Can't load background images: %v", err)
	}
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		log.Fatalf("Can't prepare output directory: %v", err)
	}

	trainer, err := cgan.NewTrainer(cfg, rng)
	if err != nil {
		log.Fatalf("Can't build trainer: %v", err)
	}
	defer trainer.Close()

	if err := trainer.Train(products, backgrounds); err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	genLosses, disLosses := trainer.LossHistory()
	if err := cgan.PlotLosses(genLosses, disLosses, filepath.Join(cfg.OutputDir, "losses.png")); err != nil {
		log.Fatalf("Can't plot losses: %v", err)
	}
}
