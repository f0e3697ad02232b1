package cgan

import (
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ImageFolder Eagerly loaded image dataset.
//
// The root directory is expected to contain class-labeled subfolders of
// images; the labels themselves are ignored, only the images matter. Every
// image is resized to Size*Size, converted to CHW layout and normalized per
// channel to [-1, 1] at load time. Missing root or a root without a single
// decodable image is an error - the training process has nothing to do then.
type ImageFolder struct {
	Root     string
	Size     int
	Channels int

	samples [][]float64
}

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// NewImageFolder Constructor for ImageFolder
func NewImageFolder(root string, channels, size int) (*ImageFolder, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't open dataset directory '%s'", root))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("Dataset path '%s' is not a directory", root)
	}
	paths := []string{}
	err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't walk dataset directory '%s'", root))
	}
	// Deterministic base order; shuffling is the Batcher's job
	sort.Strings(paths)
	ds := &ImageFolder{
		Root:     root,
		Size:     size,
		Channels: channels,
		samples:  make([][]float64, 0, len(paths)),
	}
	for _, path := range paths {
		sample, err := ds.loadSample(path)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't load image '%s'", path))
		}
		ds.samples = append(ds.samples, sample)
	}
	if len(ds.samples) == 0 {
		return nil, fmt.Errorf("Dataset directory '%s' contains no decodable images", root)
	}
	return ds, nil
}

func (ds *ImageFolder) loadSample(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open file")
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode image")
	}
	return ImageToCHW(img, ds.Channels, ds.Size), nil
}

// Len Returns number of loaded samples
func (ds *ImageFolder) Len() int {
	return len(ds.samples)
}

// Batch Materializes the samples at the provided indices into a
// (len(indices), channels, size, size) tensor
func (ds *ImageFolder) Batch(indices []int) (*tensor.Dense, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("Batch must have one sample atleast")
	}
	sampleLen := ds.Channels * ds.Size * ds.Size
	data := make([]float64, len(indices)*sampleLen)
	for i, idx := range indices {
		if idx < 0 || idx >= len(ds.samples) {
			return nil, fmt.Errorf("Sample index %d is out of range [0;%d)", idx, len(ds.samples))
		}
		copy(data[i*sampleLen:(i+1)*sampleLen], ds.samples[idx])
	}
	return tensor.New(tensor.WithShape(len(indices), ds.Channels, ds.Size, ds.Size), tensor.WithBacking(data)), nil
}

// Batcher Shuffled batch iterator over an ImageFolder.
//
// Yields equally sized batches following a random permutation of the dataset
// and re-shuffles on every traversal. The ragged tail (dataset length modulo
// batch size) is dropped. Two Batchers over different folders are fully
// independent: the product and background streams are intentionally not
// index-aligned, so a background may repeat or be skipped within an epoch
// relative to the product stream.
type Batcher struct {
	ds        *ImageFolder
	batchSize int
	rng       *rand.Rand
	perm      []int
	cursor    int
}

// NewBatcher Constructor for Batcher. The provided random source drives the
// shuffle order: the same seed reproduces the same batch sequence.
func NewBatcher(ds *ImageFolder, batchSize int, rng *rand.Rand) (*Batcher, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("Batch size must be positive, but got %d", batchSize)
	}
	if batchSize > ds.Len() {
		return nil, fmt.Errorf("Batch size %d exceeds dataset length %d", batchSize, ds.Len())
	}
	b := &Batcher{
		ds:        ds,
		batchSize: batchSize,
		rng:       rng,
		perm:      rng.Perm(ds.Len()),
	}
	return b, nil
}

// StepsPerEpoch Returns number of full batches per traversal
func (b *Batcher) StepsPerEpoch() int {
	return b.ds.Len() / b.batchSize
}

// Next Returns the next batch, re-shuffling when the current traversal is exhausted
func (b *Batcher) Next() (*tensor.Dense, error) {
	if b.cursor+b.batchSize > len(b.perm) {
		b.perm = b.rng.Perm(b.ds.Len())
		b.cursor = 0
	}
	indices := b.perm[b.cursor : b.cursor+b.batchSize]
	b.cursor += b.batchSize
	return b.ds.Batch(indices)
}
