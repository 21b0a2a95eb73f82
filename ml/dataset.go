package ml

import (
	"errors"
	"math/rand"
)

// Default synthesis parameters. The seed is fixed so that repeated
// training runs produce identical datasets and therefore identical
// fitted coefficients.
const (
	DefaultSamples = 1000
	DefaultSeed    = 42
)

// dataset price formula coefficients
const (
	bedroomWeight  = 15000
	bathroomWeight = 20000
	sqftWeight     = 150
	floorWeight    = 10000
	ageWeight      = -2000
	basePrice      = 200000
	noiseStdDev    = 20000
	minSamplePrice = 100000
)

var floorChoices = []float64{1, 1.5, 2, 2.5, 3}

// Dataset is a tabular training set: one feature vector per row and a
// price target per row.
type Dataset struct {
	X [][]float64
	Y []float64
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.X)
}

// SynthesizeDataset generates n training samples from a single seeded
// source. Prices follow a fixed linear formula plus Gaussian noise and
// are floored at 100k.
func SynthesizeDataset(n int, seed int64) *Dataset {
	if n <= 0 {
		n = DefaultSamples
	}
	rnd := rand.New(rand.NewSource(seed))

	ds := &Dataset{
		X: make([][]float64, 0, n),
		Y: make([]float64, 0, n),
	}
	for i := 0; i < n; i++ {
		features := HouseFeatures{
			Bedrooms:   float64(1 + rnd.Intn(5)),
			Bathrooms:  float64(1+rnd.Intn(3)) + rnd.Float64(),
			SqftLiving: float64(800 + rnd.Intn(4200)),
			Floors:     floorChoices[rnd.Intn(len(floorChoices))],
			Age:        float64(rnd.Intn(50)),
		}

		price := bedroomWeight*features.Bedrooms +
			bathroomWeight*features.Bathrooms +
			sqftWeight*features.SqftLiving +
			floorWeight*features.Floors +
			ageWeight*features.Age +
			rnd.NormFloat64()*noiseStdDev +
			basePrice
		if price < minSamplePrice {
			price = minSamplePrice
		}

		ds.X = append(ds.X, features.Vector())
		ds.Y = append(ds.Y, price)
	}
	return ds
}

// TrainTestSplit shuffles the dataset with a seeded permutation and
// splits it into train and test partitions. Deterministic given seed.
func TrainTestSplit(ds *Dataset, testRatio float64, seed int64) (train, test *Dataset, err error) {
	if ds == nil || ds.Len() == 0 {
		return nil, nil, errors.New("dataset is empty")
	}
	if len(ds.X) != len(ds.Y) {
		return nil, nil, errors.New("feature/target length mismatch")
	}
	if testRatio <= 0 || testRatio >= 1 {
		testRatio = 0.2
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(ds.Len())
	split := int(float64(ds.Len()) * (1 - testRatio))

	train = &Dataset{}
	test = &Dataset{}
	for i, idx := range indices {
		if i < split {
			train.X = append(train.X, ds.X[idx])
			train.Y = append(train.Y, ds.Y[idx])
		} else {
			test.X = append(test.X, ds.X[idx])
			test.Y = append(test.Y, ds.Y[idx])
		}
	}
	return train, test, nil
}
