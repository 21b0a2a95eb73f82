package main

import (
	"flag"
	"fmt"
	"log"

	"houseprice/db"
	"houseprice/ml"
)

func main() {
	samples := flag.Int("samples", ml.DefaultSamples, "number of synthetic samples")
	seed := flag.Int64("seed", ml.DefaultSeed, "random seed")
	testRatio := flag.Float64("test_ratio", 0.2, "held-out test ratio")
	outDir := flag.String("out", "artifacts", "artifact output directory")
	dbPath := flag.String("db", "", "optional sqlite path to record the run")
	flag.Parse()

	pipeline, result, err := ml.Train(ml.TrainConfig{
		Samples:   *samples,
		Seed:      *seed,
		TestRatio: *testRatio,
	})
	if err != nil {
		log.Fatalf("failed to train model: %v", err)
	}
	log.Printf("mse=%.2f r2=%.4f samples=%d", result.MSE, result.R2, result.Samples)

	store := &ml.Store{Dir: *outDir}
	if err := store.Save(pipeline, result); err != nil {
		log.Fatalf("failed to save model: %v", err)
	}

	if *dbPath != "" {
		if err := db.InitDB(*dbPath); err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		run := db.TrainingRun{
			Samples:   result.Samples,
			MSE:       result.MSE,
			R2:        result.R2,
			TrainedAt: result.TrainedAt,
		}
		if err := db.SaveTrainingRun(run); err != nil {
			log.Fatalf("failed to record training run: %v", err)
		}
	}

	fmt.Printf("model saved to %s\n", *outDir)
}
