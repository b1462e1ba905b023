package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"deliveryeta/ml"
)

const sampleRows = 3

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

// run fits bounds over the training CSV, compares them with the artifact's
// and, with -write, stores them in the artifact.
func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("fit_bounds", flag.ContinueOnError)
	dataPath := flags.String("data", "", "training CSV with age, rating and distance_km columns")
	modelPath := flags.String("model", "./models/lstm_delivery_model.json", "model artifact to compare against or update")
	write := flags.Bool("write", false, "store the fitted bounds in the model artifact")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if *dataPath == "" {
		return errors.New("data is required")
	}

	var preprocessor ml.DataPreprocessor
	features, err := preprocessor.LoadDataset(*dataPath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := preprocessor.ComputeStats(features); err != nil {
		return fmt.Errorf("failed to fit bounds: %w", err)
	}
	bounds, _ := preprocessor.Bounds()

	fmt.Fprintf(stdout, "fitted bounds over %d rows\n", len(features))
	names := ml.FeatureNames()
	for i, name := range names {
		fmt.Fprintf(stdout, "%-10s min=%-10.4f max=%-10.4f\n", name, bounds.Min[i], bounds.Max[i])
	}

	scaled, err := preprocessor.Normalize(features[:min(sampleRows, len(features))])
	if err != nil {
		return fmt.Errorf("failed to normalize sample rows: %w", err)
	}
	for i, row := range scaled {
		fmt.Fprintf(stdout, "row %d     %+v -> %.4f\n", i+1, features[i], row)
	}

	artifact, err := ml.LoadArtifact(*modelPath)
	if err != nil {
		return fmt.Errorf("failed to load model artifact: %w", err)
	}
	if artifact.BoundsDefaulted {
		fmt.Fprintf(stdout, "%s carries no bounds\n", *modelPath)
	} else {
		drift := ml.BoundsDrift(*artifact.Bounds, bounds)
		for i, name := range names {
			fmt.Fprintf(stdout, "%-10s drift min=%+.2f%% max=%+.2f%%\n", name, drift[i][0]*100, drift[i][1]*100)
		}
	}

	if !*write {
		return nil
	}
	if err := artifact.SetBounds(bounds); err != nil {
		return fmt.Errorf("failed to set bounds: %w", err)
	}
	if err := artifact.Save(*modelPath); err != nil {
		return fmt.Errorf("failed to save model artifact: %w", err)
	}
	fmt.Fprintf(stdout, "bounds saved to %s\n", *modelPath)
	return nil
}
