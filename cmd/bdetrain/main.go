// Command bdetrain trains the MLP bond dissociation energy regressor on a
// directory of featurized reaction CSV files and reports the test accuracy
// of the best checkpoint. Optionally it writes a PNG with the training
// curves.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/Noofbiz/bondkit/datasets"
	"github.com/Noofbiz/bondkit/mlp"
	"github.com/Noofbiz/bondkit/train"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func main() {
	var (
		dataPath    = flag.String("data", "assets/reactions", "CSV glob pattern or directory with featurized reactions")
		epochs      = flag.Int("epochs", 100, "number of training epochs")
		lr          = flag.Float64("lr", 0.001, "learning rate")
		weightDecay = flag.Float64("weight-decay", 5e-4, "weight decay")
		batchSize   = flag.Int("batch-size", 10, "training batch size")
		hidden      = flag.String("hidden", "64,32", "comma-separated hidden layer sizes")
		dropout     = flag.Float64("dropout", 0, "dropout probability for hidden layers")
		validation  = flag.Float64("validation", 0.1, "fraction of examples held out for validation")
		test        = flag.Float64("test", 0.1, "fraction of examples held out for testing")
		seed        = flag.Int64("seed", 42, "seed for splitting, shuffling, and weight init")
		patience    = flag.Int("patience", 150, "early stopping patience (0 disables)")
		optimizer   = flag.String("optimizer", "adam", "optimizer: adam or sgd")
		checkpoint  = flag.String("checkpoint", "bde_checkpoint.gob", "checkpoint file path")
		curves      = flag.String("curves", "", "optional PNG path for training curves")
	)
	flag.Parse()

	ds, err := datasets.NewBDEDataset(datasets.GlobForPath(*dataPath))
	if err != nil {
		log.Fatalf("failed to load dataset: %v", err)
	}
	log.Printf("loaded %d reactions (%d features) from %s", ds.Len(), ds.FeatureSize(), ds.Pattern)

	trainSet, valSet, testSet, err := datasets.TrainValidationTestSplit(ds, *validation, *test, *seed)
	if err != nil {
		log.Fatalf("failed to split dataset: %v", err)
	}

	trainLoader, err := datasets.NewLoader(trainSet, *batchSize, true, *seed)
	if err != nil {
		log.Fatalf("failed to create train loader: %v", err)
	}
	// Validation and test are evaluated full-batch; the loader still chunks
	// if the subsets are large.
	valLoader, err := datasets.NewLoader(valSet, maxInt(valSet.Len(), 1), false, *seed)
	if err != nil {
		log.Fatalf("failed to create validation loader: %v", err)
	}
	testLoader, err := datasets.NewLoader(testSet, maxInt(testSet.Len(), 1), false, *seed)
	if err != nil {
		log.Fatalf("failed to create test loader: %v", err)
	}

	hiddenSizes, err := parseHidden(*hidden)
	if err != nil {
		log.Fatalf("invalid -hidden: %v", err)
	}

	model, err := mlp.New(mlp.Config{
		HiddenSizes: hiddenSizes,
		InputDim:    ds.FeatureSize(),
		Dropout:     *dropout,
		Seed:        *seed,
	})
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}

	var opt train.Optimizer
	switch *optimizer {
	case "adam":
		opt = mlp.Adam(mlp.AdamConfig{LR: *lr, WeightDecay: *weightDecay})
	case "sgd":
		opt = mlp.SGD(mlp.SGDConfig{LR: *lr, Momentum: 0.9, WeightDecay: *weightDecay})
	default:
		log.Fatalf("unknown optimizer %q (want adam or sgd)", *optimizer)
	}

	scheduler := train.NewPlateauScheduler(train.PlateauConfig{
		Factor:   0.3,
		Patience: maxInt(*patience/3, 1),
		MinLR:    1e-6,
	})

	result, err := train.Run(train.RunConfig{
		Epochs:    *epochs,
		Patience:  *patience,
		Scheduler: scheduler,
		Out:       os.Stdout,
	}, model, opt, train.MSE(), train.MAE(),
		trainLoader, valLoader, testLoader,
		train.NewCheckpointer(*checkpoint))
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	if *curves != "" {
		if err := plotCurves(*curves, result.History); err != nil {
			log.Fatalf("failed to plot training curves: %v", err)
		}
		log.Printf("wrote training curves to %s", *curves)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// parseHidden parses "64,32" into []int{64, 32}.
func parseHidden(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad hidden size %q: %w", p, err)
		}
		if v <= 0 {
			return nil, fmt.Errorf("hidden size must be positive, got %d", v)
		}
		sizes = append(sizes, v)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no hidden sizes in %q", s)
	}
	return sizes, nil
}

// plotCurves writes a PNG with the per-epoch training loss (blue) and
// validation accuracy (red) curves.
func plotCurves(outPath string, history []train.EpochStats) error {
	p := plot.New()
	p.Title.Text = "Training loss (blue) and validation MAE (red)"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "value"

	lossXY := make(plotter.XYs, 0, len(history))
	valXY := make(plotter.XYs, 0, len(history))
	for _, h := range history {
		lossXY = append(lossXY, plotter.XY{X: float64(h.Epoch), Y: h.Loss})
		valXY = append(valXY, plotter.XY{X: float64(h.Epoch), Y: h.ValAcc})
	}

	lossLine, err := plotter.NewLine(lossXY)
	if err != nil {
		return err
	}
	lossLine.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	lossLine.Width = vg.Points(1.2)
	p.Add(lossLine)
	p.Legend.Add("train loss", lossLine)

	valLine, err := plotter.NewLine(valXY)
	if err != nil {
		return err
	}
	valLine.Color = color.RGBA{R: 200, G: 30, B: 30, A: 220}
	valLine.Width = vg.Points(1.2)
	p.Add(valLine)
	p.Legend.Add("val mae", valLine)

	p.Add(plotter.NewGrid())

	return p.Save(8*vg.Inch, 6*vg.Inch, outPath)
}
