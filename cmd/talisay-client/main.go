package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	talisayclient "github.com/menta2k/talisay-client"
	"github.com/menta2k/talisay-client/internal/config"
	"github.com/menta2k/talisay-client/internal/utils"
	"github.com/menta2k/talisay-client/pkg/predict"
	"github.com/menta2k/talisay-client/pkg/progress"
	"github.com/menta2k/talisay-client/pkg/types"
)

func main() {
	var in, mode, color, setEndpoint, token string
	var length, width, kernel, weight float64
	var clearEndpoint, verbose bool
	var timeout time.Duration

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	flag.StringVar(&mode, "mode", "single", "operation: single|multi|measurements|baseline|health|info|upload")
	flag.StringVar(&color, "color", "green", "fruit color for measurements/baseline: green|yellow|brown")
	flag.Float64Var(&length, "length", 0, "fruit length in cm (measurements mode)")
	flag.Float64Var(&width, "width", 0, "fruit width in cm (measurements mode)")
	flag.Float64Var(&kernel, "kernel", 0, "kernel mass in grams (measurements mode, optional)")
	flag.Float64Var(&weight, "weight", 0, "whole fruit weight in grams (measurements mode, optional)")
	flag.StringVar(&setEndpoint, "set-endpoint", "", "persist a backend URL override and exit")
	flag.BoolVar(&clearEndpoint, "clear-endpoint", false, "clear the persisted backend URL override and exit")
	flag.StringVar(&token, "token", "", "bearer token for upload mode")
	flag.DurationVar(&timeout, "timeout", 0, "request timeout (default 90s)")
	flag.BoolVar(&verbose, "v", false, "verbose progress logging")
	flag.Parse()

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}

	client, err := talisayclient.NewWithConfig(cfg)
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}

	if setEndpoint != "" {
		if err := client.SetEndpointOverride(setEndpoint); err != nil {
			log.Fatalf("failed to set endpoint override: %v", err)
		}
		log.Infof("endpoint override set to %s", setEndpoint)
		return
	}
	if clearEndpoint {
		if err := client.ClearEndpointOverride(); err != nil {
			log.Fatalf("failed to clear endpoint override: %v", err)
		}
		log.Infof("endpoint override cleared, now using %s", client.Endpoint())
		return
	}

	log.Debugf("using backend %s", client.Endpoint())

	opts := predict.AnalyzeOptions{}
	if verbose {
		opts.Reporter = progress.NewLogReporter(log)
	}

	ctx := context.Background()

	switch mode {
	case "single", "multi":
		if in == "" {
			log.Fatalf("usage: %s -in fruit.jpg [-mode single|multi]", filepath.Base(os.Args[0]))
		}
		if !utils.FileExists(in) {
			log.Fatalf("input image not found: %s", in)
		}
		if !utils.IsImageFile(in) {
			log.Fatalf("not a supported image file: %s", in)
		}
		log.Debugf("input size: %s", utils.FormatFileSize(utils.FileSize(in)))

		var resp *types.AnalysisResponse
		if mode == "multi" {
			resp, err = client.AnalyzeMulti(ctx, in, opts)
		} else {
			resp, err = client.Analyze(ctx, in, opts)
		}
		if err != nil {
			log.Fatalf("analysis failed: %v", err)
		}
		log.Infof("predicted yield %.1f%% (%s), confidence %.0f%%, %.1fs",
			resp.Result.OilYieldPercent, resp.Result.YieldCategory,
			resp.Result.OverallConfidence*100, resp.Timing.ElapsedSeconds)
		printJSON(resp)

	case "measurements":
		req := predict.MeasurementsRequest{Color: color, LengthCm: length, WidthCm: width}
		if kernel > 0 {
			req.KernelMassG = &kernel
		}
		if weight > 0 {
			req.WholeFruitWeightG = &weight
		}
		resp, err := client.AnalyzeMeasurements(ctx, req)
		if err != nil {
			log.Fatalf("analysis failed: %v", err)
		}
		printJSON(resp)

	case "baseline":
		result, err := client.Baseline(ctx, color)
		if err != nil {
			log.Fatalf("baseline fetch failed: %v", err)
		}
		printJSON(result)

	case "health":
		health, err := client.Health(ctx)
		if err != nil {
			log.Fatalf("health check failed: %v", err)
		}
		printJSON(health)

	case "info":
		info, err := client.Info(ctx)
		if err != nil {
			log.Fatalf("info fetch failed: %v", err)
		}
		printJSON(info)

	case "upload":
		if in == "" {
			log.Fatalf("upload mode requires -in")
		}
		if token == "" {
			log.Fatalf("upload mode requires -token")
		}
		client.SetToken(token)
		uploaded, err := client.UploadFile(ctx, in)
		if err != nil {
			log.Fatalf("upload failed: %v", err)
		}
		log.Infof("uploaded as %s", uploaded.PublicID)
		printJSON(uploaded)

	default:
		log.Fatalf("unknown mode: %s", mode)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to render output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
