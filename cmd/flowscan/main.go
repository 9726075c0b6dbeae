// Command flowscan measures apparent motion across an ordered directory of
// frame captures. Consecutive frame pairs are block-matched in parallel, the
// per-pair speed and direction series are differentiated into accelerations,
// and the run is rendered to plots, an HTML report, and annotated frames.
//
// The process exits non-zero when the mean speed falls below the activity
// threshold, so capture jobs can gate on "did anything actually move".
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/emberfall/framesight/internal/config"
	"github.com/emberfall/framesight/internal/fsutil"
	"github.com/emberfall/framesight/internal/monitoring"
	"github.com/emberfall/framesight/internal/pipeline"
	"github.com/emberfall/framesight/internal/report"
	"github.com/emberfall/framesight/internal/store"
	"github.com/emberfall/framesight/internal/version"
	"github.com/emberfall/framesight/internal/vision"
)

// minMeanSpeed is the activity gate: runs whose mean speed stays below this
// are treated as static scenes.
const minMeanSpeed = 0.1

var (
	framesDir   = flag.String("frames", "frames", "Directory containing captured frames")
	pattern     = flag.String("pattern", "screenshot_*.png", "Glob pattern for frame files")
	outDir      = flag.String("out", "analysis_output", "Output directory for artifacts and reports")
	configPath  = flag.String("config", "", "Optional JSON config overriding the defaults")
	dbPath      = flag.String("db", "", "Optional sqlite database to persist the run to")
	workers     = flag.Int("workers", 0, "Worker count (0 = one per CPU core)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("flowscan %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	params := config.DefaultParams()
	if *configPath != "" {
		fc, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		params = fc.Apply(params)
	}
	if *workers > 0 {
		params.Workers = *workers
	}
	if err := params.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	fs := &fsutil.OSFileSystem{}
	ctx := context.Background()
	started := time.Now().UTC()

	indexer := &pipeline.FrameIndexer{FS: fs, Dir: *framesDir, Pattern: *pattern}
	units, err := indexer.Units(pipeline.Pairwise)
	if err != nil {
		log.Fatalf("index frames: %v", err)
	}
	monitoring.Logf("analysing %d frame pairs from %s", len(units), *framesDir)

	analyzer := &vision.FlowAnalyzer{
		FS:             fs,
		Estimator:      vision.DefaultBlockMatcher(),
		OutputDir:      *outDir,
		VectorSpacing:  params.VectorSpacing,
		IntensityScale: params.IntensityScale,
	}
	dispatcher := &pipeline.Dispatcher{Analyzer: analyzer, Workers: params.EffectiveWorkers()}
	results, err := dispatcher.Run(ctx, units)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	speeds := pipeline.Speeds(results)
	series := pipeline.DerivedSeries{
		Accelerations: pipeline.Accelerations(speeds, params.FrameRate),
		MeanSpeed:     pipeline.MeanSpeed(speeds),
	}

	sink := &report.Sink{FS: fs, OutputDir: *outDir}
	data := report.Data{Mode: pipeline.Pairwise, Results: results, Series: series, FrameRate: params.FrameRate}
	if _, err := sink.WritePlots(data); err != nil {
		log.Fatalf("write plots: %v", err)
	}
	htmlPath, err := sink.WriteHTML(data)
	if err != nil {
		log.Fatalf("write report: %v", err)
	}
	monitoring.Logf("report written to %s", htmlPath)

	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("open run store: %v", err)
		}
		defer st.Close()
		_, err = st.SaveRun(ctx, store.Run{
			Mode:       pipeline.Pairwise,
			InputDir:   *framesDir,
			Params:     params,
			FrameRate:  params.FrameRate,
			MeanSpeed:  series.MeanSpeed,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}, results, series)
		if err != nil {
			log.Fatalf("persist run: %v", err)
		}
	}

	monitoring.Logf("mean speed %.3f px/frame over %d pairs", series.MeanSpeed, len(results))
	if series.MeanSpeed < minMeanSpeed {
		monitoring.Warnf("mean speed %.3f below activity threshold %.1f", series.MeanSpeed, minMeanSpeed)
		os.Exit(1)
	}
}
