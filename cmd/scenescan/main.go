// Command scenescan analyses each captured frame independently: active-pixel
// density, centroid, mean colour, and Hough circle/line event detections.
// Frame-to-frame deltas and density alerts are derived afterwards, and the
// circle and line event series are cross-correlated to estimate their phase
// offset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
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
		fmt.Printf("scenescan %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
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
	units, err := indexer.Units(pipeline.PerFrame)
	if err != nil {
		log.Fatalf("index frames: %v", err)
	}
	monitoring.Logf("analysing %d frames from %s", len(units), *framesDir)

	dispatcher := &pipeline.Dispatcher{
		Analyzer: vision.NewSceneAnalyzer(fs, *outDir),
		Workers:  params.EffectiveWorkers(),
	}
	results, err := dispatcher.Run(ctx, units)
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	frames := make([]pipeline.FrameData, len(results))
	for i, r := range results {
		frames[i] = r.Frame
	}
	deltas, warnings := pipeline.Deltas(frames, params.DeltaTolerancePx)
	densities := pipeline.Densities(results)
	circles, lines := pipeline.EventCounts(results)
	corr, lags := pipeline.CrossCorrelate(circles, lines)

	series := pipeline.DerivedSeries{
		Deltas:   deltas,
		Warnings: warnings,
		Alerts: pipeline.Alerts(densities, deltas, pipeline.AlertBand{
			DensityMin:   params.DensityMin,
			DensityMax:   params.DensityMax,
			DeltaCeiling: params.DeltaCeiling,
		}),
		Correlation: corr,
		Lags:        lags,
		BestLag:     pipeline.BestLag(corr, lags),
	}

	alertCount := 0
	for i, a := range series.Alerts {
		if a != "" {
			alertCount++
			monitoring.Warnf("frame %d: %s", i, a)
		}
	}

	sink := &report.Sink{FS: fs, OutputDir: *outDir}
	data := report.Data{Mode: pipeline.PerFrame, Results: results, Series: series, FrameRate: params.FrameRate}
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
			Mode:       pipeline.PerFrame,
			InputDir:   *framesDir,
			Params:     params,
			FrameRate:  params.FrameRate,
			BestLag:    series.BestLag,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}, results, series)
		if err != nil {
			log.Fatalf("persist run: %v", err)
		}
	}

	monitoring.Logf("%d frames analysed, %d alerts, best event lag %d frames",
		len(results), alertCount, series.BestLag)
}
