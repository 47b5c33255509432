// Command ptv-track matches particles between consecutive frames of a
// reconstructed points file and reports the recovered displacements.
//
// Usage:
//
//	ptv-track -points points.txt -rn 20 -rs 20 [-from 0 -to 1] [-config tuning.json]
//	          [-db runs.db] [-plot out/] [-workers 4] [-index kdtree] [-verbose]
//	          [-region x,y,z,r]
//
// With -region only the particles of the earlier frame of each pair that lie
// within r of (x,y,z) are tracked; the later frame is searched whole.
// Reported and stored source indices always refer to the full frame.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/velocity.ptv/internal/config"
	"github.com/banshee-data/velocity.ptv/internal/frames"
	"github.com/banshee-data/velocity.ptv/internal/monitoring"
	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/banshee-data/velocity.ptv/internal/ptv/debug"
	"github.com/banshee-data/velocity.ptv/internal/report"
	"github.com/banshee-data/velocity.ptv/internal/storage/sqlite"
	"github.com/banshee-data/velocity.ptv/internal/units"
)

// Version information (set via ldflags)
var (
	version = "dev"
	gitSHA  = "unknown"
)

type options struct {
	pointsPath string
	configPath string
	dbPath     string
	plotDir    string
	from, to   int
	maxFrames  int
	rn, rs     float64
	workers    int
	index      string
	region     string
	verbose    bool

	// set records which flags were given explicitly; those override the
	// tuning file.
	set map[string]bool
}

func main() {
	var o options
	flag.StringVar(&o.pointsPath, "points", "", "reconstructed points file (required)")
	flag.Float64Var(&o.rn, "rn", ptv.DefaultNeighborRadius, "neighbour radius R_n within the first frame")
	flag.Float64Var(&o.rs, "rs", ptv.DefaultSearchRadius, "search radius R_s into the second frame")
	flag.IntVar(&o.from, "from", 0, "first frame of the range")
	flag.IntVar(&o.to, "to", 1, "last frame of the range; pairs (from,from+1)...(to-1,to) are tracked")
	flag.IntVar(&o.maxFrames, "frames", frames.DefaultFrames, "maximum frames to read from the points file (0 = all)")
	flag.StringVar(&o.configPath, "config", "", "tuning file (.json, .yaml)")
	flag.StringVar(&o.dbPath, "db", "", "sqlite database to record runs in")
	flag.StringVar(&o.plotDir, "plot", "", "directory for match plots and convergence charts")
	flag.IntVar(&o.workers, "workers", 1, "goroutines per solver iteration")
	flag.StringVar(&o.index, "index", string(ptv.IndexScan), "neighbour search: scan, grid or kdtree")
	flag.StringVar(&o.region, "region", "", "track only particles within r of x,y,z (format x,y,z,r)")
	flag.BoolVar(&o.verbose, "verbose", false, "log every pipeline stage")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ptv-track %s (%s)\n", version, gitSHA)
		return
	}
	if o.pointsPath == "" {
		log.Fatalf("-points is required")
	}

	o.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, os.Stdout); err != nil {
		log.Fatalf("ptv-track: %v", err)
	}
}

// params merges the tuning file with explicitly set flags.
func (o options) params(cfg *config.TuningConfig) ptv.Params {
	p := cfg.Params()
	if o.set["rn"] {
		p.NeighborRadius = o.rn
	}
	if o.set["rs"] {
		p.SearchRadius = o.rs
	}
	if o.set["workers"] {
		p.Workers = o.workers
	}
	if o.set["index"] {
		p.Index = ptv.IndexStrategy(o.index)
	}
	return p
}

// region is a spherical selection of source particles.
type region struct {
	centre ptv.Point
	radius float64
}

func parseRegion(s string) (*region, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return nil, fmt.Errorf("region %q: want x,y,z,r", s)
	}
	var v [4]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = x
	}
	if v[3] < 0 {
		return nil, fmt.Errorf("region %q: negative radius", s)
	}
	return &region{centre: ptv.Point{X: v[0], Y: v[1], Z: v[2]}, radius: v[3]}, nil
}

// selectSource restricts c to the region. The returned indices map positions
// in the subset back to c; they are nil when no region is set.
func (r *region) selectSource(c ptv.Cloud) (ptv.Cloud, []int) {
	if r == nil {
		return c, nil
	}
	idx := frames.PointsInRegion(c, r.centre, r.radius)
	sub := make(ptv.Cloud, len(idx))
	for i, k := range idx {
		sub[i] = c[k]
	}
	return sub, idx
}

func run(ctx context.Context, o options, out io.Writer) error {
	monitoring.SetVerbose(o.verbose)

	cfg := config.EmptyTuningConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadTuningConfig(o.configPath); err != nil {
			return err
		}
	}
	params := o.params(cfg)

	var sel *region
	if o.region != "" {
		var err error
		if sel, err = parseRegion(o.region); err != nil {
			return err
		}
	}

	all, err := frames.ReadFile(o.pointsPath, o.maxFrames)
	if err != nil {
		return err
	}
	if o.from < 0 || o.to <= o.from || o.to >= len(all) {
		return fmt.Errorf("frame range %d-%d outside the %d frames read", o.from, o.to, len(all))
	}

	var engineOpts []ptv.EngineOption
	var collector *debug.Collector
	if o.plotDir != "" {
		if err := os.MkdirAll(o.plotDir, 0o755); err != nil {
			return fmt.Errorf("create plot dir: %w", err)
		}
		collector = debug.NewCollector()
		collector.SetEnabled(true)
		engineOpts = append(engineOpts, ptv.WithObserver(collector))
	}

	engine, err := ptv.NewEngine(params, engineOpts...)
	if err != nil {
		return err
	}

	var store *sqlite.RunStore
	if o.dbPath != "" {
		db, err := sqlite.Open(o.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		store = sqlite.NewRunStore(db)
	}

	dt := cfg.GetFrameInterval().Seconds()
	for f := o.from; f < o.to; f++ {
		v := all[f].Volume
		monitoring.Debugf("[ptv-track] frame %d: %d points in x[%g,%g] y[%g,%g] z[%g,%g]",
			f, len(all[f].Points), v.X1, v.X2, v.Y1, v.Y2, v.Z1, v.Z2)

		a, idx := sel.selectSource(all[f].Points)
		b := all[f+1].Points
		if collector != nil {
			collector.BeginRun(fmt.Sprintf("frames-%d-%d", f, f+1))
		}

		res, err := engine.Correspond(ctx, a, b)
		if err != nil {
			return fmt.Errorf("frames %d-%d: %w", f, f+1, err)
		}
		vs, err := ptv.Velocities(res.Matches, a, b, dt)
		if err != nil {
			return fmt.Errorf("frames %d-%d: %w", f, f+1, err)
		}
		if idx != nil {
			for i := range res.Matches {
				res.Matches[i].Source = idx[res.Matches[i].Source]
			}
			for i := range vs {
				vs[i].Source = idx[vs[i].Source]
			}
		}
		summary := ptv.SummarizeDisplacements(vs, len(a))
		speed, err := units.Speed(summary.MeanMagnitude, cfg.GetLengthUnit(), dt, cfg.GetSpeedUnit())
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "frames %d-%d: matched %d/%d (%.1f%%) mean displacement (%.4g, %.4g, %.4g) mean speed %.4g %s\n",
			f, f+1, summary.Count, len(a), 100*summary.MatchRatio,
			summary.Mean.X, summary.Mean.Y, summary.Mean.Z, speed, cfg.GetSpeedUnit())

		if store != nil {
			run, matches, err := sqlite.NewRun(o.pointsPath, f, f+1, engine.Params(), res, vs, summary)
			if err != nil {
				return err
			}
			if err := store.InsertRun(ctx, run, matches); err != nil {
				return fmt.Errorf("record frames %d-%d: %w", f, f+1, err)
			}
			monitoring.Debugf("[ptv-track] stored run %s", run.RunID)
		}

		if collector != nil {
			title := fmt.Sprintf("%s frames %d-%d", filepath.Base(o.pointsPath), f, f+1)
			plotPath := filepath.Join(o.plotDir, fmt.Sprintf("matches_%03d_%03d.png", f, f+1))
			if err := report.PlotMatches(plotPath, title, vs); err != nil {
				return err
			}
			chartPath := filepath.Join(o.plotDir, fmt.Sprintf("convergence_%03d_%03d.html", f, f+1))
			if err := report.WriteConvergenceChartFile(chartPath, collector.Emit()); err != nil {
				return err
			}
		}
	}
	return nil
}
