package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/velocity.ptv/internal/config"
	"github.com/banshee-data/velocity.ptv/internal/frames"
	"github.com/banshee-data/velocity.ptv/internal/monitoring"
	"github.com/banshee-data/velocity.ptv/internal/ptv"
	"github.com/banshee-data/velocity.ptv/internal/storage/sqlite"
	"github.com/banshee-data/velocity.ptv/internal/testutil"
)

// writePoints writes a three-frame file of a cloud drifting by d per frame.
func writePoints(t *testing.T, c ptv.Cloud, d ptv.Point) string {
	t.Helper()
	var buf bytes.Buffer
	for f := 0; f < 3; f++ {
		fmt.Fprintf(&buf, "%d\n", len(c))
		for _, p := range c {
			fmt.Fprintf(&buf, "%.17g %.17g %.17g\n", p.X, p.Y, p.Z)
		}
		c = testutil.Translate(c, d)
	}
	path := filepath.Join(t.TempDir(), "points.txt")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func testOptions(points string) options {
	return options{
		pointsPath: points,
		from:       0,
		to:         2,
		rn:         6,
		rs:         3,
		workers:    1,
		index:      string(ptv.IndexScan),
		set:        map[string]bool{"rn": true, "rs": true},
	}
}

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

func TestRun(t *testing.T) {
	cloud := testutil.PseudoRandomCloud(40, 1, 20)
	o := testOptions(writePoints(t, cloud, ptv.Point{X: 0.5, Y: -0.3, Z: 0.2}))
	o.dbPath = filepath.Join(t.TempDir(), "runs.db")
	o.plotDir = filepath.Join(t.TempDir(), "plots")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), o, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "frames 0-1: matched 40/40")
	assert.Contains(t, lines[1], "frames 1-2: matched 40/40")

	db, err := sqlite.Open(o.dbPath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := sqlite.NewRunStore(db).ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	for _, name := range []string{"matches_000_001.png", "convergence_001_002.html"} {
		_, err := os.Stat(filepath.Join(o.plotDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_FrameRange(t *testing.T) {
	o := testOptions(writePoints(t, testutil.PseudoRandomCloud(5, 2, 10), ptv.Point{X: 1}))
	o.to = 3

	err := run(context.Background(), o, &bytes.Buffer{})
	assert.ErrorContains(t, err, "outside the 3 frames")
}

func TestRun_BadConfig(t *testing.T) {
	o := testOptions(writePoints(t, testutil.PseudoRandomCloud(5, 2, 10), ptv.Point{X: 1}))
	o.configPath = "tuning.toml"

	assert.Error(t, run(context.Background(), o, &bytes.Buffer{}))
}

func TestOptionsParams(t *testing.T) {
	cfg := config.FromParams(ptv.DefaultParams())

	o := options{rn: 3, rs: 4, workers: 8, index: "grid", set: map[string]bool{"rs": true, "index": true}}
	p := o.params(cfg)

	assert.Equal(t, ptv.DefaultNeighborRadius, p.NeighborRadius, "unset flag keeps the tuning value")
	assert.Equal(t, 4.0, p.SearchRadius)
	assert.Equal(t, 1, p.Workers)
	assert.Equal(t, ptv.IndexGrid, p.Index)
}

func TestRun_Region(t *testing.T) {
	cloud := testutil.PseudoRandomCloud(40, 1, 20)
	o := testOptions(writePoints(t, cloud, ptv.Point{X: 0.5, Y: -0.3, Z: 0.2}))
	o.to = 1
	o.region = "10,10,10,8"
	o.dbPath = filepath.Join(t.TempDir(), "runs.db")

	inside := frames.PointsInRegion(cloud, ptv.Point{X: 10, Y: 10, Z: 10}, 8)
	require.NotEmpty(t, inside)
	require.Less(t, len(inside), len(cloud))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), o, &out))
	assert.Contains(t, out.String(), fmt.Sprintf("/%d (", len(inside)))

	db, err := sqlite.Open(o.dbPath)
	require.NoError(t, err)
	defer db.Close()
	store := sqlite.NewRunStore(db)
	runs, err := store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, len(inside), runs[0].SourceCount)

	matches, err := store.ListMatches(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Contains(t, inside, m.Source, "source indices refer to the full frame")
	}
}

func TestParseRegion(t *testing.T) {
	r, err := parseRegion("1, 2.5,-3,4")
	require.NoError(t, err)
	assert.Equal(t, ptv.Point{X: 1, Y: 2.5, Z: -3}, r.centre)
	assert.Equal(t, 4.0, r.radius)

	for _, bad := range []string{"", "1,2,3", "1,2,3,x", "0,0,0,-1"} {
		_, err := parseRegion(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegionSelectSource(t *testing.T) {
	c := ptv.Cloud{{X: 0}, {X: 5}, {X: 1}}

	var none *region
	sub, idx := none.selectSource(c)
	assert.Equal(t, c, sub)
	assert.Nil(t, idx)

	r := &region{radius: 1}
	sub, idx = r.selectSource(c)
	assert.Equal(t, ptv.Cloud{{X: 0}, {X: 1}}, sub)
	assert.Equal(t, []int{0, 2}, idx)
}
