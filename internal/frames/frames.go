// Package frames reads reconstructed particle positions, one frame per
// time step, from the count-prefixed text format the reconstruction stage
// writes:
//
//	n0
//	x y z
//	...        (n0 lines)
//	n1
//	x y z
//	...
//
// Tokens may be separated by any whitespace.
package frames

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/banshee-data/velocity.ptv/internal/ptv"
)

// DefaultFrames is the number of frames a reconstruction run writes.
const DefaultFrames = 30

// maxPrealloc bounds the capacity reserved from a frame's declared count,
// which comes straight from the file.
const maxPrealloc = 1 << 16

// ErrTruncated is wrapped when the input ends inside a frame.
var ErrTruncated = errors.New("truncated frame data")

// Volume is the axis-aligned extent of a frame. Bounds start at the origin,
// so a frame entirely in the positive octant reports X1 = Y1 = Z1 = 0.
type Volume struct {
	X1, X2 float64
	Y1, Y2 float64
	Z1, Z2 float64
}

func (v *Volume) extend(p ptv.Point) {
	v.X1, v.X2 = min(v.X1, p.X), max(v.X2, p.X)
	v.Y1, v.Y2 = min(v.Y1, p.Y), max(v.Y2, p.Y)
	v.Z1, v.Z2 = min(v.Z1, p.Z), max(v.Z2, p.Z)
}

// Frame is one time step.
type Frame struct {
	Points ptv.Cloud
	Volume Volume
}

type tokenReader struct {
	sc *bufio.Scanner
}

func (t *tokenReader) next() (string, error) {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return t.sc.Text(), nil
}

func (t *tokenReader) float() (float64, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(tok, 64)
}

// Read parses up to maxFrames frames from r. maxFrames <= 0 reads until
// end of input. Input that ends cleanly between frames is not an error, so
// fewer than maxFrames frames may be returned.
func Read(r io.Reader, maxFrames int) ([]Frame, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	tr := &tokenReader{sc: sc}

	var out []Frame
	for f := 0; maxFrames <= 0 || f < maxFrames; f++ {
		tok, err := tr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", f, err)
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("frame %d: invalid point count %q", f, tok)
		}
		if n < 0 {
			return nil, fmt.Errorf("frame %d: negative point count %d", f, n)
		}

		frame := Frame{Points: make(ptv.Cloud, 0, min(n, maxPrealloc))}
		for j := 0; j < n; j++ {
			var p ptv.Point
			for _, dst := range []*float64{&p.X, &p.Y, &p.Z} {
				v, err := tr.float()
				if err == io.EOF {
					return nil, fmt.Errorf("frame %d point %d of %d: %w", f, j, n, ErrTruncated)
				}
				if err != nil {
					return nil, fmt.Errorf("frame %d point %d: %w", f, j, err)
				}
				*dst = v
			}
			frame.Volume.extend(p)
			frame.Points = append(frame.Points, p)
		}
		out = append(out, frame)
	}
	return out, nil
}

// ReadFile opens path and calls Read.
func ReadFile(path string, maxFrames int) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open points file: %w", err)
	}
	defer f.Close()

	frames, err := Read(f, maxFrames)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return frames, nil
}

// PointsInRegion returns the indices of the points of frame within r of
// centre, boundary included, in frame order.
func PointsInRegion(frame ptv.Cloud, centre ptv.Point, r float64) []int {
	var out []int
	for i, p := range frame {
		if ptv.Distance(p, centre) <= r {
			out = append(out, i)
		}
	}
	return out
}
