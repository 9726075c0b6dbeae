package vision

import (
	"math"
	"sort"
)

// Circle is a detected circular feature.
type Circle struct {
	X, Y   int
	Radius int
}

// Segment is a detected linear feature.
type Segment struct {
	X1, Y1, X2, Y2 int
}

// CircleParams configures circular-feature detection.
type CircleParams struct {
	// MinDist is the minimum separation between accepted centers (px).
	MinDist int
	// EdgeThreshold is the gradient magnitude (0..255) above which a pixel
	// is treated as an edge.
	EdgeThreshold float64
	// AccumThreshold is the minimum number of accumulator votes a center
	// needs to be accepted.
	AccumThreshold int
	// MinRadius and MaxRadius bound the radius search (px).
	MinRadius int
	MaxRadius int
}

// DefaultCircleParams matches the scene pipeline's tuned detection settings.
func DefaultCircleParams() CircleParams {
	return CircleParams{
		MinDist:        15,
		EdgeThreshold:  50,
		AccumThreshold: 30,
		MinRadius:      5,
		MaxRadius:      50,
	}
}

// LineParams configures linear-feature detection.
type LineParams struct {
	// EdgeThreshold is the gradient magnitude (0..255) above which a pixel
	// is treated as an edge.
	EdgeThreshold float64
	// AccumThreshold is the minimum number of votes a (theta, rho) line
	// needs before segments are extracted along it.
	AccumThreshold int
	// MinLineLength is the minimum accepted segment length (px).
	MinLineLength int
	// MaxLineGap is the largest run of non-edge pixels tolerated inside a
	// segment (px).
	MaxLineGap int
}

// DefaultLineParams matches the scene pipeline's tuned detection settings.
func DefaultLineParams() LineParams {
	return LineParams{
		EdgeThreshold:  50,
		AccumThreshold: 50,
		MinLineLength:  10,
		MaxLineGap:     5,
	}
}

// edgeMap computes a normalised Sobel gradient magnitude plane plus the raw
// gradient components. Magnitudes are scaled into 0..~255 so thresholds stay
// comparable to 8-bit intensities.
func edgeMap(gray []float64, w, h int) (mag, gx, gy []float64) {
	mag = make([]float64, w*h)
	gx = make([]float64, w*h)
	gy = make([]float64, w*h)
	if w < 3 || h < 3 {
		return mag, gx, gy
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			sx := -gray[i-w-1] + gray[i-w+1] +
				-2*gray[i-1] + 2*gray[i+1] +
				-gray[i+w-1] + gray[i+w+1]
			sy := -gray[i-w-1] - 2*gray[i-w] - gray[i-w+1] +
				gray[i+w-1] + 2*gray[i+w] + gray[i+w+1]
			gx[i] = sx
			gy[i] = sy
			mag[i] = math.Hypot(sx, sy) / 4
		}
	}
	return mag, gx, gy
}

// medianBlur3 applies a 3x3 median filter, suppressing speckle noise before
// circle voting.
func medianBlur3(gray []float64, w, h int) []float64 {
	out := make([]float64, len(gray))
	copy(out, gray)
	if w < 3 || h < 3 {
		return out
	}
	var window [9]float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[k] = gray[(y+dy)*w+(x+dx)]
					k++
				}
			}
			sort.Float64s(window[:])
			out[y*w+x] = window[4]
		}
	}
	return out
}

// DetectCircles finds circular features via gradient-directed Hough voting:
// every edge pixel votes along its gradient ray in both directions for each
// candidate radius, centers accumulate votes, and accepted peaks are
// suppressed within MinDist of a stronger peak. The radius reported per
// center is the median distance of the radially-aligned edge pixels that
// support it.
func DetectCircles(f *Frame, p CircleParams) []Circle {
	w, h := f.Width, f.Height
	gray := medianBlur3(f.Gray(), w, h)
	mag, gx, gy := edgeMap(gray, w, h)

	type edgePoint struct {
		x, y   int
		ux, uy float64
	}
	var edges []edgePoint
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if mag[i] < p.EdgeThreshold {
				continue
			}
			norm := math.Hypot(gx[i], gy[i])
			if norm == 0 {
				continue
			}
			edges = append(edges, edgePoint{x: x, y: y, ux: gx[i] / norm, uy: gy[i] / norm})
		}
	}
	if len(edges) == 0 {
		return nil
	}

	acc := make([]int, w*h)
	for _, e := range edges {
		for r := p.MinRadius; r <= p.MaxRadius; r++ {
			for _, sign := range [2]float64{1, -1} {
				cx := int(math.Round(float64(e.x) + sign*float64(r)*e.ux))
				cy := int(math.Round(float64(e.y) + sign*float64(r)*e.uy))
				if cx < 0 || cx >= w || cy < 0 || cy >= h {
					continue
				}
				acc[cy*w+cx]++
			}
		}
	}

	type peak struct {
		x, y, votes int
	}
	var peaks []peak
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := acc[y*w+x]; v >= p.AccumThreshold {
				peaks = append(peaks, peak{x: x, y: y, votes: v})
			}
		}
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].votes > peaks[b].votes })

	var circles []Circle
	for _, pk := range peaks {
		tooClose := false
		for _, c := range circles {
			if (pk.x-c.X)*(pk.x-c.X)+(pk.y-c.Y)*(pk.y-c.Y) < p.MinDist*p.MinDist {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		// Estimate radius from radially aligned supporting edge pixels.
		var dists []float64
		for _, e := range edges {
			dx := float64(e.x - pk.x)
			dy := float64(e.y - pk.y)
			d := math.Hypot(dx, dy)
			if d < float64(p.MinRadius) || d > float64(p.MaxRadius) || d == 0 {
				continue
			}
			// Gradient must point toward or away from the center.
			cosAngle := (dx*e.ux + dy*e.uy) / d
			if math.Abs(cosAngle) < 0.9 {
				continue
			}
			dists = append(dists, d)
		}
		if len(dists) == 0 {
			continue
		}
		sort.Float64s(dists)
		radius := int(math.Round(dists[len(dists)/2]))

		circles = append(circles, Circle{X: pk.x, Y: pk.y, Radius: radius})
	}
	return circles
}

// DetectLines finds linear features with a standard Hough transform followed
// by segment extraction: edge pixels vote over (theta, rho), and for each
// accepted line the edge pixels along it are grouped into runs, tolerating
// gaps up to MaxLineGap and discarding runs shorter than MinLineLength.
func DetectLines(f *Frame, p LineParams) []Segment {
	w, h := f.Width, f.Height
	gray := f.Gray()
	mag, _, _ := edgeMap(gray, w, h)

	edge := make([]bool, w*h)
	edgeCount := 0
	for i := range mag {
		if mag[i] >= p.EdgeThreshold {
			edge[i] = true
			edgeCount++
		}
	}
	if edgeCount == 0 {
		return nil
	}

	const thetaSteps = 180
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	rhoBins := 2*diag + 1

	sinT := make([]float64, thetaSteps)
	cosT := make([]float64, thetaSteps)
	for t := 0; t < thetaSteps; t++ {
		rad := float64(t) * math.Pi / float64(thetaSteps)
		sinT[t] = math.Sin(rad)
		cosT[t] = math.Cos(rad)
	}

	acc := make([]int, thetaSteps*rhoBins)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edge[y*w+x] {
				continue
			}
			for t := 0; t < thetaSteps; t++ {
				rho := int(math.Round(float64(x)*cosT[t] + float64(y)*sinT[t]))
				acc[t*rhoBins+rho+diag]++
			}
		}
	}

	type linePeak struct {
		theta, rho, votes int
	}
	var peaks []linePeak
	for t := 0; t < thetaSteps; t++ {
		for r := 0; r < rhoBins; r++ {
			if v := acc[t*rhoBins+r]; v >= p.AccumThreshold {
				peaks = append(peaks, linePeak{theta: t, rho: r - diag, votes: v})
			}
		}
	}
	sort.Slice(peaks, func(a, b int) bool { return peaks[a].votes > peaks[b].votes })

	consumed := make([]bool, w*h)
	var segments []Segment
	for _, pk := range peaks {
		segs := traceSegments(edge, consumed, w, h, cosT[pk.theta], sinT[pk.theta], pk.rho, diag, p)
		segments = append(segments, segs...)
	}
	return segments
}

// traceSegments walks along the line rho = x·cosθ + y·sinθ collecting edge
// runs. Pixels used by an accepted segment are consumed so overlapping peaks
// do not report duplicates.
func traceSegments(edge, consumed []bool, w, h int, cosT, sinT float64, rho, diag int, p LineParams) []Segment {
	// Point on the line closest to the origin, direction along the line.
	px := float64(rho) * cosT
	py := float64(rho) * sinT
	dirX, dirY := -sinT, cosT

	type pt struct{ x, y int }
	var segments []Segment

	var runPts []pt
	gap := 0
	flush := func() {
		if len(runPts) > 0 {
			first, last := runPts[0], runPts[len(runPts)-1]
			length := math.Hypot(float64(last.x-first.x), float64(last.y-first.y))
			if length >= float64(p.MinLineLength) {
				for _, q := range runPts {
					consumed[q.y*w+q.x] = true
				}
				segments = append(segments, Segment{X1: first.x, Y1: first.y, X2: last.x, Y2: last.y})
			}
		}
		runPts = runPts[:0]
		gap = 0
	}

	for t := -diag; t <= diag; t++ {
		x := int(math.Round(px + float64(t)*dirX))
		y := int(math.Round(py + float64(t)*dirY))
		if x < 0 || x >= w || y < 0 || y >= h {
			flush()
			continue
		}
		i := y*w + x
		if edge[i] && !consumed[i] {
			runPts = append(runPts, pt{x: x, y: y})
			gap = 0
			continue
		}
		if len(runPts) > 0 {
			gap++
			if gap > p.MaxLineGap {
				flush()
			}
		}
	}
	flush()
	return segments
}
