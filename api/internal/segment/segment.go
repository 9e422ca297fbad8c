// Package segment finds word-sized regions of dark ink on a light page:
// global threshold, 4-connected components, then line and word grouping.
package segment

import (
	"image"
	"image/color"
	"sort"

	"golang.org/x/image/draw"
)

const (
	DefaultThreshold     = 128
	DefaultHorizontalGap = 70
	DefaultVerticalGap   = 40
	// Components whose width or height (x1-x0, y1-y0) does not exceed this
	// are treated as noise.
	MinComponentSize = 5
)

// Box is an inclusive pixel rectangle relative to the image origin.
type Box struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

func (b Box) Width() int  { return b.X1 - b.X0 + 1 }
func (b Box) Height() int { return b.Y1 - b.Y0 + 1 }

// Mask is a binary image, true marks foreground (ink).
type Mask struct {
	W, H int
	Pix  []bool
}

func (m *Mask) At(x, y int) bool { return m.Pix[y*m.W+x] }

// Binarize marks a pixel as foreground when the rounded mean of its R, G and B
// channels is <= threshold. Alpha is ignored.
func Binarize(img image.Image, threshold int) *Mask {
	b := img.Bounds()
	m := &Mask{W: b.Dx(), H: b.Dy(), Pix: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			gray := (int(c.R) + int(c.G) + int(c.B) + 1) / 3
			m.Pix[y*m.W+x] = gray <= threshold
		}
	}
	return m
}

// DetectComponents returns the bounding boxes of 4-connected foreground
// components in row-major order of their first pixel, dropping noise.
func DetectComponents(m *Mask) []Box {
	visited := make([]bool, len(m.Pix))
	var boxes []Box
	var stack []int
	for start := range m.Pix {
		if !m.Pix[start] || visited[start] {
			continue
		}
		sx, sy := start%m.W, start/m.W
		box := Box{X0: sx, Y0: sy, X1: sx, Y1: sy}
		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%m.W, i/m.W
			box.X0, box.X1 = min(box.X0, x), max(box.X1, x)
			box.Y0, box.Y1 = min(box.Y0, y), max(box.Y1, y)

			if x > 0 {
				stack = visit(m, visited, stack, i-1)
			}
			if x+1 < m.W {
				stack = visit(m, visited, stack, i+1)
			}
			if y > 0 {
				stack = visit(m, visited, stack, i-m.W)
			}
			if y+1 < m.H {
				stack = visit(m, visited, stack, i+m.W)
			}
		}
		if box.X1-box.X0 > MinComponentSize && box.Y1-box.Y0 > MinComponentSize {
			boxes = append(boxes, box)
		}
	}
	return boxes
}

func visit(m *Mask, visited []bool, stack []int, i int) []int {
	if m.Pix[i] && !visited[i] {
		visited[i] = true
		stack = append(stack, i)
	}
	return stack
}

// GroupWords assigns each box to the first line whose first box has a top
// edge within vertical pixels, then merges boxes left to right while the gap
// to the current word is at most horizontal. Lines keep creation order.
func GroupWords(boxes []Box, horizontal, vertical int) []Box {
	var lines [][]Box
	for _, b := range boxes {
		placed := false
		for i := range lines {
			if abs(b.Y0-lines[i][0].Y0) <= vertical {
				lines[i] = append(lines[i], b)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []Box{b})
		}
	}

	var words []Box
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })
		cur := line[0]
		for _, b := range line[1:] {
			if b.X0-cur.X1 <= horizontal {
				cur.X1 = max(cur.X1, b.X1)
				cur.Y0 = min(cur.Y0, b.Y0)
				cur.Y1 = max(cur.Y1, b.Y1)
				continue
			}
			words = append(words, cur)
			cur = b
		}
		words = append(words, cur)
	}
	return words
}

// DetectWords runs the full pipeline with default thresholds.
func DetectWords(img image.Image) []Box {
	return GroupWords(DetectComponents(Binarize(img, DefaultThreshold)), DefaultHorizontalGap, DefaultVerticalGap)
}

// Crop copies the inclusive box out of img into a new bitmap anchored at
// (0,0). The box is clipped to the image.
func Crop(img image.Image, b Box) *image.RGBA {
	bounds := img.Bounds()
	r := image.Rect(b.X0, b.Y0, b.X1+1, b.Y1+1).Add(bounds.Min).Intersect(bounds)
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
