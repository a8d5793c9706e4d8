package pdfsub

import (
	"sort"
	"strings"
)

// Cell is one positioned run of extracted page text, usually a single
// character. Coordinates are PDF user space: origin bottom-left, y up,
// X/Y at the run's baseline start.
type Cell struct {
	S        string
	X        float64
	Y        float64
	W        float64
	FontSize float64
	Font     string
}

// Rect is an axis-aligned region in page coordinates, X0 <= X1, Y0 <= Y1.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Occurrence is one located match of a needle on the page. Rect bounds the
// matched glyph run; cells index into the layer as of the Find call and stay
// valid until the next Redact.
type Occurrence struct {
	Rect  Rect
	cells []int
}

// Line baselines within lineTol points are treated as one visual line.
const lineTol = 2.0

// Glyph boxes extend above and below the baseline by these fractions of the
// font size.
const (
	ascentFactor  = 0.75
	descentFactor = 0.25
)

// Synthetic cells use this average per-rune advance, as a fraction of the
// font size.
const avgAdvanceFactor = 0.5

// Layer is the in-memory model of the first page's rendered text. Rules
// search it, redact matched cells out of it, and insert replacement cells
// into it, so each rule sees the page state left by the previous one.
type Layer struct {
	cells []Cell
}

// NewLayer builds a layer over the extracted cells.
func NewLayer(cells []Cell) *Layer {
	owned := make([]Cell, len(cells))
	copy(owned, cells)
	return &Layer{cells: owned}
}

// Len reports the number of live cells.
func (l *Layer) Len() int {
	return len(l.cells)
}

// Find locates every non-overlapping occurrence of needle, in reading order:
// top-to-bottom by line, left-to-right within a line. A needle never matches
// across lines.
func (l *Layer) Find(needle string) []Occurrence {
	if needle == "" {
		return nil
	}

	var occs []Occurrence
	for _, line := range l.lines() {
		text, spans := lineText(l.cells, line)
		from := 0
		for {
			rel := strings.Index(text[from:], needle)
			if rel < 0 {
				break
			}
			start := from + rel
			end := start + len(needle)

			var covered []int
			for i, span := range spans {
				if span.end > start && span.start < end {
					covered = append(covered, line[i])
				}
			}
			occs = append(occs, Occurrence{
				Rect:  l.boundCells(covered),
				cells: covered,
			})
			from = end
		}
	}
	return occs
}

// Redact removes every cell covered by the given occurrences. Their indexes
// refer to the state of the preceding Find; interleaving another Redact
// invalidates them.
func (l *Layer) Redact(occs []Occurrence) {
	if len(occs) == 0 {
		return
	}
	drop := make(map[int]bool)
	for _, occ := range occs {
		for _, i := range occ.cells {
			drop[i] = true
		}
	}
	kept := l.cells[:0]
	for i, c := range l.cells {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	l.cells = kept
}

// Insert adds a synthetic cell for text drawn at baseline (x, y) with the
// given font size, making it visible to subsequent Finds. The advance is
// approximated from the rune count.
func (l *Layer) Insert(text string, x, y, size float64) {
	if text == "" {
		return
	}
	l.cells = append(l.cells, Cell{
		S:        text,
		X:        x,
		Y:        y,
		W:        float64(len([]rune(text))) * avgAdvanceFactor * size,
		FontSize: size,
		Font:     insertFontName,
	})
}

// lines groups live cells into visual lines and orders them for reading:
// lines top-down, cells left-to-right. Returned values are cell indexes.
func (l *Layer) lines() [][]int {
	idx := make([]int, len(l.cells))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return l.cells[idx[a]].Y > l.cells[idx[b]].Y
	})

	var lines [][]int
	var cur []int
	var baseY float64
	for _, i := range idx {
		if len(cur) > 0 && baseY-l.cells[i].Y > lineTol {
			lines = append(lines, cur)
			cur = nil
		}
		if len(cur) == 0 {
			baseY = l.cells[i].Y
		}
		cur = append(cur, i)
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}

	for _, line := range lines {
		sort.SliceStable(line, func(a, b int) bool {
			return l.cells[line[a]].X < l.cells[line[b]].X
		})
	}
	return lines
}

type span struct {
	start, end int
}

// lineText concatenates a line's cell strings and records each cell's byte
// range within the result.
func lineText(cells []Cell, line []int) (string, []span) {
	var b strings.Builder
	spans := make([]span, 0, len(line))
	for _, i := range line {
		start := b.Len()
		b.WriteString(cells[i].S)
		spans = append(spans, span{start: start, end: b.Len()})
	}
	return b.String(), spans
}

// boundCells computes the bounding region of a covered cell run. Vertical
// extent comes from the largest font size in the run.
func (l *Layer) boundCells(covered []int) Rect {
	if len(covered) == 0 {
		return Rect{}
	}
	first := l.cells[covered[0]]
	r := Rect{X0: first.X, X1: first.X + first.W}
	baseline := first.Y
	size := first.FontSize
	for _, i := range covered[1:] {
		c := l.cells[i]
		if c.X < r.X0 {
			r.X0 = c.X
		}
		if c.X+c.W > r.X1 {
			r.X1 = c.X + c.W
		}
		if c.FontSize > size {
			size = c.FontSize
		}
	}
	r.Y0 = baseline - descentFactor*size
	r.Y1 = baseline + ascentFactor*size
	return r
}
