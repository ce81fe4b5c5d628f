package oned

import "github.com/ericlevine/zxinggo/bitutil"

// FixedPattern is a compile-time-known sequence of bar/space widths
// (bar first) used as a reference pattern, together with the sum of
// its widths at unit scale.
type FixedPattern struct {
	Widths []int
	Sum    int
}

func newFixedPattern(widths []int) FixedPattern {
	sum := 0
	for _, w := range widths {
		sum += w
	}
	return FixedPattern{Widths: widths, Sum: sum}
}

func repeat(n int, w int) []int {
	ws := make([]int, n)
	for i := range ws {
		ws[i] = w
	}
	return ws
}

func concat(parts ...[]int) []int {
	var out []int
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// patternView is a non-owning cursor over one row's run-length array:
// full holds every bar/space width from the start of the row, and
// prefix holds the running pixel sum (prefix[i] is the pixel offset
// of full[i]). offset is the cursor; window is the element count of
// whatever fixed pattern the view last matched against, used only to
// answer PixelsTillEnd/IsRightGuard about that match — it plays no
// part in Valid()/Width(), so walking the view one element at a time
// via Shift never needs a lookahead buffer. Shifting or narrowing a
// view never mutates full or prefix; it produces a new patternView
// over the same backing arrays.
type patternView struct {
	full       []int
	prefix     []int
	offset     int
	window     int
	blackFirst bool
}

// newPatternView builds a view over an entire row's run-length array.
// blackFirst indicates whether full[0] is a bar (as opposed to a space).
func newPatternView(full []int, blackFirst bool) patternView {
	prefix := make([]int, len(full)+1)
	for i, w := range full {
		prefix[i+1] = prefix[i] + w
	}
	return patternView{full: full, prefix: prefix, blackFirst: blackFirst}
}

// rowRuns extracts the full run-length array for one binarized row,
// starting with whatever run touches pixel 0.
func rowRuns(row *bitutil.BitArray) []int {
	size := row.Size()
	if size == 0 {
		return nil
	}
	runs := make([]int, 0, 32)
	isBlack := row.Get(0)
	count := 0
	for i := 0; i < size; i++ {
		if row.Get(i) == isBlack {
			count++
			continue
		}
		runs = append(runs, count)
		isBlack = !isBlack
		count = 1
	}
	return append(runs, count)
}

// Valid reports whether the cursor still addresses an element of the
// underlying run-length array.
func (v patternView) Valid() bool {
	return v.offset >= 0 && v.offset < len(v.full)
}

// Width returns the raw pixel width of the run at the cursor.
func (v patternView) Width() int {
	return v.full[v.offset]
}

// colorAt reports whether the run rel elements ahead of the cursor is
// a bar (true) or a space (false).
func (v patternView) colorAt(rel int) bool {
	return v.blackFirst == ((v.offset+rel)%2 == 0)
}

// Shift advances the cursor by k elements.
func (v patternView) Shift(k int) patternView {
	v.offset += k
	return v
}

// Sub narrows the view to a declared window of n elements starting at
// the cursor, without moving the cursor. The window only affects
// PixelsTillEnd and IsRightGuard; it is not a bound on further Shifts.
func (v patternView) Sub(n int) patternView {
	v.window = n
	return v
}

// PixelsInFront returns the pixel offset from the row's start to the cursor.
func (v patternView) PixelsInFront() int {
	return v.prefix[v.offset]
}

// PixelsTillEnd returns the pixel offset from the row's start to the
// end of the view's declared window (see Sub).
func (v patternView) PixelsTillEnd() int {
	return v.prefix[v.offset+v.window]
}

// matchPatternAt tests pattern against the window starting rel
// elements ahead of view's cursor, without sliding. It requires the
// window to start on a bar and the run immediately preceding it (if
// any) to be at least minQuietZone unit-widths wide. On success it
// returns a view positioned at the match, with its window set to the
// pattern's element count.
func matchPatternAt(view patternView, rel int, pattern FixedPattern, minQuietZone float64) (patternView, bool) {
	n := len(pattern.Widths)
	if rel < 0 || view.offset+rel+n > len(view.full) {
		return patternView{}, false
	}
	if !view.colorAt(rel) {
		return patternView{}, false
	}
	start := view.offset + rel
	window := view.full[start : start+n]
	if PatternMatchVariance(window, pattern.Widths, dxfeMaxIndividualVariance) >= dxfeMaxAvgVariance {
		return patternView{}, false
	}
	total := 0
	for _, w := range window {
		total += w
	}
	unit := float64(total) / float64(pattern.Sum)

	precedingIdx := start - 1
	if precedingIdx >= 0 {
		if float64(view.full[precedingIdx]) < minQuietZone*unit {
			return patternView{}, false
		}
	}
	return patternView{full: view.full, prefix: view.prefix, offset: start, window: n, blackFirst: view.blackFirst}, true
}

// FindLeftGuard slides forward from view's cursor looking for a
// bar-first match of pattern with a sufficient leading quiet zone,
// returning a view positioned at the match's first bar.
func FindLeftGuard(view patternView, pattern FixedPattern, minQuietZone float64) (patternView, bool) {
	n := len(pattern.Widths)
	limit := len(view.full) - view.offset
	for rel := 0; rel+n <= limit; rel++ {
		if m, ok := matchPatternAt(view, rel, pattern, minQuietZone); ok {
			return m, true
		}
	}
	return patternView{}, false
}

// IsRightGuard verifies that view (already narrowed via Sub to
// pattern's element count) matches pattern and is followed by a
// sufficient trailing quiet zone, if a further run exists.
func IsRightGuard(view patternView, pattern FixedPattern, minQuietZone float64) bool {
	n := len(pattern.Widths)
	if view.window != n || view.offset+n > len(view.full) || !view.colorAt(0) {
		return false
	}
	window := view.full[view.offset : view.offset+n]
	if PatternMatchVariance(window, pattern.Widths, dxfeMaxIndividualVariance) >= dxfeMaxAvgVariance {
		return false
	}
	total := 0
	for _, w := range window {
		total += w
	}
	unit := float64(total) / float64(pattern.Sum)

	after := view.offset + n
	if after < len(view.full) {
		if float64(view.full[after]) < minQuietZone*unit {
			return false
		}
	}
	return true
}
