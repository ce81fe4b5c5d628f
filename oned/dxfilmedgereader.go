package oned

import (
	"fmt"
	"sort"

	zxinggo "github.com/ericlevine/zxinggo"
	"github.com/ericlevine/zxinggo/bitutil"
)

// DX Film Edge is the 1D barcode printed between sprocket holes on
// 35mm still film, encoding a 7-bit product number (DX1), a 4-bit
// generation number (DX2), and, in the longer clock variant, a 7-bit
// half-frame index. Detection runs in two passes that cooperate
// across rows of one image: findClock locates the uniformly striped
// clock track and remembers it, and decodeData later correlates a
// data band against whichever clock is nearest on the X axis.

const (
	clockPatternLengthHF      = 31
	clockPatternLengthNoHF    = 23
	dataStartPatternSize      = 5
	dataLengthHF              = 23
	dataLengthNoHF            = 15
	minClockNoHFQuietZone     = 2.0
	minClockHFQuietZone       = 1.0
	minDataQuietZone          = 0.5
	pixelToleranceRatio       = 0.5
	dxfeMaxAvgVariance        = 0.4
	dxfeMaxIndividualVariance = 0.5
)

var (
	clockCommonPattern = newFixedPattern(concat([]int{5}, repeat(14, 1)))
	clockHFPattern     = newFixedPattern(concat([]int{5}, repeat(23, 1), []int{3}))
	clockNoHFPattern   = newFixedPattern(concat([]int{5}, repeat(15, 1), []int{3}))
	dataStartPattern   = newFixedPattern(repeat(5, 1))
	dataStopPattern    = newFixedPattern(repeat(3, 1))
)

// clockSelfScanBits is the HF clock's own run pattern expressed as
// data bits. A data decode that recovers exactly this vector means the
// scan re-read the clock track as if it were the data track.
var clockSelfScanBits = []bool{
	false, true, false, true, false, true, false, true,
	false, true, false, true, false, true, false, true,
	true, true, false, false, false, false, false,
}

// clockRecord describes one clock pattern detected on some row of the
// current image.
type clockRecord struct {
	rowNumber         int
	containsHalfFrame bool
	xStart, xStop     int
	pixelTolerance    float64
}

func (c clockRecord) xStartInRange(x int) bool {
	return float64(absInt(x-c.xStart)) <= c.pixelTolerance
}

func (c clockRecord) xStopInRange(x int) bool {
	return float64(absInt(x-c.xStop)) <= c.pixelTolerance
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// clockRegistry is a per-image ordered set of clock records, keyed by
// xStart. Realistic images carry at most a couple of clocks, so a
// sorted slice scanned linearly is plenty.
type clockRegistry struct {
	clocks []clockRecord
}

func (r *clockRegistry) len() int { return len(r.clocks) }

// nearest returns the entry whose xStart is closest to x, preferring
// the lower xStart on an exact tie.
func (r *clockRegistry) nearest(x int) (clockRecord, bool) {
	n := len(r.clocks)
	if n == 0 {
		return clockRecord{}, false
	}
	idx := sort.Search(n, func(i int) bool { return r.clocks[i].xStart >= x })
	if idx == 0 {
		return r.clocks[0], true
	}
	if idx == n {
		return r.clocks[n-1], true
	}
	prev, next := r.clocks[idx-1], r.clocks[idx]
	if x-prev.xStart <= next.xStart-x {
		return prev, true
	}
	return next, true
}

func (r *clockRegistry) indexOfXStart(x int) int {
	for i, c := range r.clocks {
		if c.xStart == x {
			return i
		}
	}
	return -1
}

func (r *clockRegistry) removeAt(i int) {
	r.clocks = append(r.clocks[:i], r.clocks[i+1:]...)
}

func (r *clockRegistry) insertSorted(rec clockRecord) {
	idx := sort.Search(len(r.clocks), func(i int) bool { return r.clocks[i].xStart >= rec.xStart })
	r.clocks = append(r.clocks, clockRecord{})
	copy(r.clocks[idx+1:], r.clocks[idx:])
	r.clocks[idx] = rec
}

// insertOrRefine inserts rec, unless an existing entry's xStart lies
// within the larger of the two tolerances, in which case that entry
// is replaced in place by rec.
func (r *clockRegistry) insertOrRefine(rec clockRecord) {
	if near, ok := r.nearest(rec.xStart); ok {
		tol := near.pixelTolerance
		if rec.pixelTolerance > tol {
			tol = rec.pixelTolerance
		}
		if float64(absInt(rec.xStart-near.xStart)) <= tol {
			if i := r.indexOfXStart(near.xStart); i >= 0 {
				r.removeAt(i)
			}
			r.insertSorted(rec)
			return
		}
	}
	r.insertSorted(rec)
}

// refineEdges updates the clock whose xStart is oldXStart with newly
// observed edges, keeping its row number, variant and tolerance.
func (r *clockRegistry) refineEdges(oldXStart, newXStart, newXStop int) {
	i := r.indexOfXStart(oldXStart)
	if i < 0 {
		return
	}
	rec := r.clocks[i]
	r.removeAt(i)
	rec.xStart = newXStart
	rec.xStop = newXStop
	r.insertSorted(rec)
}

// locateClock attempts to detect a clock pattern in view and, on
// success, inserts or refines an entry in reg.
func locateClock(rowNumber int, view patternView, reg *clockRegistry) {
	commonQuiet := minClockNoHFQuietZone
	if minClockHFQuietZone < commonQuiet {
		commonQuiet = minClockHFQuietZone
	}
	common, ok := FindLeftGuard(view, clockCommonPattern, commonQuiet)
	if !ok {
		return
	}
	rel := common.offset - view.offset

	containsHF := true
	matched, ok := matchPatternAt(view, rel, clockHFPattern, minClockHFQuietZone)
	if !ok {
		containsHF = false
		matched, ok = matchPatternAt(view, rel, clockNoHFPattern, minClockNoHFQuietZone)
	}
	if !ok {
		return
	}

	rec := clockRecord{
		rowNumber:         rowNumber,
		containsHalfFrame: containsHF,
		xStart:            matched.PixelsInFront(),
		xStop:             matched.PixelsTillEnd(),
	}
	unitLen := clockPatternLengthNoHF
	if containsHF {
		unitLen = clockPatternLengthHF
	}
	rec.pixelTolerance = float64(rec.xStop-rec.xStart) / float64(unitLen) * pixelToleranceRatio
	reg.insertOrRefine(rec)
}

// decodeData attempts to decode a data band in view, correlating it
// against the nearest previously located clock in reg.
func decodeData(rowNumber int, view patternView, reg *clockRegistry) (*zxinggo.Result, error) {
	if reg.len() == 0 {
		return nil, zxinggo.ErrNotFound
	}

	start, ok := FindLeftGuard(view, dataStartPattern, minDataQuietZone)
	if !ok {
		return nil, zxinggo.ErrNotFound
	}

	xStart := start.PixelsInFront()
	clock, ok := reg.nearest(xStart)
	if !ok || !clock.xStartInRange(xStart) {
		return nil, zxinggo.ErrNotFound
	}
	if clock.rowNumber > rowNumber {
		return nil, zxinggo.ErrNotFound
	}

	perBarRawWidth := start.Width()
	if perBarRawWidth <= 0 {
		return nil, zxinggo.ErrNotFound
	}

	cur := start.Shift(dataStartPatternSize)

	length := dataLengthNoHF
	if clock.containsHalfFrame {
		length = dataLengthHF
	}

	bits := make([]bool, 0, length)
	signalLength := 0
	currentIsBlack := false
	for signalLength < length {
		if !cur.Valid() {
			return nil, zxinggo.ErrNotFound
		}
		raw := cur.Width()
		if raw == 0 {
			return nil, zxinggo.ErrNotFound
		}

		w := raw / perBarRawWidth
		if raw%perBarRawWidth >= perBarRawWidth/2 {
			w++
		}
		signalLength += w

		for w > 0 && len(bits) < length {
			bits = append(bits, currentIsBlack)
			w--
		}

		currentIsBlack = !currentIsBlack
		cur = cur.Shift(1)
	}

	if signalLength != length {
		return nil, zxinggo.ErrNotFound
	}

	stopView := cur.Sub(len(dataStopPattern.Widths))
	if !IsRightGuard(stopView, dataStopPattern, minDataQuietZone) {
		return nil, zxinggo.ErrNotFound
	}

	if bits[0] || bits[8] {
		return nil, zxinggo.ErrNotFound
	}
	if clock.containsHalfFrame {
		if bits[20] || bits[22] {
			return nil, zxinggo.ErrNotFound
		}
	} else if bits[14] {
		return nil, zxinggo.ErrNotFound
	}

	if clock.containsHalfFrame && bitsEqual(bits, clockSelfScanBits) {
		return nil, zxinggo.ErrNotFound
	}

	sum := 0
	for i := 0; i < length-2; i++ {
		if bits[i] {
			sum++
		}
	}
	parityBit := 0
	if bits[length-2] {
		parityBit = 1
	}
	if sum%2 != parityBit {
		return nil, zxinggo.ErrNotFound
	}

	productNumber := bitsToInt(bits[1:8])
	if productNumber == 0 {
		return nil, zxinggo.ErrNotFound
	}
	generationNumber := bitsToInt(bits[9:13])

	var text string
	if clock.containsHalfFrame {
		halfFrame := bitsToInt(bits[13:20])
		text = fmt.Sprintf("%d-%d/%d", productNumber, generationNumber, halfFrame/2)
		if halfFrame%2 != 0 {
			text += "A"
		}
	} else {
		text = fmt.Sprintf("%d-%d", productNumber, generationNumber)
	}

	xStop := stopView.PixelsTillEnd()
	if !clock.xStopInRange(xStop) {
		return nil, zxinggo.ErrNotFound
	}

	if xStart != clock.xStart || xStop != clock.xStop {
		reg.refineEdges(clock.xStart, xStart, xStop)
	}

	res := zxinggo.NewResult(
		text, nil,
		[]zxinggo.ResultPoint{
			{X: float64(xStart), Y: float64(rowNumber)},
			{X: float64(xStop), Y: float64(rowNumber)},
		},
		zxinggo.FormatDXFilmEdge,
	)
	res.PutMetadata(zxinggo.MetadataSymbologyIdentifier, "]I0")
	return res, nil
}

func bitsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bitsToInt decodes a slice of bits MSB-first into an integer.
func bitsToInt(bits []bool) int {
	n := 0
	for _, b := range bits {
		n <<= 1
		if b {
			n |= 1
		}
	}
	return n
}

// DXFilmEdgeReader decodes DX Film Edge barcodes from a single row at
// a time. A reader instance carries the clock registry for one image
// across repeated DecodeRow calls; construct a fresh reader (or call
// Reset) per image.
type DXFilmEdgeReader struct {
	clocks clockRegistry
}

// NewDXFilmEdgeReader creates a new DX Film Edge reader.
func NewDXFilmEdgeReader() *DXFilmEdgeReader {
	return &DXFilmEdgeReader{}
}

// DecodeRow decodes a DX Film Edge barcode from a single row.
func (r *DXFilmEdgeReader) DecodeRow(rowNumber int, row *bitutil.BitArray, opts *zxinggo.DecodeOptions) (*zxinggo.Result, error) {
	runs := rowRuns(row)
	if len(runs) == 0 {
		return nil, zxinggo.ErrNotFound
	}
	view := newPatternView(runs, row.Get(0))

	locateClock(rowNumber, view, &r.clocks)
	return decodeData(rowNumber, view, &r.clocks)
}

// Reset discards any clocks located so far, for reuse across images.
func (r *DXFilmEdgeReader) Reset() {
	r.clocks = clockRegistry{}
}

// Ensure DXFilmEdgeReader implements RowDecoder at compile time.
var _ RowDecoder = (*DXFilmEdgeReader)(nil)
