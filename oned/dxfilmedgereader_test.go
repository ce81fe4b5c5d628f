package oned

import (
	"testing"

	zxinggo "github.com/ericlevine/zxinggo"
	"github.com/ericlevine/zxinggo/bitutil"
)

// buildRunRow renders a sequence of run widths (in abstract units) into a
// BitArray at unitPx pixels per unit, alternating color starting at
// startBlack. This is the natural construction for DX Film Edge test rows:
// the decoder itself consumes run-length arrays, not an encoded bitstream.
func buildRunRow(unitPx int, startBlack bool, widths []int) *bitutil.BitArray {
	var bits []bool
	black := startBlack
	for _, w := range widths {
		for i := 0; i < w*unitPx; i++ {
			bits = append(bits, black)
		}
		black = !black
	}
	row := bitutil.NewBitArray(len(bits))
	for i, b := range bits {
		if b {
			row.Set(i)
		}
	}
	return row
}

const dxfeQuietUnits = 20
const dxfeUnitPx = 4

// clockHFRow and clockNoHFRow build a row containing only a clock pattern.
func clockHFRow() *bitutil.BitArray {
	widths := append([]int{dxfeQuietUnits}, clockHFPattern.Widths...)
	widths = append(widths, dxfeQuietUnits)
	return buildRunRow(dxfeUnitPx, false, widths)
}

func clockNoHFRow() *bitutil.BitArray {
	widths := append([]int{dxfeQuietUnits}, clockNoHFPattern.Widths...)
	widths = append(widths, dxfeQuietUnits)
	return buildRunRow(dxfeUnitPx, false, widths)
}

// dataRow builds a row containing only a data band, given the run widths
// (in units) of the payload between DATA_START and DATA_STOP.
func dataRow(payload []int) *bitutil.BitArray {
	return dataRowAt(dxfeQuietUnits, payload)
}

// dataRowAt is dataRow with an explicit leading quiet zone, letting a test
// move the data band's x_start relative to a previously registered clock.
func dataRowAt(quietUnits int, payload []int) *bitutil.BitArray {
	widths := []int{quietUnits}
	widths = append(widths, dataStartPattern.Widths...)
	widths = append(widths, payload...)
	widths = append(widths, dataStopPattern.Widths...)
	widths = append(widths, dxfeQuietUnits)
	return buildRunRow(dxfeUnitPx, false, widths)
}

// nonHFBits builds a 15-bit non-HF data vector for the given product and
// generation numbers, with the separator bits forced to bit0/bit8/bit14
// (normally all false) so tests can construct deliberately invalid rows.
// The parity bit is always computed correctly over whatever bit0/bit8 end
// up holding, so a forced separator violation is isolated from parity.
func nonHFBits(bit0, bit8 bool, product, generation int, bit14 bool) []bool {
	bits := make([]bool, 15)
	bits[0] = bit0
	for i := 0; i < 7; i++ {
		bits[1+i] = product&(1<<(6-i)) != 0
	}
	bits[8] = bit8
	for i := 0; i < 4; i++ {
		bits[9+i] = generation&(1<<(3-i)) != 0
	}
	sum := 0
	for i := 0; i < 13; i++ {
		if bits[i] {
			sum++
		}
	}
	bits[13] = sum%2 == 1
	bits[14] = bit14
	return bits
}

// hfBits is nonHFBits' HF counterpart: a 23-bit vector with product,
// generation and half-frame numbers, and the separator bits forced to
// bit0/bit8/bit20/bit22 (normally all false).
func hfBits(bit0, bit8 bool, product, generation, halfFrame int, bit20, bit22 bool) []bool {
	bits := make([]bool, 23)
	bits[0] = bit0
	for i := 0; i < 7; i++ {
		bits[1+i] = product&(1<<(6-i)) != 0
	}
	bits[8] = bit8
	for i := 0; i < 4; i++ {
		bits[9+i] = generation&(1<<(3-i)) != 0
	}
	for i := 0; i < 7; i++ {
		bits[13+i] = halfFrame&(1<<(6-i)) != 0
	}
	bits[20] = bit20
	sum := 0
	for i := 0; i < 21; i++ {
		if bits[i] {
			sum++
		}
	}
	bits[21] = sum%2 == 1
	bits[22] = bit22
	return bits
}

// --- DX Film Edge round trips ---

func TestDXFilmEdgeRoundTripHF(t *testing.T) {
	// product=42 (0101010), generation=3 (0011), half_frame=10 (0001010, even -> no 'A')
	// bits: 0 sep, 1-7 product, 8 sep, 9-12 generation, 13-19 half frame, 20 sep, 21 parity, 22 sep
	payload := []int{2, 1, 1, 1, 1, 1, 4, 2, 3, 1, 1, 1, 2, 1, 1}

	reader := NewDXFilmEdgeReader()

	if _, err := reader.DecodeRow(0, clockHFRow(), nil); err == nil {
		t.Fatal("expected clock-only row to not decode a result")
	}

	result, err := reader.DecodeRow(1, dataRow(payload), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Text != "42-3/5" {
		t.Errorf("got %q, want %q", result.Text, "42-3/5")
	}
	if result.Format != zxinggo.FormatDXFilmEdge {
		t.Errorf("format mismatch: got %v, want %v", result.Format, zxinggo.FormatDXFilmEdge)
	}
}

func TestDXFilmEdgeRoundTripHFOddHalfFrame(t *testing.T) {
	// Same as above but half_frame=11 (0001011, odd -> 'A' suffix), which
	// changes the parity bit relative to the even case.
	// bits: 0 F,1-7 0101010,8 F,9-12 0011,13-19 0001011,20 F,21 parity,22 F
	bits := []bool{
		false,
		false, true, false, true, false, true, false,
		false,
		false, false, true, true,
		false, false, false, true, false, true, true,
		false,
	}
	sum := 0
	for _, b := range bits {
		if b {
			sum++
		}
	}
	parity := sum%2 == 1
	bits = append(bits, parity, false)

	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockHFRow(), nil)

	result, err := reader.DecodeRow(1, dataRow(bitsToRunWidths(bits)), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Text != "42-3/5A" {
		t.Errorf("got %q, want %q", result.Text, "42-3/5A")
	}
}

func TestDXFilmEdgeRoundTripNoHF(t *testing.T) {
	// product=42 (0101010), generation=3 (0011)
	// bits: 0 sep, 1-7 product, 8 sep, 9-12 generation, 13 parity, 14 sep
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}

	reader := NewDXFilmEdgeReader()
	if _, err := reader.DecodeRow(0, clockNoHFRow(), nil); err == nil {
		t.Fatal("expected clock-only row to not decode a result")
	}

	result, err := reader.DecodeRow(1, dataRow(payload), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Text != "42-3" {
		t.Errorf("got %q, want %q", result.Text, "42-3")
	}
}

// bitsToRunWidths groups consecutive equal bits into run widths (in units),
// matching the run-length encoding a real scanned row would produce.
func bitsToRunWidths(bits []bool) []int {
	var widths []int
	cur := bits[0]
	count := 0
	for _, b := range bits {
		if b == cur {
			count++
			continue
		}
		widths = append(widths, count)
		cur = b
		count = 1
	}
	return append(widths, count)
}

// --- Ordering and correlation ---

func TestDXFilmEdgeDataWithoutClockNotFound(t *testing.T) {
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}
	reader := NewDXFilmEdgeReader()
	if _, err := reader.DecodeRow(0, dataRow(payload), nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}
}

func TestDXFilmEdgeClockAfterDataRowRejected(t *testing.T) {
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}
	reader := NewDXFilmEdgeReader()

	// Clock located on row 5.
	reader.DecodeRow(5, clockNoHFRow(), nil)

	// A data band on an earlier row (2) must not correlate with a clock
	// that was only established later.
	if _, err := reader.DecodeRow(2, dataRow(payload), nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}

	// The same data band on a later row succeeds.
	result, err := reader.DecodeRow(6, dataRow(payload), nil)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Text != "42-3" {
		t.Errorf("got %q, want %q", result.Text, "42-3")
	}
}

func TestDXFilmEdgeRejectsBadParity(t *testing.T) {
	// Same payload as TestDXFilmEdgeRoundTripNoHF but with the parity bit
	// flipped, redistributing the run boundary between the parity and
	// trailing separator bits.
	payload := []int{2, 1, 1, 1, 1, 1, 4, 2, 2}

	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockNoHFRow(), nil)
	if _, err := reader.DecodeRow(1, dataRow(payload), nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}
}

func TestDXFilmEdgeReset(t *testing.T) {
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}
	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockNoHFRow(), nil)
	reader.Reset()

	if _, err := reader.DecodeRow(1, dataRow(payload), nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v; Reset should have discarded the clock", err, zxinggo.ErrNotFound)
	}
}

// --- clockRegistry ---

func TestClockRegistryNearestTieBreak(t *testing.T) {
	reg := &clockRegistry{}
	reg.insertSorted(clockRecord{xStart: 100})
	reg.insertSorted(clockRecord{xStart: 200})

	// Exactly equidistant from both (150): must prefer the lower key.
	got, ok := reg.nearest(150)
	if !ok || got.xStart != 100 {
		t.Errorf("nearest(150) = %+v, want xStart=100", got)
	}

	got, ok = reg.nearest(151)
	if !ok || got.xStart != 200 {
		t.Errorf("nearest(151) = %+v, want xStart=200", got)
	}
}

func TestClockRegistryInsertOrRefine(t *testing.T) {
	reg := &clockRegistry{}
	reg.insertOrRefine(clockRecord{xStart: 100, xStop: 200, pixelTolerance: 5})
	if reg.len() != 1 {
		t.Fatalf("len = %d, want 1", reg.len())
	}

	// Within tolerance of the existing entry: replaces rather than adding.
	reg.insertOrRefine(clockRecord{xStart: 102, xStop: 203, pixelTolerance: 5})
	if reg.len() != 1 {
		t.Fatalf("len = %d, want 1 after refine", reg.len())
	}
	if reg.clocks[0].xStart != 102 {
		t.Errorf("xStart = %d, want 102", reg.clocks[0].xStart)
	}

	// Far outside tolerance: adds a second entry.
	reg.insertOrRefine(clockRecord{xStart: 900, xStop: 1000, pixelTolerance: 5})
	if reg.len() != 2 {
		t.Fatalf("len = %d, want 2", reg.len())
	}
}

// --- patternView bounds ---

func TestPatternViewValidNearEnd(t *testing.T) {
	// Regression test: Valid() must depend only on the cursor position,
	// not on a previously declared match window, so a one-element-at-a-time
	// walk to the very last run stays valid.
	view := newPatternView([]int{1, 2, 3}, true)
	for i := 0; i < 3; i++ {
		if !view.Valid() {
			t.Fatalf("offset %d unexpectedly invalid", i)
		}
		view = view.Shift(1)
	}
	if view.Valid() {
		t.Error("offset 3 should be past the end")
	}
}

func TestPatternViewSubDoesNotBoundShift(t *testing.T) {
	view := newPatternView([]int{1, 1, 1, 1, 1}, true)
	m, ok := matchPatternAt(view, 0, dataStartPattern, 0)
	if !ok {
		t.Fatal("expected match")
	}
	cur := m.Shift(len(dataStartPattern.Widths))
	if cur.Valid() {
		t.Error("expected cursor to be past the end of a 5-element row after shifting by 5")
	}
}

// --- MultiFormatOneDReader wiring ---

func TestMultiFormatOneDReaderDXFilmEdge(t *testing.T) {
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}
	opts := &zxinggo.DecodeOptions{PossibleFormats: []zxinggo.Format{zxinggo.FormatDXFilmEdge}}
	reader := NewMultiFormatOneDReader(opts)

	reader.DecodeRow(0, clockNoHFRow(), opts)
	result, err := reader.DecodeRow(1, dataRow(payload), opts)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Text != "42-3" {
		t.Errorf("got %q, want %q", result.Text, "42-3")
	}
}

// --- Structural validation invariants ---

// TestDXFilmEdgeRejectsClockSelfScan builds a data band whose recovered bit
// vector equals the HF clock's own self-scan signature. Every other
// structural check (separators, parity, nonzero product) passes on this
// vector, so a rejection here can only come from the explicit guard against
// re-reading the clock track as a data band.
func TestDXFilmEdgeRejectsClockSelfScan(t *testing.T) {
	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockHFRow(), nil)

	_, err := reader.DecodeRow(1, dataRow(bitsToRunWidths(clockSelfScanBits)), nil)
	if err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}
}

// TestDXFilmEdgeToleranceEnforced moves a valid data band far enough from a
// registered clock's x_start that it falls outside the clock's pixel
// tolerance, and must therefore fail to correlate.
func TestDXFilmEdgeToleranceEnforced(t *testing.T) {
	payload := []int{2, 1, 1, 1, 1, 1, 4, 3, 1}

	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockNoHFRow(), nil)

	// The NoHF clock's own tolerance is a couple of pixels; 100 extra quiet
	// units (400px at dxfeUnitPx=4) is far beyond it.
	far := dataRowAt(dxfeQuietUnits+100, payload)
	if _, err := reader.DecodeRow(1, far, nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}
}

func TestDXFilmEdgeRejectsSetSeparator(t *testing.T) {
	tests := []struct {
		name  string
		clock func() *bitutil.BitArray
		bits  []bool
	}{
		{"nonHF bit0", clockNoHFRow, nonHFBits(true, false, 42, 3, false)},
		{"nonHF bit8", clockNoHFRow, nonHFBits(false, true, 42, 3, false)},
		{"nonHF bit14", clockNoHFRow, nonHFBits(false, false, 42, 3, true)},
		{"HF bit0", clockHFRow, hfBits(true, false, 42, 3, 10, false, false)},
		{"HF bit8", clockHFRow, hfBits(false, true, 42, 3, 10, false, false)},
		{"HF bit20", clockHFRow, hfBits(false, false, 42, 3, 10, true, false)},
		{"HF bit22", clockHFRow, hfBits(false, false, 42, 3, 10, false, true)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader := NewDXFilmEdgeReader()
			reader.DecodeRow(0, tc.clock(), nil)
			if _, err := reader.DecodeRow(1, dataRow(bitsToRunWidths(tc.bits)), nil); err != zxinggo.ErrNotFound {
				t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
			}
		})
	}
}

func TestDXFilmEdgeRejectsZeroProduct(t *testing.T) {
	reader := NewDXFilmEdgeReader()
	reader.DecodeRow(0, clockNoHFRow(), nil)

	bits := nonHFBits(false, false, 0, 3, false)
	if _, err := reader.DecodeRow(1, dataRow(bitsToRunWidths(bits)), nil); err != zxinggo.ErrNotFound {
		t.Errorf("got err %v, want %v", err, zxinggo.ErrNotFound)
	}
}
