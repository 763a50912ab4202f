package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func newSheet(t *testing.T, edits [][2]string) *spreadsheet.Sheet {
	t.Helper()
	sheet := spreadsheet.NewSheet()
	for _, edit := range edits {
		if err := sheet.SetCell(edit[0], edit[1]); err != nil {
			t.Fatalf("set %s = %q: %v", edit[0], edit[1], err)
		}
	}
	return sheet
}

var sampleEdits = [][2]string{
	{"A1", "5"},
	{"A2", "=A1*2"},
	{"B1", "hello"},
	{"C3", "=SUM(A1:A2)"},
	{"D4", "=1/0"},
	{"ZZZ999", "=AVG(A1:A2)"},
}

func TestRoundTrip(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			source := newSheet(t, sampleEdits)
			data, err := Encode(Capture(source), tag)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			snap, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if len(snap.Cells) != len(sampleEdits) {
				t.Fatalf("got %d cells, want %d", len(snap.Cells), len(sampleEdits))
			}

			restored := spreadsheet.NewSheet()
			if err := Restore(restored, snap); err != nil {
				t.Fatalf("Restore: %v", err)
			}
			for _, edit := range sampleEdits {
				want, _ := source.Value(edit[0])
				got, _ := restored.Value(edit[0])
				if got != want {
					t.Errorf("%s: got %v, want %v", edit[0], got, want)
				}
				wantText, _ := source.FormulaText(edit[0])
				gotText, _ := restored.FormulaText(edit[0])
				if gotText != wantText {
					t.Errorf("%s formula: got %q, want %q", edit[0], gotText, wantText)
				}
			}
		})
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	first, err := Encode(Capture(newSheet(t, sampleEdits)), CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Encode(Capture(newSheet(t, sampleEdits)), CompressionZstd)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same sheet twice produced different bytes")
	}
}

func TestIncompressibleFallsBack(t *testing.T) {
	// a tiny payload never shrinks
	data, err := Encode(Capture(spreadsheet.NewSheet()), CompressionLZ4)
	if err != nil {
		t.Fatal(err)
	}
	h, err := Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if h.Compression != CompressionNone {
		t.Errorf("got compression %s, want none", h.Compression)
	}
}

func TestLargeSheetCompresses(t *testing.T) {
	sheet := spreadsheet.NewSheet()
	for row := 1; row <= 500; row++ {
		if err := sheet.SetCell(fmt.Sprintf("A%d", row), "=SUM(B1:B10)+1"); err != nil {
			t.Fatal(err)
		}
	}
	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		data, err := Encode(Capture(sheet), tag)
		if err != nil {
			t.Fatal(err)
		}
		h, err := Inspect(data)
		if err != nil {
			t.Fatal(err)
		}
		if h.Compression != tag {
			t.Errorf("got compression %s, want %s", h.Compression, tag)
		}
		if len(data)-headerSize >= h.Size {
			t.Errorf("%s: body of %d bytes is not smaller than payload of %d", tag, len(data)-headerSize, h.Size)
		}
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	data, err := Encode(Capture(newSheet(t, sampleEdits)), CompressionNone)
	if err != nil {
		t.Fatal(err)
	}

	flipped := bytes.Clone(data)
	flipped[len(flipped)-1] ^= 0xff
	if _, err := Decode(flipped); !errors.Is(err, ErrChecksum) {
		t.Errorf("flipped payload: got %v, want ErrChecksum", err)
	}

	if _, err := Decode(data[:headerSize-1]); !errors.Is(err, ErrFormat) {
		t.Errorf("truncated header: got %v, want ErrFormat", err)
	}
	if _, err := Decode([]byte("not a snapshot at all, just some text padding it out")); !errors.Is(err, ErrFormat) {
		t.Errorf("bad magic: got %v, want ErrFormat", err)
	}
	if _, err := Decode(data[:len(data)-3]); !errors.Is(err, ErrFormat) {
		t.Errorf("truncated payload: got %v, want ErrFormat", err)
	}
}

func TestRestoreRejectedLeavesSheet(t *testing.T) {
	sheet := newSheet(t, [][2]string{{"A1", "7"}})
	snap := &Snapshot{
		Version: Version,
		Cells: []Cell{
			{Ref: "A1", Formula: "=B1"},
			{Ref: "B1", Formula: "=A1"},
		},
	}
	err := Restore(sheet, snap)
	if spreadsheet.StatusOf(err) != spreadsheet.StatusCycleDetected {
		t.Fatalf("got %v, want cycle detected", err)
	}
	if v := sheet.Get(mustID(t, "A1")); v != spreadsheet.Number(7) {
		t.Errorf("A1 = %v after rejected restore, want 7", v)
	}
}

func TestCompressionTagNames(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		parsed, err := ParseCompressionTag(tag.String())
		if err != nil || parsed != tag {
			t.Errorf("ParseCompressionTag(%q) = %v, %v", tag.String(), parsed, err)
		}
	}
	if _, err := ParseCompressionTag("gzip"); err == nil {
		t.Error("expected an error for gzip")
	}
}

func TestDigestKeyed(t *testing.T) {
	payload := []byte("payload")
	if Sum(payload) != Sum(payload) {
		t.Error("digest is not stable")
	}
	if Sum(payload) == Sum([]byte("payloae")) {
		t.Error("different payloads share a digest")
	}
	if len(Sum(payload).String()) != DigestSize*2 {
		t.Errorf("hex digest has length %d", len(Sum(payload).String()))
	}
}

func mustID(t *testing.T, ref string) spreadsheet.CellID {
	t.Helper()
	id, err := spreadsheet.ParseCellID(ref, spreadsheet.DefaultBounds())
	if err != nil {
		t.Fatal(err)
	}
	return id
}
