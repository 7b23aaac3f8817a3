package pngchunk

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"testing"

	"github.com/imagetoprompts/naimeta/internal/models"
)

func chunk(typ string, payload []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(payload)))
	buf.WriteString(typ)
	buf.Write(payload)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(payload)
	_ = binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func ihdr(w, h uint32) []byte {
	p := make([]byte, 13)
	binary.BigEndian.PutUint32(p[0:4], w)
	binary.BigEndian.PutUint32(p[4:8], h)
	p[8] = 8 // bit depth
	p[9] = 6 // truecolour with alpha
	return chunk(TypeIHDR, p)
}

func itxt(keyword, text string) []byte {
	var p []byte
	p = append(p, keyword...)
	p = append(p, 0, 0, 0) // NUL, compression flag, compression method
	p = append(p, "en"...)
	p = append(p, 0)
	p = append(p, 0) // empty translated keyword
	p = append(p, text...)
	return chunk(TypeITXt, p)
}

func png(chunks ...[]byte) []byte {
	b := []byte(Signature)
	for _, c := range chunks {
		b = append(b, c...)
	}
	return b
}

func TestDecodeRejectsNonPNG(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "nil", input: nil},
		{name: "shorter than signature", input: []byte{0x89, 'P', 'N', 'G'}},
		{name: "jpeg magic", input: append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, chunk(TypeTEXt, []byte("a\x00b"))...)},
		{name: "plain text", input: []byte("prompt: a cat on a sofa")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decode(tt.input); len(got) != 0 {
				t.Errorf("Expected no chunks, got %v", got)
			}
		})
	}
}

func TestDecodeITXtRoundTrip(t *testing.T) {
	b := png(ihdr(832, 1216), itxt("Comment", `{"prompt":"a cat"}`), chunk(TypeIEND, nil))

	got := Decode(b)
	if len(got) != 1 {
		t.Fatalf("Expected 1 text chunk, got %d", len(got))
	}
	want := models.TextKV{Key: "Comment", Value: `{"prompt":"a cat"}`}
	if got[0] != want {
		t.Errorf("Expected %+v, got %+v", want, got[0])
	}
}

func TestDecodeTEXt(t *testing.T) {
	b := png(
		ihdr(64, 64),
		chunk(TypeTEXt, []byte("Software\x00NovelAI")),
		chunk(TypeTEXt, []byte("Title\x00caf\xe9")), // Latin-1 é
		chunk(TypeTEXt, []byte("no separator here")),
		chunk(TypeIEND, nil),
	)

	got := Decode(b)
	if len(got) != 2 {
		t.Fatalf("Expected 2 text chunks, got %d: %v", len(got), got)
	}
	if got[0] != (models.TextKV{Key: "Software", Value: "NovelAI"}) {
		t.Errorf("Unexpected first chunk %+v", got[0])
	}
	if got[1].Value != "café" {
		t.Errorf("Expected Latin-1 decode to café, got %q", got[1].Value)
	}
}

func TestDecodeSkipsCompressedText(t *testing.T) {
	compressedITXt := chunk(TypeITXt, []byte("Comment\x00\x01\x00\x00\x00x\x9c"))
	b := png(
		chunk(TypeZTXt, []byte("Description\x00\x00x\x9c\x03\x00")),
		compressedITXt,
		chunk(TypeTEXt, []byte("Source\x00Stable Diffusion")),
	)

	got := Decode(b)
	if len(got) != 1 || got[0].Key != "Source" {
		t.Errorf("Expected only the tEXt chunk, got %v", got)
	}
}

func TestDecodeITXtMissingFields(t *testing.T) {
	b := png(chunk(TypeITXt, []byte("Comment\x00\x00\x00en")))
	if got := Decode(b); len(got) != 0 {
		t.Errorf("Expected nothing from a short iTXt, got %v", got)
	}
}

func TestDecodeStopsAtTruncation(t *testing.T) {
	good := chunk(TypeTEXt, []byte("a\x00first"))
	bad := chunk(TypeTEXt, []byte("b\x00second"))
	b := png(good, bad[:len(bad)-8])

	got := Decode(b)
	if len(got) != 1 || got[0].Value != "first" {
		t.Errorf("Expected only the first chunk, got %v", got)
	}
}

func TestDecodeStopsAtImplausibleLength(t *testing.T) {
	bogus := []byte{0xFF, 0xFF, 0xFF, 0xFF, 't', 'E', 'X', 't'}
	b := png(chunk(TypeTEXt, []byte("a\x00first")), bogus, chunk(TypeTEXt, []byte("b\x00never")))

	got := Decode(b)
	if len(got) != 1 {
		t.Errorf("Expected 1 chunk before the bogus header, got %v", got)
	}
}

func TestDecodeStopsAtBadType(t *testing.T) {
	b := png(chunk(TypeTEXt, []byte("a\x00first")), chunk("t3Xt", []byte("b\x00x")), chunk(TypeTEXt, []byte("c\x00never")))

	if got := Decode(b); len(got) != 1 {
		t.Errorf("Expected decode to stop at a non-letter type tag, got %v", got)
	}
}

func TestDecodeStopsAtIEND(t *testing.T) {
	b := png(chunk(TypeTEXt, []byte("a\x00first")), chunk(TypeIEND, nil), chunk(TypeTEXt, []byte("b\x00after")))

	got := Decode(b)
	if len(got) != 1 || got[0].Key != "a" {
		t.Errorf("Expected decode to stop at IEND, got %v", got)
	}
}

func TestDecodeToleratesMissingFinalCRC(t *testing.T) {
	last := chunk(TypeTEXt, []byte("a\x00tail"))
	b := png(last[:len(last)-crcLen])

	if got := Decode(b); len(got) != 1 {
		t.Errorf("Expected the chunk despite its missing CRC, got %v", got)
	}
}

func TestChunksListsAllTypes(t *testing.T) {
	b := png(ihdr(1, 1), chunk("IDAT", []byte{1, 2, 3}), chunk(TypeIEND, nil))

	got := Chunks(b)
	if len(got) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(got))
	}
	if got[1].Type != "IDAT" || got[1].Length != 3 {
		t.Errorf("Unexpected IDAT chunk %+v", got[1])
	}
}

func TestDimensions(t *testing.T) {
	w, h, ok := Dimensions(png(ihdr(832, 1216), chunk(TypeIEND, nil)))
	if !ok || w != 832 || h != 1216 {
		t.Errorf("Expected 832x1216, got %dx%d (ok=%v)", w, h, ok)
	}

	if _, _, ok := Dimensions(png(chunk(TypeTEXt, []byte("a\x00b")))); ok {
		t.Error("Expected no dimensions without a leading IHDR")
	}
}
