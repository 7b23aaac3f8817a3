// Package pngchunk walks the chunk stream of a PNG buffer and pulls out the
// text-bearing chunks. It never returns an error: a missing signature yields
// nothing and a truncated or malformed stream yields whatever was read before
// the damage.
//
// Chunk layout (https://www.w3.org/TR/png/#5Chunk-layout):
//
//	Length (4 bytes, big endian) | Type (4 bytes) | Data (Length bytes) | CRC (4 bytes)
package pngchunk

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/imagetoprompts/naimeta/internal/models"
)

// 89 50 4E 47 0D 0A 1A 0A
const Signature = "\x89\x50\x4E\x47\x0D\x0A\x1A\x0A"

const (
	headerLen = 8
	crcLen    = 4

	// PNG four-byte unsigned integers are limited to 2^31-1
	maxChunkLen = 1<<31 - 1
)

const (
	TypeIHDR = "IHDR"
	TypeIEND = "IEND"
	TypeTEXt = "tEXt"
	TypeITXt = "iTXt"
	TypeZTXt = "zTXt"
)

// RawChunk is one chunk as found in the buffer. Payload aliases the input.
type RawChunk struct {
	Type    string
	Length  uint32
	Payload []byte
}

// HasSignature reports whether b starts with the PNG magic bytes. Only the
// first four bytes are compared; the line-ending bytes that follow are often
// mangled by transfer tools without damaging the chunks.
func HasSignature(b []byte) bool {
	return len(b) >= headerLen && string(b[:4]) == Signature[:4]
}

// Chunks returns every well-formed chunk up to IEND, the end of the buffer,
// or the first chunk whose header or payload cannot be trusted.
func Chunks(b []byte) []RawChunk {
	if !HasSignature(b) {
		return nil
	}

	var chunks []RawChunk
	pos := headerLen
	for pos+headerLen <= len(b) {
		length := binary.BigEndian.Uint32(b[pos : pos+4])
		tag := b[pos+4 : pos+8]
		if length > maxChunkLen || !validType(tag) {
			break
		}

		start := pos + headerLen
		end := start + int(length)
		if end > len(b) {
			break
		}

		chunk := RawChunk{Type: string(tag), Length: length, Payload: b[start:end]}
		chunks = append(chunks, chunk)
		if chunk.Type == TypeIEND {
			break
		}

		// The CRC is skipped, not verified.
		pos = end + crcLen
	}
	return chunks
}

// Decode extracts the keyword/text pairs from the tEXt and iTXt chunks of b.
// zTXt and compressed iTXt chunks are recognised and skipped.
func Decode(b []byte) []models.TextKV {
	var kvs []models.TextKV
	for _, c := range Chunks(b) {
		var (
			kv models.TextKV
			ok bool
		)
		switch c.Type {
		case TypeTEXt:
			kv, ok = decodeTEXt(c.Payload)
		case TypeITXt:
			kv, ok = decodeITXt(c.Payload)
		case TypeZTXt:
			// compressed text is out of scope
		}
		if ok {
			kvs = append(kvs, kv)
		}
	}
	return kvs
}

// Dimensions reads width and height from a leading IHDR chunk.
func Dimensions(b []byte) (width, height int64, ok bool) {
	chunks := Chunks(b)
	if len(chunks) == 0 || chunks[0].Type != TypeIHDR || len(chunks[0].Payload) < 8 {
		return 0, 0, false
	}
	p := chunks[0].Payload
	return int64(binary.BigEndian.Uint32(p[0:4])), int64(binary.BigEndian.Uint32(p[4:8])), true
}

// tEXt: keyword NUL text
func decodeTEXt(p []byte) (models.TextKV, bool) {
	keyword, text, found := bytes.Cut(p, []byte{0})
	if !found || len(keyword) == 0 {
		return models.TextKV{}, false
	}
	return models.TextKV{Key: latin1(keyword), Value: latin1(text)}, true
}

// iTXt: keyword NUL flag method language NUL translated NUL text
func decodeITXt(p []byte) (models.TextKV, bool) {
	keyword, rest, found := bytes.Cut(p, []byte{0})
	if !found || len(keyword) == 0 || len(rest) < 2 {
		return models.TextKV{}, false
	}
	compressed := rest[0] != 0
	rest = rest[2:]

	_, rest, found = bytes.Cut(rest, []byte{0}) // language tag
	if !found {
		return models.TextKV{}, false
	}
	_, text, found := bytes.Cut(rest, []byte{0}) // translated keyword
	if !found || compressed {
		return models.TextKV{}, false
	}
	if !utf8.Valid(keyword) || !utf8.Valid(text) {
		return models.TextKV{}, false
	}
	return models.TextKV{Key: string(keyword), Value: string(text)}, true
}

func validType(tag []byte) bool {
	for _, c := range tag {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

// latin1 returns b as a string, treating it as ISO-8859-1 unless it is
// already valid UTF-8. Generators commonly write UTF-8 JSON into tEXt.
func latin1(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
