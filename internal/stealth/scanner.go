// Package stealth detects the marker that NovelAI-style generators write in
// front of metadata hidden in an image's alpha channel. It only reports that
// the marker is present; recovering the hidden payload needs the decoded
// pixel data and is left to the external alpha-channel decoding service.
package stealth

import "bytes"

// Marker is the literal that prefixes a stealth payload
const Marker = "stealth_pngcomp"

// Sentinel model values recorded when only the marker was found
const (
	ModelSentinel        = "stealth detected, payload not decoded"
	ModelNovelAISentinel = "NovelAI (stealth payload not decoded)"
)

var marker = []byte(Marker)

// Scan reports whether the marker occurs anywhere in b, at any alignment
func Scan(b []byte) bool {
	return bytes.Contains(b, marker)
}
