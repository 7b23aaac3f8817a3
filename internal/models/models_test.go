package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestZeroRecordEncodesEmptyFields(t *testing.T) {
	data, err := json.Marshal(MetadataRecord{})
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	for _, want := range []string{`"width":""`, `"steps":""`, `"scale":""`, `"prompt":""`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in %s", want, out)
		}
	}
	if strings.Count(out, `{"prompt":"","negative":""}`) != MaxCharacters {
		t.Errorf("Expected %d empty character slots in %s", MaxCharacters, out)
	}
}

func TestOptionalIntUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    OptionalInt
		wantErr bool
	}{
		{name: "number", input: `832`, want: Int(832)},
		{name: "numeric string", input: `"1216"`, want: Int(1216)},
		{name: "integral float", input: `28.0`, want: Int(28)},
		{name: "empty string", input: `""`, want: OptionalInt{}},
		{name: "null", input: `null`, want: OptionalInt{}},
		{name: "garbage", input: `"abc"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got OptionalInt
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestOptionalFloatRoundTrip(t *testing.T) {
	var f OptionalFloat
	if err := json.Unmarshal([]byte(`"5.5"`), &f); err != nil {
		t.Fatal(err)
	}
	if f != Float(5.5) {
		t.Errorf("Expected 5.5, got %+v", f)
	}
	data, _ := json.Marshal(f)
	if string(data) != "5.5" {
		t.Errorf("Expected 5.5, got %s", data)
	}
}

func TestParseRejectsNonFinite(t *testing.T) {
	for _, input := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "Infinity", "1e400"} {
		if v := ParseFloat(input); v.Valid {
			t.Errorf("ParseFloat(%q): expected unset, got %v", input, v.Value)
		}
		if v := ParseInt(input); v.Valid {
			t.Errorf("ParseInt(%q): expected unset, got %v", input, v.Value)
		}
	}
	if v := ParseInt("1e19"); v.Valid {
		t.Errorf("Expected out of range integer to be unset, got %v", v.Value)
	}
	if v := ParseFloat(" 7.5 "); v != Float(7.5) {
		t.Errorf("Expected 7.5, got %+v", v)
	}

	var f OptionalFloat
	if err := json.Unmarshal([]byte(`"NaN"`), &f); err == nil {
		t.Error("Expected error decoding NaN")
	}
}

func TestIsEmpty(t *testing.T) {
	if !(MetadataRecord{}).IsEmpty() {
		t.Error("Expected zero record to be empty")
	}
	var r MetadataRecord
	r.Characters[3].Negative = "x"
	if r.IsEmpty() {
		t.Error("Expected record with a character negative to be non-empty")
	}
	if (MetadataRecord{Seed: Int(0)}).IsEmpty() {
		t.Error("Expected record with seed 0 to be non-empty")
	}
}

func TestSourceOrderAndNames(t *testing.T) {
	order := []Source{
		SourceExternalDecode,
		SourcePNGChunkJSON,
		SourcePNGChunkText,
		SourceDriveProperties,
		SourceDriveDescription,
		SourceStealthDetected,
		SourcePNGHeader,
		SourceFilenameHeuristic,
		SourceLLMCaption,
	}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Errorf("Expected %s to outrank %s", order[i-1], order[i])
		}
	}
	if SourcePNGChunkJSON.String() != "png-chunk-json" {
		t.Errorf("Unexpected name %q", SourcePNGChunkJSON.String())
	}
}

func TestSourceMapJSON(t *testing.T) {
	fields := map[string]Source{"prompt": SourcePNGChunkJSON, "width": SourcePNGHeader}
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `{"prompt":"png-chunk-json","width":"png-header"}` {
		t.Errorf("Unexpected encoding %s", data)
	}

	var decoded map[string]Source
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if decoded["width"] != SourcePNGHeader {
		t.Errorf("Expected png-header, got %s", decoded["width"])
	}

	var s Source
	if err := s.UnmarshalText([]byte("nowhere")); err == nil {
		t.Error("Expected error for unknown source")
	}
}
