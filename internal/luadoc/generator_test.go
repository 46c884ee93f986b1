package luadoc

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/updraft-sh/updraft/internal/manifest"
)

func TestEncodeRoundTrip(t *testing.T) {
	doc := &manifest.Document{
		Timestamp:     "2026-03-14T09:26:53Z",
		BaseURL:       "https://dist.example.com/${channel}",
		BasePath:      "/opt/app",
		UpdateHandler: "app.handlers.rotating",
		LaunchHandler: "app.Main",
		Properties: []manifest.PropertyField{
			{Key: "channel", Value: "stable"},
			{Key: "weird", Value: "tab\there \"quoted\" back\\slash\nnewline \x01ctl"},
			{Key: "sep", Value: ";", Platform: "windows"},
		},
		Files: []manifest.FileField{
			{
				Source:    "lib/core.jar",
				Path:      "lib/core.jar",
				Size:      1024,
				Checksum:  strings.Repeat("ab", 32),
				Signature: "aGVsbG8=",
				Comment:   "main archive",
			},
			{
				Path:       "bin/launcher",
				Platform:   "linux-amd64",
				Size:       64,
				Checksum:   strings.Repeat("cd", 32),
				Executable: true,
				Unpack:     true,
			},
		},
	}

	codec := linuxCodec()
	encoded, err := codec.Encode(doc)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	reparsed, err := codec.Decode(context.Background(), encoded)
	if err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, encoded)
	}

	if !reflect.DeepEqual(doc, reparsed) {
		t.Errorf("round trip changed the document:\nwant %+v\ngot  %+v", doc, reparsed)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	doc := &manifest.Document{
		BaseURL: "https://dist.example.com/app",
		Files: []manifest.FileField{
			{Path: "a.jar", Size: 1, Checksum: strings.Repeat("ab", 32)},
		},
	}

	first, err := linuxCodec().Encode(doc)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := linuxCodec().Encode(doc)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if string(first) != string(second) {
		t.Error("Encode output differs between runs")
	}
}

func TestEncodeOmitsEmptySections(t *testing.T) {
	encoded, err := linuxCodec().Encode(&manifest.Document{Timestamp: "2026-03-14T09:26:53Z"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out := string(encoded)

	for _, section := range []string{"base", "handlers", "properties", "files"} {
		if strings.Contains(out, section+" = {") {
			t.Errorf("empty %s section emitted:\n%s", section, out)
		}
	}
}

func TestQuoteLuaString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: `"plain"`},
		{in: `a"b`, want: `"a\"b"`},
		{in: `C:\tools`, want: `"C:\\tools"`},
		{in: "line\nbreak", want: `"line\nbreak"`},
		{in: "\x00\x1f\x7f", want: `"\0\31\127"`},
	}
	for _, tt := range tests {
		if got := quoteLuaString(tt.in); got != tt.want {
			t.Errorf("quoteLuaString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
