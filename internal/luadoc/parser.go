// Package luadoc is the concrete encoding of manifest documents: a
// sandboxed Lua source declaring a global "updraft" table. The package
// implements the manifest.Codec boundary; a read-only platform table is
// injected before evaluation so one manifest source can emit
// platform-conditional entries.
package luadoc

import (
	"context"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/updraft-sh/updraft/internal/manifest"
	"github.com/updraft-sh/updraft/internal/platform"
)

// ParseError is a manifest parsing error with a user-facing message and
// the raw Lua detail.
type ParseError struct {
	Message string
	Detail  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// FormatError renders a parse error for display. Verbose mode shows the
// raw Lua error; otherwise the traceback is trimmed off.
func FormatError(err error, verbose bool) string {
	parseErr, ok := err.(*ParseError)
	if !ok {
		return err.Error()
	}
	if verbose {
		return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
	}
	detail := parseErr.Detail
	if idx := strings.Index(detail, "stack traceback"); idx > 0 {
		detail = strings.TrimSpace(detail[:idx])
	}
	return fmt.Sprintf("%s: %s", parseErr.Message, detail)
}

// Codec parses and generates Lua manifest documents. It satisfies
// manifest.Codec.
type Codec struct {
	detector platform.Detector
}

// NewCodec creates a codec whose parses evaluate against the platform
// reported by detector. A nil detector skips platform injection.
func NewCodec(detector platform.Detector) *Codec {
	return &Codec{detector: detector}
}

// Decode evaluates a Lua manifest source and extracts the flat document.
func (c *Codec) Decode(ctx context.Context, data []byte) (*manifest.Document, error) {
	L := newSandboxedVM()
	defer L.Close()

	if c.detector != nil {
		info, err := c.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(string(data)); err != nil {
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractDocument(L)
}

// extractDocument pulls the global "updraft" table apart into a
// manifest.Document.
func extractDocument(L *lua.LState) (*manifest.Document, error) {
	root := L.GetGlobal("updraft")
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'updraft' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)

	doc := &manifest.Document{}
	doc.Timestamp = stringField(table, "timestamp")

	if baseVal := table.RawGetString("base"); baseVal.Type() == lua.LTTable {
		base := baseVal.(*lua.LTable)
		doc.BaseURL = stringField(base, "url")
		doc.BasePath = stringField(base, "path")
	}

	if handlersVal := table.RawGetString("handlers"); handlersVal.Type() == lua.LTTable {
		handlers := handlersVal.(*lua.LTable)
		doc.UpdateHandler = stringField(handlers, "update")
		doc.LaunchHandler = stringField(handlers, "launch")
	}

	if propsVal := table.RawGetString("properties"); propsVal.Type() == lua.LTTable {
		doc.Properties = extractProperties(propsVal.(*lua.LTable))
	}

	if filesVal := table.RawGetString("files"); filesVal.Type() == lua.LTTable {
		files, err := extractFiles(filesVal.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		doc.Files = files
	}

	return doc, nil
}

// extractProperties reads the properties array, skipping nil entries
// left behind by platform conditionals.
func extractProperties(table *lua.LTable) []manifest.PropertyField {
	var fields []manifest.PropertyField
	table.ForEach(func(_, value lua.LValue) {
		if value.Type() != lua.LTTable {
			return
		}
		entry := value.(*lua.LTable)
		fields = append(fields, manifest.PropertyField{
			Key:      stringField(entry, "key"),
			Value:    stringField(entry, "value"),
			Platform: stringField(entry, "platform"),
		})
	})
	return fields
}

// extractFiles reads the files array. String entries are shorthand for a
// bare destination path; table entries carry the full field set. Nil
// entries from platform conditionals are skipped.
func extractFiles(table *lua.LTable) ([]manifest.FileField, error) {
	var fields []manifest.FileField
	var badSize string

	table.ForEach(func(_, value lua.LValue) {
		switch value.Type() {
		case lua.LTString:
			fields = append(fields, manifest.FileField{Path: value.String()})
		case lua.LTTable:
			entry := value.(*lua.LTable)
			ff := manifest.FileField{
				Source:     stringField(entry, "source"),
				Path:       stringField(entry, "path"),
				Platform:   stringField(entry, "platform"),
				Checksum:   stringField(entry, "checksum"),
				Signature:  stringField(entry, "signature"),
				Comment:    stringField(entry, "comment"),
				Executable: boolField(entry, "executable"),
				Unpack:     boolField(entry, "unpack"),
			}
			if sizeVal := entry.RawGetString("size"); sizeVal.Type() == lua.LTNumber {
				ff.Size = int64(lua.LVAsNumber(sizeVal))
			} else if sizeVal.Type() != lua.LTNil {
				badSize = ff.Path
			}
			fields = append(fields, ff)
		}
	})

	if badSize != "" {
		return nil, &ParseError{
			Message: "invalid file entry",
			Detail:  fmt.Sprintf("size of %q must be a number", badSize),
		}
	}
	return fields, nil
}

func stringField(table *lua.LTable, key string) string {
	if v := table.RawGetString(key); v.Type() == lua.LTString {
		return v.String()
	}
	return ""
}

func boolField(table *lua.LTable, key string) bool {
	if v := table.RawGetString(key); v.Type() == lua.LTBool {
		return bool(v.(lua.LBool))
	}
	return false
}
