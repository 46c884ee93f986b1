package luadoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/updraft-sh/updraft/internal/manifest"
)

const indent = "  "

// Encode renders a manifest document as formatted Lua source. The output
// parses back to an equivalent document; generation is deterministic so
// published manifests diff cleanly between releases.
func (c *Codec) Encode(doc *manifest.Document) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("-- updraft manifest\n")
	buf.WriteString("updraft = {\n")

	if doc.Timestamp != "" {
		fmt.Fprintf(&buf, "%stimestamp = %s,\n", indent, quoteLuaString(doc.Timestamp))
	}

	if doc.BaseURL != "" || doc.BasePath != "" {
		buf.WriteString(indent + "base = {\n")
		writeStringField(&buf, 2, "url", doc.BaseURL)
		writeStringField(&buf, 2, "path", doc.BasePath)
		buf.WriteString(indent + "},\n")
	}

	if doc.UpdateHandler != "" || doc.LaunchHandler != "" {
		buf.WriteString(indent + "handlers = {\n")
		writeStringField(&buf, 2, "update", doc.UpdateHandler)
		writeStringField(&buf, 2, "launch", doc.LaunchHandler)
		buf.WriteString(indent + "},\n")
	}

	if len(doc.Properties) > 0 {
		buf.WriteString(indent + "properties = {\n")
		for _, pf := range doc.Properties {
			buf.WriteString(indent + indent + "{ ")
			fmt.Fprintf(&buf, "key = %s, value = %s", quoteLuaString(pf.Key), quoteLuaString(pf.Value))
			if pf.Platform != "" {
				fmt.Fprintf(&buf, ", platform = %s", quoteLuaString(pf.Platform))
			}
			buf.WriteString(" },\n")
		}
		buf.WriteString(indent + "},\n")
	}

	if len(doc.Files) > 0 {
		buf.WriteString(indent + "files = {\n")
		for i := range doc.Files {
			writeFile(&buf, &doc.Files[i])
		}
		buf.WriteString(indent + "},\n")
	}

	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

// writeFile renders one file entry as a Lua table.
func writeFile(buf *bytes.Buffer, ff *manifest.FileField) {
	buf.WriteString(indent + indent + "{\n")
	writeStringField(buf, 3, "source", ff.Source)
	writeStringField(buf, 3, "path", ff.Path)
	writeStringField(buf, 3, "platform", ff.Platform)
	fmt.Fprintf(buf, "%ssize = %d,\n", strings.Repeat(indent, 3), ff.Size)
	writeStringField(buf, 3, "checksum", ff.Checksum)
	writeStringField(buf, 3, "signature", ff.Signature)
	if ff.Executable {
		buf.WriteString(strings.Repeat(indent, 3) + "executable = true,\n")
	}
	if ff.Unpack {
		buf.WriteString(strings.Repeat(indent, 3) + "unpack = true,\n")
	}
	writeStringField(buf, 3, "comment", ff.Comment)
	buf.WriteString(indent + indent + "},\n")
}

// writeStringField emits a quoted field, omitting empty values.
func writeStringField(buf *bytes.Buffer, depth int, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "%s%s = %s,\n", strings.Repeat(indent, depth), key, quoteLuaString(value))
}

// quoteLuaString quotes a string for Lua. Backslashes, quotes, and all
// control characters are escaped; control characters are legal in
// property values, so they must survive the round trip.
func quoteLuaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			// Pad when a literal digit follows, or Lua folds it
			// into the escape.
			if i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				fmt.Fprintf(&b, `\%d`, c)
			}
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
