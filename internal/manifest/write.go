package manifest

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/updraft-sh/updraft/internal/props"
)

// Write turns a Manifest back into a flat Document for encoding. File
// sources and destinations are expressed relative to the manifest's base
// locations when that is lossless, and literal property values are
// folded back into placeholders under the given policy. Raw properties
// are written as authored.
func Write(m *Manifest, policy props.FoldPolicy) (*Document, error) {
	fold := func(s string) string {
		return props.Fold(s, m.Resolved, policy)
	}

	doc := &Document{
		BaseURL:       fold(m.BaseURL),
		BasePath:      fold(m.BasePath),
		UpdateHandler: m.UpdateHandler,
		LaunchHandler: m.LaunchHandler,
	}
	if !m.Timestamp.IsZero() {
		doc.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
	}

	doc.Properties = make([]PropertyField, 0, len(m.Properties))
	for _, p := range m.Properties {
		doc.Properties = append(doc.Properties, PropertyField{
			Key:      p.Key,
			Value:    p.Value,
			Platform: p.Filter.String(),
		})
	}

	doc.Files = make([]FileField, 0, len(m.Files))
	for i := range m.Files {
		rec := &m.Files[i]
		ff := FileField{
			Source:     fold(relativize(rec.Source, m.BaseURL)),
			Path:       fold(relativize(rec.Path, m.BasePath)),
			Platform:   rec.Filter.String(),
			Size:       rec.Size,
			Checksum:   rec.Checksum,
			Executable: rec.Flags.Executable,
			Unpack:     rec.Flags.Unpack,
			Comment:    fold(rec.Comment),
		}
		if len(rec.Signature) > 0 {
			ff.Signature = base64.StdEncoding.EncodeToString(rec.Signature)
		}
		doc.Files = append(doc.Files, ff)
	}

	return doc, nil
}

// relativize strips the base prefix from a value when the value lies
// strictly under it; otherwise the value is emitted unchanged.
func relativize(value, base string) string {
	v := props.NormalizePath(value)
	b := strings.TrimSuffix(props.NormalizePath(base), "/")
	if b == "" {
		return v
	}
	if strings.HasPrefix(v, b+"/") {
		return v[len(b)+1:]
	}
	return v
}
