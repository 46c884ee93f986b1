package manifest

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/updraft-sh/updraft/internal/platform"
	"github.com/updraft-sh/updraft/internal/props"
)

// Read turns a decoded Document into an immutable Manifest for the given
// host. Properties are resolved first, since base locations, comments,
// and handler identifiers may themselves contain placeholders; file
// entries are then expanded, derived, and validated.
func Read(doc *Document, info *platform.Info, lookup props.LookupFunc) (*Manifest, error) {
	properties, err := readProperties(doc.Properties)
	if err != nil {
		return nil, err
	}

	resolved, err := props.Resolve(properties, info, lookup)
	if err != nil {
		return nil, err
	}

	m := &Manifest{
		Properties: properties,
		Resolved:   resolved,
	}

	if m.BaseURL, err = resolved.Expand(doc.BaseURL, lookup); err != nil {
		return nil, err
	}
	if m.BasePath, err = resolved.Expand(doc.BasePath, lookup); err != nil {
		return nil, err
	}
	if m.UpdateHandler, err = resolved.Expand(doc.UpdateHandler, lookup); err != nil {
		return nil, err
	}
	if m.LaunchHandler, err = resolved.Expand(doc.LaunchHandler, lookup); err != nil {
		return nil, err
	}
	if err := validateHandler("update_handler", m.UpdateHandler); err != nil {
		return nil, err
	}
	if err := validateHandler("launch_handler", m.LaunchHandler); err != nil {
		return nil, err
	}

	// Timestamps resolve like every other scalar field.
	stamp, err := resolved.Expand(doc.Timestamp, lookup)
	if err != nil {
		return nil, err
	}
	if stamp != "" {
		ts, err := time.Parse(time.RFC3339, stamp)
		if err != nil {
			return nil, &ValidationError{Field: "timestamp", Message: err.Error()}
		}
		m.Timestamp = ts
	}

	m.Files = make([]FileRecord, 0, len(doc.Files))
	for i, ff := range doc.Files {
		rec, err := readFile(i, &ff, m, resolved, lookup)
		if err != nil {
			return nil, err
		}
		m.Files = append(m.Files, *rec)
	}

	if err := validateDestinations(m.Files); err != nil {
		return nil, err
	}

	return m, nil
}

// readProperties parses encoded property fields, validating platform
// filters.
func readProperties(fields []PropertyField) ([]props.Property, error) {
	properties := make([]props.Property, 0, len(fields))
	for i, pf := range fields {
		if pf.Key == "" {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("properties[%d]", i),
				Message: "property key cannot be empty",
			}
		}
		filter, err := platform.ParseFilter(pf.Platform)
		if err != nil {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("properties[%d]", i),
				Message: err.Error(),
			}
		}
		properties = append(properties, props.Property{Key: pf.Key, Value: pf.Value, Filter: filter})
	}
	return properties, nil
}

// readFile expands and validates one encoded file entry.
func readFile(index int, ff *FileField, m *Manifest, resolved props.Resolved, lookup props.LookupFunc) (*FileRecord, error) {
	field := fmt.Sprintf("files[%d]", index)

	source, err := resolved.Expand(ff.Source, lookup)
	if err != nil {
		return nil, err
	}
	dest, err := resolved.Expand(ff.Path, lookup)
	if err != nil {
		return nil, err
	}
	comment, err := resolved.Expand(ff.Comment, lookup)
	if err != nil {
		return nil, err
	}

	filter, err := platform.ParseFilter(ff.Platform)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: err.Error()}
	}

	var signature []byte
	if ff.Signature != "" {
		signature, err = base64.StdEncoding.DecodeString(ff.Signature)
		if err != nil {
			return nil, &ValidationError{Field: field, Message: fmt.Sprintf("malformed signature: %v", err)}
		}
	}

	rec := &FileRecord{
		Source:    source,
		Path:      dest,
		Filter:    filter,
		Size:      ff.Size,
		Checksum:  strings.ToLower(ff.Checksum),
		Signature: signature,
		Flags:     Flags{Executable: ff.Executable, Unpack: ff.Unpack},
		Comment:   comment,
	}

	// Derive whichever of source/destination the entry omitted.
	if rec.Path == "" && rec.Source != "" {
		rec.Path = derivePath(rec.Source, m.BaseURL)
	}
	if rec.Source == "" && rec.Path != "" {
		rec.Source = props.NormalizePath(rec.Path)
	}

	if err := validateRecord(index, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// derivePath infers a destination path from a source locator: the
// locator's path relative to the base URL when it lies under it, or its
// final path element otherwise.
func derivePath(source, baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if base != "" && strings.HasPrefix(source, base+"/") {
		return source[len(base)+1:]
	}
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(props.NormalizePath(source))
}
