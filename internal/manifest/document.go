package manifest

import "context"

// Document is the flat structured field set exchanged with a Codec. All
// string values are unresolved, exactly as they appear in the encoded
// form; placeholders and relative locations are still present.
type Document struct {
	Timestamp     string
	BaseURL       string
	BasePath      string
	UpdateHandler string
	LaunchHandler string
	Properties    []PropertyField
	Files         []FileField
}

// PropertyField is one encoded property entry.
type PropertyField struct {
	Key      string
	Value    string
	Platform string // textual platform filter, empty for unscoped
}

// FileField is one encoded file entry.
type FileField struct {
	Source     string
	Path       string
	Platform   string
	Size       int64
	Checksum   string
	Signature  string // base64, empty for unsigned
	Executable bool
	Unpack     bool
	Comment    string
}

// Codec reads and writes encoded manifest documents. Implementations own
// the concrete markup; this package never sees it.
type Codec interface {
	Decode(ctx context.Context, data []byte) (*Document, error)
	Encode(doc *Document) ([]byte, error)
}
