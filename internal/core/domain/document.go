package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
)

// ContentKind classifies the content carried by a chunk.
type ContentKind string

// Available content kinds.
const (
	// KindText is free-running text such as a paragraph.
	KindText ContentKind = "text"

	// KindTable is text with tabular structure.
	KindTable ContentKind = "table"

	// KindImage is an image stored on disk.
	KindImage ContentKind = "image"
)

// IsValid returns true if the kind is recognised.
func (k ContentKind) IsValid() bool {
	switch k {
	case KindText, KindTable, KindImage:
		return true
	default:
		return false
	}
}

// IsTextual returns true for kinds encoded through the text entry point.
func (k ContentKind) IsTextual() bool {
	return k == KindText || k == KindTable
}

// String returns the string representation.
func (k ContentKind) String() string {
	return string(k)
}

// Metadata keys used when chunk metadata is flattened into a map.
const (
	MetaSource      = "source"
	MetaPageNumber  = "page_number"
	MetaContentType = "content_type"
	MetaImagePath   = "image_path"
	MetaOCRText     = "ocr_text"
	MetaElementID   = "element_id"
)

// ChunkMetadata describes where a chunk came from.
// It is copied verbatim onto the vector record and echoed back as a citation.
type ChunkMetadata struct {
	// Source is the path of the originating file.
	Source string `json:"source"`

	// PageNumber is the 1-based page of the chunk.
	PageNumber int `json:"pageNumber"`

	// ContentType mirrors the chunk kind.
	ContentType ContentKind `json:"contentType"`

	// ImagePath points at readable image bytes. Required for image chunks.
	ImagePath string `json:"imagePath,omitempty"`

	// OCRText is recognised text for image chunks, if any.
	OCRText string `json:"ocrText,omitempty"`

	// ElementID identifies the layout element the chunk was built from.
	ElementID string `json:"elementId,omitempty"`
}

// ToMap flattens the metadata for backends that store string-keyed payloads.
// Empty optional fields are omitted.
func (m ChunkMetadata) ToMap() map[string]string {
	out := map[string]string{
		MetaSource:      m.Source,
		MetaPageNumber:  strconv.Itoa(m.PageNumber),
		MetaContentType: string(m.ContentType),
	}
	if m.ImagePath != "" {
		out[MetaImagePath] = m.ImagePath
	}
	if m.OCRText != "" {
		out[MetaOCRText] = m.OCRText
	}
	if m.ElementID != "" {
		out[MetaElementID] = m.ElementID
	}
	return out
}

// ChunkMetadataFromMap is the inverse of ToMap.
// An unparsable page number is reported as 0.
func ChunkMetadataFromMap(m map[string]string) ChunkMetadata {
	page, _ := strconv.Atoi(m[MetaPageNumber])
	return ChunkMetadata{
		Source:      m[MetaSource],
		PageNumber:  page,
		ContentType: ContentKind(m[MetaContentType]),
		ImagePath:   m[MetaImagePath],
		OCRText:     m[MetaOCRText],
		ElementID:   m[MetaElementID],
	}
}

// Chunk is a unit of extracted content prior to embedding.
// Chunks live only for the duration of an ingestion run.
type Chunk struct {
	// DocID identifies the source document. See DocumentID.
	DocID string

	// Page is the 1-based page number; 1 for non-paginated sources.
	Page int

	// Kind is the content kind.
	Kind ContentKind

	// Content is raw text for text and table chunks and the image path for images.
	Content string

	// AuxText is recognised text associated with an image chunk.
	AuxText string

	// Metadata is copied onto the resulting vector record.
	Metadata ChunkMetadata
}

// Validate checks the invariants every extractor must honour.
func (c Chunk) Validate() error {
	switch {
	case c.DocID == "":
		return fmt.Errorf("%w: chunk has no document id", ErrInvalidInput)
	case c.Page < 1:
		return fmt.Errorf("%w: chunk page %d is not 1-based", ErrInvalidInput, c.Page)
	case !c.Kind.IsValid():
		return fmt.Errorf("%w: unknown chunk kind %q", ErrInvalidInput, c.Kind)
	case c.Metadata.ContentType != c.Kind:
		return fmt.Errorf("%w: chunk kind %q disagrees with content type %q",
			ErrInvalidInput, c.Kind, c.Metadata.ContentType)
	case c.Metadata.Source == "":
		return fmt.Errorf("%w: chunk has no source", ErrInvalidInput)
	case c.Metadata.PageNumber != c.Page:
		return fmt.Errorf("%w: chunk page %d disagrees with metadata page %d",
			ErrInvalidInput, c.Page, c.Metadata.PageNumber)
	case c.Kind == KindImage && c.Metadata.ImagePath == "":
		return fmt.Errorf("%w: image chunk has no image path", ErrInvalidInput)
	}
	return nil
}

// DisplayText returns the text stored alongside the chunk's vector.
// Images fall back to a synthesised caption when no text was recognised.
func (c Chunk) DisplayText() string {
	if c.Kind != KindImage {
		return c.Content
	}
	if c.AuxText != "" {
		return c.AuxText
	}
	return fmt.Sprintf("Image from %s page %d", c.DocID, c.Page)
}

// DocumentID derives the document ID for a source file: its base name plus a
// short hash of its cleaned absolute path, e.g. "notes.txt-1a2b3c4d".
// Files that share a base name in different directories get distinct IDs,
// and the same file gets the same ID on every run.
func DocumentID(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Base(path) + "-" + hex.EncodeToString(sum[:4])
}
