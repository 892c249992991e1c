package domain

// NoContextAnswer is returned when retrieval finds nothing to ground an answer on.
const NoContextAnswer = "No relevant context found in the database. Please ingest documents first."

// ImagePayload is image content handed to a multimodal generation backend.
type ImagePayload struct {
	Path     string
	MIMEType string
	Data     []byte
}

// FusedContext is the generation input prepared from retrieved items.
type FusedContext struct {
	// Text is the formatted text context, blocks separated by a blank line.
	Text string

	// Images are loaded image payloads in retrieval order.
	Images []ImagePayload

	// Sources echoes the metadata of every retrieved item in order.
	Sources []ChunkMetadata
}

// GenerationRequest is what the core passes to a generation backend.
type GenerationRequest struct {
	Query       string
	TextContext string
	Images      []ImagePayload

	// Template overrides DefaultAnswerPrompt when non-empty.
	Template string
}

// Source is a citation returned alongside an answer.
type Source struct {
	DocumentID  string      `json:"documentId"`
	PageNumber  int         `json:"pageNumber"`
	ContentType ContentKind `json:"contentType"`
	ImagePath   string      `json:"imagePath,omitempty"`
}

// SourceFromMetadata maps chunk metadata to its citation form.
func SourceFromMetadata(m ChunkMetadata) Source {
	return Source{
		DocumentID:  m.Source,
		PageNumber:  m.PageNumber,
		ContentType: m.ContentType,
		ImagePath:   m.ImagePath,
	}
}

// Answer is the result of a question answered over the index.
type Answer struct {
	Query   string   `json:"query,omitempty"`
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// IndexStatus reports whether the index can serve queries.
type IndexStatus struct {
	Ready         bool   `json:"ready"`
	DocumentCount int    `json:"documentCount"`
	Backend       string `json:"backend,omitempty"`
	Dimensions    int    `json:"dimensions,omitempty"`
}
