// Package extract defines the contract with the text-extraction
// collaborator that populates each bill's files/ folder.
//
// Extraction itself (PDF, HTML, XML) lives outside this module; the
// pipeline only guarantees the files/ folder exists and publishes the
// interface an extractor must satisfy.
package extract

import "fmt"

// Media types the collaborator is expected to handle.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeHTML = "text/html"
	MediaTypeXML  = "application/xml"
	MediaTypeText = "text/plain"
)

// Extractor turns a raw payload into extracted text.
type Extractor interface {
	Extract(data []byte, mediaType string) (string, error)
}

// PlainText is a trivial Extractor for already-textual payloads. Used
// in tests and as the fallback for text/plain documents.
type PlainText struct{}

// Extract implements Extractor for text/plain payloads only.
func (PlainText) Extract(data []byte, mediaType string) (string, error) {
	if mediaType != MediaTypeText {
		return "", fmt.Errorf("plain text extractor cannot handle %s", mediaType)
	}
	return string(data), nil
}
