package model

type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeText DocumentType = "text"
)

// Document is a loaded source file. It only lives for the duration of an ingestion run.
type Document struct {
	Source string       `json:"source"`
	Type   DocumentType `json:"type"`
	Pages  []string     `json:"pages"`
}
