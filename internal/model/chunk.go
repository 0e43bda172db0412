package model

type ChunkMetadata struct {
	Source  string       `json:"source"`
	Type    DocumentType `json:"type"`
	Ordinal int          `json:"ordinal"`
	Page    int          `json:"page,omitempty"`
}

type Chunk struct {
	ID        int64         `json:"id,omitempty"`
	Content   string        `json:"content"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"embedding,omitempty"`
}

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
