package model

type EmbeddingCache struct {
	ModelName   string    `json:"model_name" db:"model_name"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Embedding   []float32 `json:"embedding" db:"-"`
	Ctime       int64     `json:"ctime" db:"ctime"`
}
