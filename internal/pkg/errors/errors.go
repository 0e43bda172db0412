package errors

import "errors"

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalid              = errors.New("invalid")
	ErrConfiguration        = errors.New("configuration error")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrMessagingDelivery    = errors.New("messaging delivery failed")
	ErrNoDocumentsFound     = errors.New("no documents found")
	ErrNoDocumentsLoadable  = errors.New("no documents could be loaded")
	ErrDimensionMismatch    = errors.New("embedding dimension mismatch")
	ErrStoreUnavailable     = errors.New("vector store unavailable")
	ErrIngestRunning        = errors.New("ingestion already running")
)

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
