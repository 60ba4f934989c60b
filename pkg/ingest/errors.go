package ingest

import "errors"

var (
	// ErrGatewayRequired is returned when no persistence gateway is provided.
	ErrGatewayRequired = errors.New("persistence gateway required")

	// ErrSearcherRequired is returned when no search client is provided.
	ErrSearcherRequired = errors.New("search client required")

	// ErrAssetStoreRequired is returned when no asset store is provided.
	ErrAssetStoreRequired = errors.New("asset store required")
)
