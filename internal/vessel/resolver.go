package vessel

import "context"

// Resolver is the engine's view of the physical-item model. Vessels are
// opaque: stable label identity plus key/value metadata. The engine never
// owns a vessel's lifecycle.
type Resolver interface {
	// ResolveKeys maps user-supplied keys (barcode or sample key) to vessel
	// labels. Keys that match nothing are absent from the result.
	ResolveKeys(ctx context.Context, keys []string) (map[string]string, error)

	// MetadataValues returns all values stored under key for the vessel,
	// in insertion order. Missing vessel or key yields an empty slice.
	MetadataValues(ctx context.Context, label, key string) ([]string, error)
}

// MetadataKeyProductType is the routing key read by the sample-ready
// post-dequeue handler.
const MetadataKeyProductType = "product-type"
