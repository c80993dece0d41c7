package embed

// NewDefaultEmbedder returns the default embedder: a static hash
// embedder wrapped with an LRU cache. Every workspace in this
// deployment uses the same embedder, so there is no provider-selection
// surface to expose.
func NewDefaultEmbedder() Embedder {
	return NewCachedEmbedder(NewStaticEmbedder(), DefaultCacheSize)
}
