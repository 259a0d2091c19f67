// Package embedder turns text into fixed-length vectors.
//
// A Provider makes exactly one upstream call per Embed: OpenAI and Jina over
// their HTTP embeddings APIs, or a local feature-hashing vectorizer for
// offline use. Providers never retry; a failed call surfaces as a
// *types.ProviderError.
//
// Client layers a 24 hour cache-aside on top of a Provider:
//
//	client := embedder.NewClient(provider, redisCache, logger)
//	vec, err := client.Embed(ctx, "how do I price my services")
//
// EmbedBatch preserves input order, reads every text from cache first and
// sends only the misses to the provider in one request. Cache keys have the
// form emb:<model>:<xxhash64 of text>; values are little-endian float32
// bytes.
package embedder
