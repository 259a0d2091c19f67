// Package ingest loads knowledge chunks into a namespace's store.
//
// Records are read from a JSON array, validated, converted to chunks and
// split into batches. Each batch is embedded with one EmbedBatch call and
// written in its own transaction; batches run on a bounded worker pool.
//
// The embedded text carries a metadata header ahead of the body:
//
//	Title: <summary>
//	Category: <category>
//	Patterns: <pattern>, <pattern>
//	Temperament: <temperament>
//
//	<body>
//
// Bodies estimated above MaxBodyTokens are replaced by their summary.
// Records without an ID get a stable one derived from their content, so
// re-running an ingest updates rows in place.
package ingest
