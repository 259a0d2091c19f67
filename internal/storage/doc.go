// Package storage persists knowledge chunks and per-user records.
//
// Each namespace has its own knowledge table; TableFor is the only mapping
// from a namespace to a table name. Two backends implement Storage:
//
//   - SQLiteStorage: FTS5 external-content tables for keyword search and
//     either sqlite-vec or an in-process cosine scan for vectors
//   - PostgresStorage: pgvector for vectors, a generated tsvector column
//     for keyword search, native text[] for list attributes
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("personarag.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	hits, err := db.SearchVector(ctx, types.NamespaceBusiness, vec, 10, types.Filters{
//	    BusinessStage: "launch",
//	})
//
// Filters compile to the same predicate for both search passes, so vector
// and keyword results are drawn from the same candidate set.
//
// # Transactions
//
// Ingest batches and activity recording group their writes:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.RecordActivity(ctx, activity); err != nil {
//	    return err
//	}
//	if err := tx.UpsertProgress(ctx, progress); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Vector distance computed in SQL by sqlite-vec
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,sqlite_fts5"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Cosine similarity computed in Go
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
