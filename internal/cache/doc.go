// Package cache provides the best-effort key/value layer shared by the
// embedding client and the user context loader.
//
// Two backends are available: Redis for shared deployments and an
// in-process LRU (Memory) for local runs. Nop disables caching entirely.
// Callers treat every failure as a miss; no method returns an error that
// would abort a search or context load.
package cache
