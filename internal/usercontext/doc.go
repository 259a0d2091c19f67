// Package usercontext assembles per-user personalization snapshots.
//
// A Loader reads the profile, progress counters and recent activity of a
// user, derives engagement signals (inactivity gap, timing pattern, score
// trend) and scores the user's disengagement risk. Snapshots are cached
// per user and namespace for an hour; the Recorder write path records
// completed practices and invalidates those entries.
package usercontext
