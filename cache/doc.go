// Package cache provides a Redis-backed JSON cache with per-entry TTLs and
// expiring counters. The web-search client uses it for result caching and for
// its monthly request quota.
package cache
