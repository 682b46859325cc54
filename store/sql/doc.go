// Package sqlstore persists the lock and task ledgers with bun, so that
// acquisitions survive restarts and are visible across processes.
package sqlstore
