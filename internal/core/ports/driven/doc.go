// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the fact ledger, the block log, the
// content index, the oracle services, and supporting stores.
package driven
