// Package domain contains the core business entities for factlens:
// document blocks, canonical fact rows, entity metadata, retrieval plans,
// and the schema summary. These types have no dependencies on adapters
// or infrastructure.
package domain
