// Package engine is the retrieval facade. It wires the chunker, the
// backend selector, and the snapshot store into two entry points: Ingest,
// which rebuilds the index from a corpus, and Query, which renders the
// top matches for a question as labeled context blocks.
//
// Ingestion is single-writer: a non-blocking lock rejects concurrent
// ingests instead of queueing them. Queries never take that lock; they
// search a consistent copy of the index, so a query racing an ingest sees
// either the old index or the new one, never a partial state.
package engine
