// Package store provides the storage backends behind the rag interfaces: an
// in-memory vector store, a feature-hashing embedder for running without an
// embedding API, and two marketing knowledge graphs (in-memory and FalkorDB).
package store
