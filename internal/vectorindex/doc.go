// Package vectorindex stores chunk embeddings and answers nearest-neighbor
// queries. The backing store is chromem-go, persisted write-through under the
// index directory, so index state survives restarts without an explicit save
// step.
//
// Vectors are always computed upstream and passed in; the store never embeds
// text itself. Chunk metadata travels alongside each vector so search hits
// come back as fully reconstructed chunks.
package vectorindex
