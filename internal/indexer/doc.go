// Package indexer turns a markdown knowledge base into searchable state.
// Each run discovers documents under the configured root, chunks changed
// ones, embeds their content, and writes both the keyword and vector
// indexes before recording the document's content fingerprint.
//
// Fingerprint state lives in fingerprints.json inside the index directory
// and is written atomically. Because a document's entry is only updated
// after both index writes succeed, an interrupted run leaves documents
// either fully indexed or due for re-indexing, never half-done.
//
// Runs are mutually exclusive across processes through a lock file in the
// index directory.
package indexer
