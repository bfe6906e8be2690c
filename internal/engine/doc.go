// Package engine composes the retrieval stack into one facade: open the
// configured components, index the knowledge base, answer queries, report
// stats. The CLI is a thin layer over this package.
package engine
