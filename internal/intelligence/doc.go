// Package intelligence derives ranking signals from chunk content at query
// time: lifecycle status from checkboxes and keywords, temporal freshness
// from dates and phase markers, and priority from configured keyword and
// hierarchy multipliers.
//
// The extractors are pure functions of (content, path, configuration, now).
// Signals are recomputed for every query and never persisted, so tuning the
// heuristics requires no reindexing. The combined boost is bounded: each
// factor is clamped individually and the product lands in [1, cap], so
// boosting can reorder results but never drop one below its base score.
package intelligence
