// Package signal defines the canonical Signal record and the boundary decoders
// that turn heterogeneous scan JSON into it.
//
// Collectors and classifiers emit signals under several shapes: top-level
// lists or objects keyed by classified_signals/items/signals/new_signals, URLs
// at url or source.url, keywords at content.keywords or keywords, and the
// category under final_category, preliminary_category, category, or
// steeps_category. All of that is resolved here so the dedup and evolution
// code never branches on key variants.
package signal
