package testsupport

// SignalDoc is a classified signal as the upstream pipeline writes it.
type SignalDoc map[string]any

// Signal builds a minimal classified signal document.
func Signal(id, title, url string, keywords ...string) SignalDoc {
	doc := SignalDoc{"id": id, "title": title}
	if url != "" {
		doc["url"] = url
	}
	if len(keywords) > 0 {
		doc["keywords"] = keywords
	}
	return doc
}

// With returns a copy of d with key set to value.
func (d SignalDoc) With(key string, value any) SignalDoc {
	out := make(SignalDoc, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[key] = value
	return out
}

// Batch wraps signals the way the collection stage emits them.
func Batch(signals ...SignalDoc) map[string]any {
	if signals == nil {
		signals = []SignalDoc{}
	}
	return map[string]any{"signals": signals}
}

// StartTreatyScenario returns the new-signal batch and previous-signals
// history used in end-to-end gate tests: new-001 repeats prev-001 in other
// words, new-002 is unrelated.
func StartTreatyScenario() (batch, history map[string]any) {
	batch = Batch(
		Signal("new-001", "New START Treaty Expiration Risk", "https://example.com/new-start-2", "nuclear arms", "treaty"),
		Signal("new-002", "Completely Novel Discovery in Marine Biology", "https://example.com/marine"),
	)
	history = Batch(
		Signal("prev-001", "New START Nuclear Treaty Expires", "https://example.com/new-start-1"),
	)
	return batch, history
}
