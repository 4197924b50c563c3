package evolution

// ComputeState decides the state a matched thread moves to.
//
// A MEDIUM-confidence match whose category differs from the thread's primary
// category is TRANSFORMED regardless of score movement. Otherwise a pSST rise
// of at least strengtheningDelta, or a category the thread has not seen, is
// STRENGTHENING; a fall to weakeningDelta or below is WEAKENING; anything in
// between is RECURRING.
func ComputeState(thread *Thread, obs Observation, confidence Confidence, strengtheningDelta, weakeningDelta float64) State {
	last, ok := thread.LastAppearance()
	if !ok {
		return StateRecurring
	}

	if confidence == ConfidenceMedium &&
		thread.PrimaryCategory != "" && obs.Category != "" &&
		thread.PrimaryCategory != obs.Category {
		return StateTransformed
	}

	delta := obs.PSST - last.PSSTScore
	newCategory := obs.Category != "" && !thread.HasCategory(obs.Category)
	switch {
	case delta >= strengtheningDelta || newCategory:
		return StateStrengthening
	case delta <= weakeningDelta:
		return StateWeakening
	default:
		return StateRecurring
	}
}
