package evolution

import (
	"time"

	"envscan/internal/signal"
)

// Fade reasons.
const (
	FadeReasonInactive = "inactive"
	FadeReasonMaxAge   = "max_age"
)

// FadedThread reports a thread that faded during a run.
type FadedThread struct {
	ThreadID        string `json:"thread_id"`
	CanonicalTitle  string `json:"canonical_title"`
	LastSeenDate    string `json:"last_seen_date"`
	AppearanceCount int    `json:"appearance_count"`
	Reason          string `json:"reason"`
}

// DetectFaded marks live threads FADED when they have gone unseen for more
// than fadeDays, or were created more than maxAgeDays before asOf. Threads
// that are already FADED are skipped. Unparseable dates leave the
// corresponding rule unapplied. Results are in thread id order.
func DetectFaded(idx *Index, asOf time.Time, fadeDays, maxAgeDays int) []FadedThread {
	var out []FadedThread
	for _, id := range idx.SortedIDs() {
		thread := idx.Threads[id]
		if thread.State == StateFaded {
			continue
		}

		reason := ""
		if last, err := signal.ParseDate(thread.LastSeenDate); err == nil {
			if signal.DaysBetween(last, asOf) > fadeDays {
				reason = FadeReasonInactive
			}
		}
		if reason == "" {
			if created, err := signal.ParseDate(thread.CreatedDate); err == nil {
				if signal.DaysBetween(created, asOf) > maxAgeDays {
					reason = FadeReasonMaxAge
				}
			}
		}
		if reason == "" {
			continue
		}

		thread.State = StateFaded
		out = append(out, FadedThread{
			ThreadID:        id,
			CanonicalTitle:  thread.CanonicalTitle,
			LastSeenDate:    thread.LastSeenDate,
			AppearanceCount: thread.AppearanceCount,
			Reason:          reason,
		})
	}
	return out
}
