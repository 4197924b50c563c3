package evolution

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// IndexVersion is written into every saved index.
const IndexVersion = "1.0.0"

// State is a thread's lifecycle state.
type State string

const (
	StateNew           State = "NEW"
	StateRecurring     State = "RECURRING"
	StateStrengthening State = "STRENGTHENING"
	StateWeakening     State = "WEAKENING"
	StateTransformed   State = "TRANSFORMED"
	StateFaded         State = "FADED"
)

// Confidence grades a thread match.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	// ConfidenceNone marks entries for newly created threads.
	ConfidenceNone Confidence = "N/A"
)

// Appearance records one day a thread was seen.
type Appearance struct {
	ScanDate  string  `json:"scan_date"`
	SignalID  string  `json:"signal_id"`
	Title     string  `json:"title"`
	PSSTScore float64 `json:"psst_score"`
	Source    string  `json:"source,omitempty"`
}

// MetricsSnapshot is the metrics computed on one matched scan date.
type MetricsSnapshot struct {
	Date      string  `json:"date"`
	Velocity  float64 `json:"velocity"`
	Direction string  `json:"direction"`
	Expansion float64 `json:"expansion"`
}

// Thread is one topic tracked across days.
type Thread struct {
	ID              string            `json:"-"`
	CanonicalTitle  string            `json:"canonical_title"`
	Keywords        []string          `json:"keywords"`
	PrimaryCategory string            `json:"primary_category"`
	AllCategories   []string          `json:"all_categories"`
	CreatedDate     string            `json:"created_date"`
	LastSeenDate    string            `json:"last_seen_date"`
	State           State             `json:"state"`
	AppearanceCount int               `json:"appearance_count"`
	Appearances     []Appearance      `json:"appearances"`
	MetricsHistory  []MetricsSnapshot `json:"metrics_history"`
}

// HasCategory reports whether category is already among AllCategories.
func (t *Thread) HasCategory(category string) bool {
	for _, c := range t.AllCategories {
		if c == category {
			return true
		}
	}
	return false
}

// fillEmpty replaces nil slices so the thread encodes with arrays, not nulls.
func (t *Thread) fillEmpty() {
	if t.Keywords == nil {
		t.Keywords = []string{}
	}
	if t.AllCategories == nil {
		t.AllCategories = []string{}
	}
	if t.Appearances == nil {
		t.Appearances = []Appearance{}
	}
	if t.MetricsHistory == nil {
		t.MetricsHistory = []MetricsSnapshot{}
	}
}

// LastAppearance returns the most recent appearance, if any.
func (t *Thread) LastAppearance() (Appearance, bool) {
	if len(t.Appearances) == 0 {
		return Appearance{}, false
	}
	return t.Appearances[len(t.Appearances)-1], true
}

// Index is the persistent thread store for one workflow.
type Index struct {
	IndexVersion    string             `json:"index_version"`
	Workflow        string             `json:"workflow"`
	CreatedAt       string             `json:"created_at,omitempty"`
	LastUpdated     string             `json:"last_updated,omitempty"`
	TotalThreads    int                `json:"total_threads"`
	ActiveThreads   int                `json:"active_threads"`
	ThreadIDCounter int                `json:"thread_id_counter"`
	Threads         map[string]*Thread `json:"threads"`
}

// NewIndex returns an empty index for workflow.
func NewIndex(workflow string, now time.Time) *Index {
	return &Index{
		IndexVersion:    IndexVersion,
		Workflow:        workflow,
		CreatedAt:       now.UTC().Format(time.RFC3339),
		ThreadIDCounter: 1,
		Threads:         make(map[string]*Thread),
	}
}

// SortedIDs returns thread ids in lexical order.
func (idx *Index) SortedIDs() []string {
	ids := make([]string, 0, len(idx.Threads))
	for id := range idx.Threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Recount refreshes the derived thread totals.
func (idx *Index) Recount() {
	idx.TotalThreads = len(idx.Threads)
	active := 0
	for _, t := range idx.Threads {
		if t.State != StateFaded {
			active++
		}
	}
	idx.ActiveThreads = active
}

// LatestSeenDate returns the most recent last_seen_date across threads.
func (idx *Index) LatestSeenDate() string {
	latest := ""
	for _, t := range idx.Threads {
		if t.LastSeenDate > latest {
			latest = t.LastSeenDate
		}
	}
	return latest
}

// MintThreadID allocates the next thread id and advances the counter.
func (idx *Index) MintThreadID() string {
	if idx.ThreadIDCounter < 1 {
		idx.ThreadIDCounter = 1
	}
	prefix := ThreadPrefix(idx.Workflow)
	for {
		id := fmt.Sprintf("THREAD-%s-%03d", prefix, idx.ThreadIDCounter)
		idx.ThreadIDCounter++
		if _, exists := idx.Threads[id]; !exists {
			return id
		}
	}
}

var workflowNumber = regexp.MustCompile(`(?i)wf(\d+)`)

// ThreadPrefix derives the thread-id namespace for a workflow: WF<n> when the
// name contains wf<n>, otherwise the upper-cased alphanumerics of the name.
func ThreadPrefix(workflow string) string {
	if m := workflowNumber.FindStringSubmatch(workflow); m != nil {
		return "WF" + m[1]
	}
	var b strings.Builder
	for _, r := range workflow {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.Len() == 0 {
		return "WF"
	}
	return b.String()
}
