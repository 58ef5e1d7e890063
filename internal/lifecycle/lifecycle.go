// Package lifecycle classifies how themes change from one ply to the next.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/discochess/lookahead/internal/themes"
)

// Diff compares the themes active at the previous ply with the current ones.
//
// A current theme absent last ply emerged; present with a higher severity it
// escalated, otherwise it persists. A previous theme absent now resolved,
// unless a theme of the same family emerged for the same side on the same
// square, in which case the pair is reported once as transformed.
func Diff(prev, curr []themes.Instance) []themes.Delta {
	prevByKey := index(prev)
	currByKey := index(curr)

	var (
		out      []themes.Delta
		emerged  []int
		resolved []themes.Instance
	)
	for _, t := range unique(curr) {
		old, ok := prevByKey[t.Key()]
		if !ok {
			emerged = append(emerged, len(out))
			out = append(out, themes.Delta{
				Theme:      t,
				Transition: themes.Emerged,
				Change:     fmt.Sprintf("%s appears on %s", t.Type, t.Primary),
			})
			continue
		}
		sev := old.Severity
		d := themes.Delta{Theme: t, Previous: &sev}
		if t.Severity > old.Severity {
			d.Transition = themes.Escalated
			d.Change = fmt.Sprintf("%s grows from %s to %s", t.Type, old.Severity, t.Severity)
		} else {
			d.Transition = themes.Persisting
			d.Change = fmt.Sprintf("%s remains", t.Type)
		}
		out = append(out, d)
	}

	for _, t := range unique(prev) {
		if _, ok := currByKey[t.Key()]; !ok {
			resolved = append(resolved, t)
		}
	}

	for _, r := range resolved {
		if i, ok := transformedInto(out, emerged, r); ok {
			sev := r.Severity
			out[i].Transition = themes.Transformed
			out[i].Previous = &sev
			out[i].PreviousType = r.Type
			out[i].Change = fmt.Sprintf("%s becomes %s", r.Type, out[i].Theme.Type)
			continue
		}
		out = append(out, themes.Delta{
			Theme:      r,
			Transition: themes.Resolved,
			Change:     fmt.Sprintf("%s on %s is gone", r.Type, r.Primary),
		})
	}
	return out
}

// transformedInto finds a still-emerged delta that r turned into.
func transformedInto(out []themes.Delta, emerged []int, r themes.Instance) (int, bool) {
	for _, i := range emerged {
		e := out[i]
		if e.Transition != themes.Emerged {
			continue
		}
		t := e.Theme
		if t.Type != r.Type &&
			t.Type.Family() == r.Type.Family() &&
			t.Beneficiary == r.Beneficiary &&
			t.Primary == r.Primary {
			return i, true
		}
	}
	return 0, false
}

// index maps theme keys to the most severe instance with that key.
func index(in []themes.Instance) map[string]themes.Instance {
	m := make(map[string]themes.Instance, len(in))
	for _, t := range in {
		if old, ok := m[t.Key()]; !ok || t.Severity > old.Severity {
			m[t.Key()] = t
		}
	}
	return m
}

// unique returns one instance per key in first-seen order, keeping the most
// severe duplicate.
func unique(in []themes.Instance) []themes.Instance {
	best := index(in)
	seen := make(map[string]bool, len(in))
	out := make([]themes.Instance, 0, len(best))
	for _, t := range in {
		k := t.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, best[k])
	}
	return out
}

// Tracker owns the active theme sets of explored positions. It must be
// reset between explorations that share no history. A Tracker is safe for
// concurrent use.
type Tracker struct {
	mu     sync.Mutex
	active map[string][]themes.Instance
	last   []themes.Instance
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string][]themes.Instance)}
}

// Observe records the themes of position key reached from parentKey and
// returns the deltas against the parent's themes. A parent with no recorded
// themes yields all themes as emerged.
func (t *Tracker) Observe(parentKey, key string, curr []themes.Instance) []themes.Delta {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.active[parentKey]
	t.active[key] = themes.CloneInstances(curr)
	return Diff(prev, curr)
}

// Record sets the themes of key without diffing them.
func (t *Tracker) Record(key string, curr []themes.Instance) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[key] = themes.CloneInstances(curr)
}

// Active returns the recorded themes of key.
func (t *Tracker) Active(key string) ([]themes.Instance, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	in, ok := t.active[key]
	return themes.CloneInstances(in), ok
}

// Step advances a linear ply sequence and returns the deltas against the
// previous step.
func (t *Tracker) Step(curr []themes.Instance) []themes.Delta {
	t.mu.Lock()
	defer t.mu.Unlock()

	deltas := Diff(t.last, curr)
	t.last = themes.CloneInstances(curr)
	return deltas
}

// Reset forgets all state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = make(map[string][]themes.Instance)
	t.last = nil
}
