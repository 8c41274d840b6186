package pipeline

import (
	"github.com/BemoBit/po-translator/pofile"
)

// SingularField is the PluralIndex value identifying the primary
// (msgstr) field of an entry.
const SingularField = -1

// Task is one unit of translation work: a single text field of a
// catalog entry, identified by entry position and field selector.
// Tasks are immutable and consumed exactly once by a worker.
type Task struct {
	EntryIndex  int
	PluralIndex int
	Text        string
}

// Result is the translated counterpart of a Task, produced by a worker
// and merged into the catalog by the driver.
type Result struct {
	EntryIndex  int
	PluralIndex int
	Text        string
	// Degraded marks a failed translation resolved to the source text.
	Degraded bool
	// FromCache marks a result served without a backend call.
	FromCache bool
}

// Extract builds the task list for a catalog. Untranslated primary
// texts and untranslated plural forms each become their own task; with
// retranslate set, already-translated fields are included too.
// Obsolete entries and the header are never extracted.
func Extract(cat *pofile.File, retranslate bool) []Task {
	var tasks []Task
	for i, e := range cat.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}

		if e.MsgIDPlural == "" {
			if e.MsgStr == "" || retranslate {
				tasks = append(tasks, Task{EntryIndex: i, PluralIndex: SingularField, Text: e.MsgID})
			}
			continue
		}

		for _, idx := range e.PluralIndices() {
			if e.MsgStrPlural[idx] != "" && !retranslate {
				continue
			}
			// Form 0 translates the singular source, the rest the
			// plural source.
			text := e.MsgIDPlural
			if idx == 0 {
				text = e.MsgID
			}
			tasks = append(tasks, Task{EntryIndex: i, PluralIndex: idx, Text: text})
		}
	}
	return tasks
}

// Apply merges one result into the catalog by entry identity. The
// final catalog state is independent of result arrival order because
// each result targets exactly one field.
func Apply(cat *pofile.File, r Result) {
	if r.EntryIndex < 0 || r.EntryIndex >= len(cat.Entries) {
		return
	}
	e := cat.Entries[r.EntryIndex]
	if r.PluralIndex == SingularField {
		e.MsgStr = r.Text
		return
	}
	if e.MsgStrPlural == nil {
		e.MsgStrPlural = map[int]string{}
	}
	e.MsgStrPlural[r.PluralIndex] = r.Text
}
