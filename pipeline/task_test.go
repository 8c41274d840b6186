package pipeline

import (
	"reflect"
	"testing"

	"github.com/BemoBit/po-translator/pofile"
)

func TestExtractSkipsTranslatedObsoleteAndHeader(t *testing.T) {
	cat := pofile.NewFile()
	cat.Entries = []*pofile.Entry{
		{MsgID: "one", MsgStr: ""},
		{MsgID: "two", MsgStr: "done"},
		{MsgID: "gone", MsgStr: "", Obsolete: true},
		{MsgID: ""},
		{MsgID: "three"},
	}

	tasks := Extract(cat, false)
	want := []Task{
		{EntryIndex: 0, PluralIndex: SingularField, Text: "one"},
		{EntryIndex: 4, PluralIndex: SingularField, Text: "three"},
	}
	if !reflect.DeepEqual(tasks, want) {
		t.Fatalf("Extract = %+v, want %+v", tasks, want)
	}
}

func TestExtractRetranslateIncludesTranslated(t *testing.T) {
	cat := pofile.NewFile()
	cat.Entries = []*pofile.Entry{
		{MsgID: "one", MsgStr: "done"},
		{MsgID: "two", MsgStr: ""},
	}

	tasks := Extract(cat, true)
	if len(tasks) != 2 {
		t.Fatalf("Extract with retranslate = %d tasks, want 2", len(tasks))
	}
}

func TestExtractPluralForms(t *testing.T) {
	cat := pofile.NewFile()
	cat.Entries = []*pofile.Entry{
		{
			MsgID:        "%d file",
			MsgIDPlural:  "%d files",
			MsgStrPlural: map[int]string{0: "", 1: "", 2: "existing"},
		},
	}

	tasks := Extract(cat, false)
	want := []Task{
		{EntryIndex: 0, PluralIndex: 0, Text: "%d file"},
		{EntryIndex: 0, PluralIndex: 1, Text: "%d files"},
	}
	if !reflect.DeepEqual(tasks, want) {
		t.Fatalf("Extract = %+v, want %+v", tasks, want)
	}
}

func TestApplyTargetsOneFieldByIdentity(t *testing.T) {
	cat := pofile.NewFile()
	cat.Entries = []*pofile.Entry{
		{MsgID: "one"},
		{MsgID: "%d file", MsgIDPlural: "%d files", MsgStrPlural: map[int]string{0: "", 1: ""}},
	}

	// Order of application does not matter, each result owns its field.
	results := []Result{
		{EntryIndex: 1, PluralIndex: 1, Text: "viele"},
		{EntryIndex: 0, PluralIndex: SingularField, Text: "eins"},
		{EntryIndex: 1, PluralIndex: 0, Text: "eine"},
	}
	for _, r := range results {
		Apply(cat, r)
	}

	if cat.Entries[0].MsgStr != "eins" {
		t.Fatalf("MsgStr = %q", cat.Entries[0].MsgStr)
	}
	if !reflect.DeepEqual(cat.Entries[1].MsgStrPlural, map[int]string{0: "eine", 1: "viele"}) {
		t.Fatalf("MsgStrPlural = %v", cat.Entries[1].MsgStrPlural)
	}
}

func TestApplyIgnoresOutOfRangeResults(t *testing.T) {
	cat := pofile.NewFile()
	cat.Entries = []*pofile.Entry{{MsgID: "one"}}

	Apply(cat, Result{EntryIndex: -1, PluralIndex: SingularField, Text: "x"})
	Apply(cat, Result{EntryIndex: 5, PluralIndex: SingularField, Text: "x"})
	if cat.Entries[0].MsgStr != "" {
		t.Fatalf("out-of-range result was applied: %q", cat.Entries[0].MsgStr)
	}
}

func TestBatchesPreserveOrder(t *testing.T) {
	tasks := make([]Task, 25)
	for i := range tasks {
		tasks[i] = Task{EntryIndex: i}
	}

	got := batches(tasks, 10)
	if len(got) != 3 || len(got[0]) != 10 || len(got[1]) != 10 || len(got[2]) != 5 {
		t.Fatalf("batches sizes = %d/%v", len(got), got)
	}
	idx := 0
	for _, b := range got {
		for _, task := range b {
			if task.EntryIndex != idx {
				t.Fatalf("task order broken at %d", idx)
			}
			idx++
		}
	}
}
