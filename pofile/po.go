// Package pofile reads and writes gettext PO catalogs. It preserves
// comments, references, flags and plural forms so a translated catalog
// round-trips cleanly through the pipeline.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry is one translatable message in a catalog.
type Entry struct {
	// TranslatorComments are "# " lines.
	TranslatorComments []string
	// ExtractedComments are "#." lines.
	ExtractedComments []string
	// References are "#:" source locations.
	References []string
	// Flags are "#," flags such as fuzzy or c-format.
	Flags []string

	// MsgCtxt is the optional message context.
	MsgCtxt string
	// MsgID is the source text.
	MsgID string
	// MsgIDPlural is the plural source text, empty for singular entries.
	MsgIDPlural string
	// MsgStr is the translation of a singular entry.
	MsgStr string
	// MsgStrPlural maps plural form index to its translation.
	MsgStrPlural map[int]string

	// Obsolete marks "#~" entries, which are never translated.
	Obsolete bool
}

// IsTranslated reports whether the entry carries a complete translation.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" {
		return false
	}
	if e.MsgIDPlural != "" {
		if len(e.MsgStrPlural) == 0 {
			return false
		}
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr != ""
}

// IsFuzzy reports whether the entry is flagged fuzzy.
func (e *Entry) IsFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// PluralIndices returns the plural form indices present on the entry,
// in ascending order.
func (e *Entry) PluralIndices() []int {
	idx := make([]int, 0, len(e.MsgStrPlural))
	for i := range e.MsgStrPlural {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// File is a parsed PO catalog.
type File struct {
	// Header is the msgid "" metadata entry.
	Header *Entry
	// Entries are the message entries in file order.
	Entries []*Entry
}

// NewFile returns an empty catalog with a blank header.
func NewFile() *File {
	return &File{Header: &Entry{}}
}

// HeaderField looks up a metadata field (e.g. "Language") by name,
// case-insensitively.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SetHeaderField replaces or appends a metadata field.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{}
	}
	lines := strings.Split(f.Header.MsgStr, "\n")
	for i, line := range lines {
		key, _, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(key), name) {
			lines[i] = name + ": " + value
			f.Header.MsgStr = strings.Join(lines, "\n")
			return
		}
	}
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = append(lines[:n-1], name+": "+value, "")
	} else {
		lines = append(lines, name+": "+value)
	}
	f.Header.MsgStr = strings.Join(lines, "\n")
}

// Stats counts entries by translation state. Obsolete entries and the
// header are excluded.
func (f *File) Stats() (total, translated, fuzzy, untranslated int) {
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		total++
		switch {
		case e.IsFuzzy():
			fuzzy++
		case e.IsTranslated():
			translated++
		default:
			untranslated++
		}
	}
	return
}

// field identifies which message field a continuation line belongs to.
type field int

const (
	fieldNone field = iota
	fieldMsgCtxt
	fieldMsgID
	fieldMsgIDPlural
	fieldMsgStr
	fieldMsgStrPlural
)

// Parse reads a PO catalog from r.
func Parse(r io.Reader) (*File, error) {
	f := &File{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		cur       *Entry
		curField  field
		pluralIdx int
		lineNum   int
	)

	flush := func() {
		if cur == nil {
			return
		}
		if cur.MsgID == "" && !cur.Obsolete && f.Header == nil {
			f.Header = cur
		} else {
			f.Entries = append(f.Entries, cur)
		}
		cur = nil
		curField = fieldNone
	}

	for sc.Scan() {
		lineNum++
		line := sc.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if cur == nil {
			cur = &Entry{MsgStrPlural: map[int]string{}}
		}

		if strings.HasPrefix(line, "#~ ") {
			cur.Obsolete = true
			line = strings.TrimPrefix(line, "#~ ")
		}

		switch {
		case strings.HasPrefix(line, "#:"):
			cur.References = append(cur.References, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "#,"):
			for _, flag := range strings.Split(line[2:], ",") {
				if flag = strings.TrimSpace(flag); flag != "" {
					cur.Flags = append(cur.Flags, flag)
				}
			}
		case strings.HasPrefix(line, "#."):
			cur.ExtractedComments = append(cur.ExtractedComments, strings.TrimSpace(line[2:]))
		case strings.HasPrefix(line, "#"):
			cur.TranslatorComments = append(cur.TranslatorComments, strings.TrimPrefix(strings.TrimPrefix(line, "#"), " "))
		case strings.HasPrefix(line, "msgctxt "):
			cur.MsgCtxt = unquote(line[len("msgctxt "):])
			curField = fieldMsgCtxt
		case strings.HasPrefix(line, "msgid_plural "):
			cur.MsgIDPlural = unquote(line[len("msgid_plural "):])
			curField = fieldMsgIDPlural
		case strings.HasPrefix(line, "msgid "):
			cur.MsgID = unquote(line[len("msgid "):])
			curField = fieldMsgID
		case strings.HasPrefix(line, "msgstr["):
			var idx int
			if _, err := fmt.Sscanf(line, "msgstr[%d]", &idx); err != nil {
				return nil, fmt.Errorf("line %d: malformed msgstr index: %q", lineNum, line)
			}
			bracket := strings.Index(line, "]")
			cur.MsgStrPlural[idx] = unquote(line[bracket+1:])
			curField = fieldMsgStrPlural
			pluralIdx = idx
		case strings.HasPrefix(line, "msgstr "):
			cur.MsgStr = unquote(line[len("msgstr "):])
			curField = fieldMsgStr
		case strings.HasPrefix(line, `"`):
			val := unquote(line)
			switch curField {
			case fieldMsgCtxt:
				cur.MsgCtxt += val
			case fieldMsgID:
				cur.MsgID += val
			case fieldMsgIDPlural:
				cur.MsgIDPlural += val
			case fieldMsgStr:
				cur.MsgStr += val
			case fieldMsgStrPlural:
				cur.MsgStrPlural[pluralIdx] += val
			}
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if f.Header == nil {
		f.Header = &Entry{}
	}
	return f, nil
}

// Load reads a PO catalog from disk.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Write serializes the catalog to w.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if f.Header != nil {
		writeEntry(bw, f.Header)
	}
	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		writeEntry(bw, e)
	}
	return bw.Flush()
}

// Save writes the catalog to path, creating or truncating the file.
func (f *File) Save(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.Write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeEntry(w *bufio.Writer, e *Entry) {
	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	for _, ref := range e.References {
		fmt.Fprintf(w, "#: %s\n", ref)
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}

	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}
	if e.MsgCtxt != "" {
		writeField(w, prefix+"msgctxt", e.MsgCtxt)
	}
	writeField(w, prefix+"msgid", e.MsgID)
	if e.MsgIDPlural != "" {
		writeField(w, prefix+"msgid_plural", e.MsgIDPlural)
		for _, idx := range e.PluralIndices() {
			writeField(w, fmt.Sprintf("%smsgstr[%d]", prefix, idx), e.MsgStrPlural[idx])
		}
	} else {
		writeField(w, prefix+"msgstr", e.MsgStr)
	}
}

// writeField emits a keyword plus quoted value, splitting multiline
// values into the conventional empty-first-line form.
func writeField(w *bufio.Writer, keyword, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", keyword, quote(value))
		return
	}
	fmt.Fprintf(w, "%s \"\"\n", keyword)
	for _, part := range strings.SplitAfter(value, "\n") {
		if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
