// Package langmeta provides the language metadata registry (English
// and native names) and source-language detection for PO catalogs.
package langmeta

import (
	"sort"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/BemoBit/po-translator/pofile"
)

// Auto is the pseudo-code used when the source language is unknown and
// the backend should detect it per request.
const Auto = "auto"

// Meta describes one language.
type Meta struct {
	// Name is the English display name.
	Name string
	// Native is the language's own name for itself.
	Native string
}

// Registry maps ISO 639-1 codes to display metadata.
var Registry = map[string]Meta{
	"ar": {Name: "Arabic", Native: "العربية"},
	"bg": {Name: "Bulgarian", Native: "Български"},
	"cs": {Name: "Czech", Native: "Čeština"},
	"da": {Name: "Danish", Native: "Dansk"},
	"de": {Name: "German", Native: "Deutsch"},
	"el": {Name: "Greek", Native: "Ελληνικά"},
	"en": {Name: "English", Native: "English"},
	"es": {Name: "Spanish", Native: "Español"},
	"fa": {Name: "Persian/Farsi", Native: "فارسی"},
	"fi": {Name: "Finnish", Native: "Suomi"},
	"fr": {Name: "French", Native: "Français"},
	"he": {Name: "Hebrew", Native: "עברית"},
	"hi": {Name: "Hindi", Native: "हिन्दी"},
	"hu": {Name: "Hungarian", Native: "Magyar"},
	"id": {Name: "Indonesian", Native: "Bahasa Indonesia"},
	"it": {Name: "Italian", Native: "Italiano"},
	"ja": {Name: "Japanese", Native: "日本語"},
	"ko": {Name: "Korean", Native: "한국어"},
	"nl": {Name: "Dutch", Native: "Nederlands"},
	"pl": {Name: "Polish", Native: "Polski"},
	"pt": {Name: "Portuguese", Native: "Português"},
	"ro": {Name: "Romanian", Native: "Română"},
	"ru": {Name: "Russian", Native: "Русский"},
	"sv": {Name: "Swedish", Native: "Svenska"},
	"th": {Name: "Thai", Native: "ไทย"},
	"tr": {Name: "Turkish", Native: "Türkçe"},
	"uk": {Name: "Ukrainian", Native: "Українська"},
	"vi": {Name: "Vietnamese", Native: "Tiếng Việt"},
	"zh": {Name: "Chinese", Native: "中文"},
}

// Normalize lowercases a code and strips locale/encoding suffixes
// ("ru_RU.UTF-8" -> "ru", "pt-BR" -> "pt").
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if idx := strings.IndexAny(code, "-_."); idx > 0 {
		code = code[:idx]
	}
	return code
}

// Name returns the English display name for a code, or the code itself
// when it is not in the registry.
func Name(code string) string {
	if m, ok := Registry[Normalize(code)]; ok {
		return m.Name
	}
	return code
}

// Known returns all registered codes in sorted order.
func Known() []string {
	codes := make([]string, 0, len(Registry))
	for code := range Registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Detect determines the source language of a catalog. It checks the
// Language header, then the Language-Team header, then samples source
// texts and runs statistical detection. Returns Auto when nothing
// conclusive is found.
func Detect(f *pofile.File) string {
	if code := Normalize(f.HeaderField("Language")); code != "" {
		if _, ok := Registry[code]; ok {
			return code
		}
	}

	if team := strings.ToLower(f.HeaderField("Language-Team")); team != "" {
		for code, meta := range Registry {
			if strings.Contains(team, strings.ToLower(meta.Name)) {
				return code
			}
		}
	}

	if code := detectFromContent(f); code != "" {
		return code
	}
	return Auto
}

// detectFromContent samples up to ten longer source strings and runs
// trigram-based detection over the combined text.
func detectFromContent(f *pofile.File) string {
	var sample strings.Builder
	count := 0
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete || len(e.MsgID) <= 10 {
			continue
		}
		sample.WriteString(e.MsgID)
		sample.WriteByte(' ')
		if count++; count == 10 {
			break
		}
	}
	if sample.Len() == 0 {
		return ""
	}

	info := whatlanggo.Detect(sample.String())
	if !info.IsReliable() {
		return ""
	}
	// The registry only feeds display names; backends accept any ISO
	// code, so out-of-registry detections pass through as-is.
	return info.Lang.Iso6391()
}
