package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxTitleRunes = 80

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// FileParts are the components of an export filename.
type FileParts struct {
	Title        string
	PageSize     string
	Date         time.Time // omitted when zero
	VariantIndex int
	Pages        int
	Ext          string
}

// Filename builds "<title>_<pageSize>[_<yyyymmdd>]_v<variant>_<pages>p.<ext>".
func Filename(p FileParts) string {
	var b strings.Builder
	b.WriteString(SafeTitle(p.Title))
	b.WriteString("_")
	b.WriteString(p.PageSize)
	if !p.Date.IsZero() {
		b.WriteString("_")
		b.WriteString(p.Date.Format("20060102"))
	}
	fmt.Fprintf(&b, "_v%d_%dp", p.VariantIndex, p.Pages)
	if p.Ext != "" {
		b.WriteString(".")
		b.WriteString(strings.TrimPrefix(p.Ext, "."))
	}
	return b.String()
}

// SafeTitle replaces path and shell metacharacters and whitespace runs with
// underscores and caps the result at 80 runes.
func SafeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(title, "_")
	s = whitespace.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > maxTitleRunes {
		s = string(r[:maxTitleRunes])
	}
	if s == "" {
		s = "report"
	}
	return s
}

// ZipFilename names a batch archive created at t.
func ZipFilename(t time.Time) string {
	return "reports_" + t.Format("20060102") + ".zip"
}
