package ai

import (
	"github.com/robalyx/sentinel/pkg/utils"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxFieldLength is the character limit of one embed field value.
const MaxFieldLength = 1024

// ActivityReport is the presentable form of an extraction.
type ActivityReport struct {
	// Fields are newline-joined member lines, each within MaxFieldLength.
	Fields  []string
	Count   int
	Highest *ActivityEntry
	Lowest  *ActivityEntry
}

// FormatPoints renders points with thousands separators.
func FormatPoints(points int) string {
	return message.NewPrinter(language.English).Sprintf("%d", points)
}

// FormatActivity builds the member fields and summary for sorted entries.
func FormatActivity(entries []ActivityEntry) *ActivityReport {
	report := &ActivityReport{Count: len(entries)}
	if len(entries) == 0 {
		return report
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, "**"+entry.MemberName+"**: "+FormatPoints(entry.WeekActivityPoints)+" points")
	}

	report.Fields = utils.ChunkLines(lines, MaxFieldLength)
	report.Highest = &entries[0]
	report.Lowest = &entries[len(entries)-1]

	return report
}
