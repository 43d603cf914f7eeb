package pdfdoc

import (
	"regexp"
	"strings"
)

// Section is a contiguous span of the document text classified with a
// semantic section type. Start/End are byte offsets of the section body
// (heading excluded) within Document.Text.
type Section struct {
	Type      string
	Heading   string
	Text      string
	Start     int
	End       int
	StartPage int
}

// Canonical section types produced by Detect.
const (
	SectionFront           = "front"
	SectionAbstract        = "abstract"
	SectionIntroduction    = "introduction"
	SectionBackground      = "background"
	SectionMethods         = "methods"
	SectionResults         = "results"
	SectionDiscussion      = "discussion"
	SectionLimitations     = "limitations"
	SectionConclusion      = "conclusion"
	SectionReferences      = "references"
	SectionAcknowledgments = "acknowledgments"
	SectionAppendix        = "appendix"
	SectionOther           = "other"
)

// sectionKeywords maps heading keywords to canonical types. Longer, more
// specific keys are listed in matching order before their prefixes.
var sectionKeywords = []struct {
	keyword string
	typ     string
}{
	{"abstract", SectionAbstract},
	{"introduction", SectionIntroduction},
	{"related work", SectionBackground},
	{"background", SectionBackground},
	{"materials and methods", SectionMethods},
	{"methodology", SectionMethods},
	{"methods", SectionMethods},
	{"method", SectionMethods},
	{"study design", SectionMethods},
	{"experimental setup", SectionMethods},
	{"experiment", SectionMethods},
	{"participants", SectionMethods},
	{"apparatus", SectionMethods},
	{"procedure", SectionMethods},
	{"measures", SectionMethods},
	{"results", SectionResults},
	{"result", SectionResults},
	{"findings", SectionResults},
	{"evaluation", SectionResults},
	{"discussion", SectionDiscussion},
	{"limitations", SectionLimitations},
	{"limitation", SectionLimitations},
	{"future work", SectionDiscussion},
	{"conclusions", SectionConclusion},
	{"conclusion", SectionConclusion},
	{"concluding remarks", SectionConclusion},
	{"references", SectionReferences},
	{"bibliography", SectionReferences},
	{"acknowledgments", SectionAcknowledgments},
	{"acknowledgements", SectionAcknowledgments},
	{"acknowledgment", SectionAcknowledgments},
	{"acknowledgement", SectionAcknowledgments},
	{"appendix", SectionAppendix},
}

// headingNumberRe strips leading section numbering like "3.", "4.2", "IV."
var headingNumberRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.?)\s+`)

// Detect splits the document text into typed sections at recognized
// academic headings. Text preceding the first heading becomes a "front"
// section. Returns nil when no heading is recognized; callers treat that
// as a document-level failure rather than inventing a structure.
func Detect(doc *Document) []Section {
	var sections []Section

	cur := Section{Type: SectionFront, Start: 0}
	sawHeading := false

	offset := 0
	for _, line := range strings.SplitAfter(doc.Text, "\n") {
		lineStart := offset
		offset += len(line)

		trimmed := strings.TrimSpace(line)
		typ, ok := classifyHeading(trimmed)
		if !ok {
			continue
		}
		sawHeading = true

		cur.End = lineStart
		if s, ok := finishSection(doc, cur); ok {
			sections = append(sections, s)
		}
		cur = Section{Type: typ, Heading: trimmed, Start: offset}
	}

	if !sawHeading {
		return nil
	}

	cur.End = len(doc.Text)
	if s, ok := finishSection(doc, cur); ok {
		sections = append(sections, s)
	}
	return sections
}

// finishSection fills the derived fields and reports whether the section
// has any body text worth keeping.
func finishSection(doc *Document, s Section) (Section, bool) {
	if s.End <= s.Start {
		return s, false
	}
	s.Text = doc.Text[s.Start:s.End]
	if strings.TrimSpace(s.Text) == "" {
		return s, false
	}
	s.StartPage = doc.PageAt(s.Start)
	if s.StartPage == 0 && len(doc.Pages) > 0 {
		s.StartPage = doc.Pages[0].Number
	}
	return s, true
}

// classifyHeading reports whether a line is an academic section heading
// and the canonical type it maps to. Heading lines are short, carry no
// sentence punctuation, and after optional numbering start with a known
// section keyword.
func classifyHeading(line string) (string, bool) {
	if line == "" || len(line) > 80 {
		return "", false
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return "", false
	}

	stripped := headingNumberRe.ReplaceAllString(line, "")
	lower := strings.ToLower(strings.TrimSpace(stripped))
	if lower == "" {
		return "", false
	}

	for _, e := range sectionKeywords {
		if lower == e.keyword {
			return e.typ, true
		}
		// Compound headings like "Results and Discussion".
		if strings.HasPrefix(lower, e.keyword+" and ") || strings.HasPrefix(lower, e.keyword+" & ") {
			return e.typ, true
		}
	}
	return "", false
}
