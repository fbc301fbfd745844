package assistant

import "regexp"

// annotationPattern matches citation markers such as 【4:0†source】.
// The match is the shortest span and never crosses a line break.
var annotationPattern = regexp.MustCompile(`【.*?】`)

// StripAnnotations removes every bracketed citation span from text.
func StripAnnotations(text string) string {
	return annotationPattern.ReplaceAllString(text, "")
}
