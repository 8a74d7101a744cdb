package classifier

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FalsePositiveLabel is the label of a result without an animal.
const FalsePositiveLabel = "False Positive"

// Detection is one labeled box reported by a detection backend.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of classifying one still frame.
type Result struct {
	IsAnimal   bool    `json:"is_animal"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Empty returns the result recorded when no animal was found.
func Empty() Result {
	return Result{IsAnimal: false, Label: FalsePositiveLabel, Confidence: 0}
}

// LabelSet is a case-insensitive set of detector classes treated as animals.
type LabelSet map[string]struct{}

// NewLabelSet builds a LabelSet from labels, ignoring blanks.
func NewLabelSet(labels []string) LabelSet {
	set := make(LabelSet, len(labels))
	for _, label := range labels {
		key := normalizeLabel(label)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// Contains reports whether label is in the set.
func (s LabelSet) Contains(label string) bool {
	_, ok := s[normalizeLabel(label)]
	return ok
}

// Select picks the highest-confidence detection whose label is in animals.
// A detection must beat the current best strictly, starting from zero, so the
// first detection at the maximum wins and zero-confidence detections never do.
func Select(detections []Detection, animals LabelSet) Result {
	var (
		best   float64
		winner string
	)
	for _, det := range detections {
		if !animals.Contains(det.Label) {
			continue
		}
		if det.Confidence > best {
			best = det.Confidence
			winner = det.Label
		}
	}
	if winner == "" {
		return Empty()
	}
	return Result{IsAnimal: true, Label: displayLabel(winner), Confidence: best}
}

// displayLabel upper-cases the first letter of the lowercased label, so
// "teddy bear" becomes "Teddy bear". A Caser carries state, so one is built
// per call.
func displayLabel(label string) string {
	label = normalizeLabel(label)
	_, size := utf8.DecodeRuneInString(label)
	return cases.Upper(language.Und).String(label[:size]) + label[size:]
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
