package entities

import "fmt"

// Severity is the clinical weight of an interaction. It is a closed set of
// labels, not a numeric scale.
type Severity string

const (
	SeverityContraindicated Severity = "contraindicated"
	SeverityMajor           Severity = "major"
	SeverityModerate        Severity = "moderate"
	SeverityMinor           Severity = "minor"
)

// DefaultSeverity is applied when an interaction is created without one
const DefaultSeverity = SeverityModerate

var severityLabels = map[Severity]string{
	SeverityContraindicated: "Chống chỉ định",
	SeverityMajor:           "Tương tác nghiêm trọng",
	SeverityModerate:        "Tương tác trung bình",
	SeverityMinor:           "Tương tác nhẹ",
}

var severityColors = map[Severity]string{
	SeverityContraindicated: "danger",
	SeverityMajor:           "warning",
	SeverityModerate:        "info",
	SeverityMinor:           "success",
}

// Severities returns every severity, most serious first
func Severities() []Severity {
	return []Severity{
		SeverityContraindicated,
		SeverityMajor,
		SeverityModerate,
		SeverityMinor,
	}
}

// ParseSeverity returns the severity matching s exactly
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(s)
	if !sev.Valid() {
		return "", fmt.Errorf("unknown severity %q", s)
	}
	return sev, nil
}

func (s Severity) Valid() bool {
	_, ok := severityLabels[s]
	return ok
}

// Label returns the human readable label shown to users
func (s Severity) Label() string {
	if label, ok := severityLabels[s]; ok {
		return label
	}
	return string(s)
}

// Color returns the Bootstrap contextual class used to render the severity
func (s Severity) Color() string {
	if color, ok := severityColors[s]; ok {
		return color
	}
	return "secondary"
}

// Rank orders severities from most (0) to least serious. Unknown values sort last.
func (s Severity) Rank() int {
	for i, sev := range Severities() {
		if sev == s {
			return i
		}
	}
	return len(severityLabels)
}

func (s Severity) String() string {
	return string(s)
}
