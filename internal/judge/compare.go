package judge

import "strings"

// OutputsMatch compares program output against the expected answer.
// Trailing whitespace on each line and trailing blank lines are not
// significant; any interior difference is.
func OutputsMatch(expected, actual string) bool {
	return canonicalize(expected) == canonicalize(actual)
}

func canonicalize(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\n")
}
