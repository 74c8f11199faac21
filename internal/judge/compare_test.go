package judge_test

import (
	"testing"

	"vexoj/internal/judge"
)

func TestOutputsMatch(t *testing.T) {
	cases := []struct {
		name     string
		expected string
		actual   string
		want     bool
	}{
		{"identical", "3\n", "3\n", true},
		{"missing trailing newline", "3\n", "3", true},
		{"trailing spaces", "a b\n", "a b  \n", true},
		{"trailing tab", "a\tb\n", "a\tb\t\n", true},
		{"crlf line endings", "1\n2\n", "1\r\n2\r\n", true},
		{"trailing blank lines", "1\n2\n", "1\n2\n\n\n", true},
		{"both empty", "", "", true},
		{"interior difference", "1 2\n", "12\n", false},
		{"leading space differs", " 1\n", "1\n", false},
		{"interior blank line differs", "1\n\n2\n", "1\n2\n", false},
		{"wrong value", "3\n", "4\n", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := judge.OutputsMatch(tc.expected, tc.actual); got != tc.want {
				t.Fatalf("OutputsMatch(%q, %q) = %v, want %v", tc.expected, tc.actual, got, tc.want)
			}
		})
	}
}
