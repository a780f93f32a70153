package segment

import "testing"

func TestMerge(t *testing.T) {
	tests := []struct {
		name  string
		lists [][]Candidate
		want  []Candidate
	}{
		{
			name: "longer text wins",
			lists: [][]Candidate{
				{{Number: 1, Text: "short"}},
				{{Number: 1, Text: "a much longer question text"}},
			},
			want: []Candidate{{Number: 1, Text: "a much longer question text"}},
		},
		{
			name: "ties keep first seen",
			lists: [][]Candidate{
				{{Number: 1, Text: "first"}},
				{{Number: 1, Text: "later"}},
			},
			want: []Candidate{{Number: 1, Text: "first"}},
		},
		{
			name: "sorted ascending by number",
			lists: [][]Candidate{
				{{Number: 3, Text: "question three text"}, {Number: 1, Text: "question one text"}},
				{{Number: 2, Text: "question two text"}},
			},
			want: []Candidate{
				{Number: 1, Text: "question one text"},
				{Number: 2, Text: "question two text"},
				{Number: 3, Text: "question three text"},
			},
		},
		{
			name: "non-positive numbers dropped",
			lists: [][]Candidate{
				{{Number: 0, Text: "zero"}, {Number: -2, Text: "negative"}, {Number: 4, Text: "kept"}},
			},
			want: []Candidate{{Number: 4, Text: "kept"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.lists...)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i].Number != tt.want[i].Number || got[i].Text != tt.want[i].Text {
					t.Errorf("candidate %d = {%d, %q}, want {%d, %q}",
						i, got[i].Number, got[i].Text, tt.want[i].Number, tt.want[i].Text)
				}
			}
		})
	}
}

func TestMergeNumbersUnique(t *testing.T) {
	lists := [][]Candidate{
		{{Number: 1, Text: "a"}, {Number: 2, Text: "b"}, {Number: 1, Text: "aa"}},
		{{Number: 2, Text: "bbb"}, {Number: 3, Text: "c"}},
	}

	got := Merge(lists...)
	seen := make(map[int]bool)
	for _, c := range got {
		if seen[c.Number] {
			t.Errorf("duplicate number %d in merge output", c.Number)
		}
		seen[c.Number] = true
	}
	for i := 1; i < len(got); i++ {
		if got[i].Number <= got[i-1].Number {
			t.Errorf("output not strictly ascending at index %d", i)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 4); got != "abcd" {
		t.Errorf("Truncate = %q, want %q", got, "abcd")
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate should leave short text alone, got %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate with zero max should leave text alone, got %q", got)
	}
}
