package pdfdoc

import "testing"

func TestFullText(t *testing.T) {
	doc := &Document{Pages: []Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "second page"},
		{Number: 3, Text: ""},
	}}

	want := "first page\n\nsecond page\n\n"
	if got := doc.FullText(); got != want {
		t.Errorf("FullText() = %q, want %q", got, want)
	}
}

func TestGlobalOffset(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "abcde"}, // len 5
		{Number: 2, Text: "xy"},    // len 2
		{Number: 3, Text: "final"},
	}

	tests := []struct {
		name    string
		pageIdx int
		want    int
	}{
		{"first page", 0, 0},
		{"second page", 1, 7},  // 5 + 2 separator
		{"third page", 2, 11},  // 7 + 2 + 2
		{"past the end", 5, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GlobalOffset(pages, tt.pageIdx); got != tt.want {
				t.Errorf("GlobalOffset(%d) = %d, want %d", tt.pageIdx, got, tt.want)
			}
		})
	}
}

func TestPageForOffset(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "abcde"},
		{Number: 2, Text: "xy"},
		{Number: 3, Text: "final"},
	}

	tests := []struct {
		name string
		off  int
		want int
	}{
		{"start of document", 0, 1},
		{"inside first page", 4, 1},
		{"inside first separator", 5, 1},
		{"start of second page", 7, 2},
		{"inside third page", 12, 3},
		{"past the end", 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PageForOffset(pages, tt.off); got != tt.want {
				t.Errorf("PageForOffset(%d) = %d, want %d", tt.off, got, tt.want)
			}
		})
	}
}

func TestPageForOffsetEmpty(t *testing.T) {
	if got := PageForOffset(nil, 10); got != 0 {
		t.Errorf("PageForOffset(nil, 10) = %d, want 0", got)
	}
}

// Offsets computed by GlobalOffset must land on the right page when
// mapped back through PageForOffset.
func TestOffsetRoundTrip(t *testing.T) {
	pages := []Page{
		{Number: 1, Text: "Questão 1 enunciado"},
		{Number: 2, Text: "Questão 2 enunciado"},
		{Number: 3, Text: "Questão 3 enunciado"},
	}

	for i := range pages {
		off := GlobalOffset(pages, i)
		if got := PageForOffset(pages, off); got != i+1 {
			t.Errorf("page %d: PageForOffset(GlobalOffset()) = %d", i+1, got)
		}
	}
}
