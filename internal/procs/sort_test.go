package procs

import "testing"

func TestParseSortMode(t *testing.T) {
	if _, err := ParseSortMode("bogus"); err == nil {
		t.Fatalf("expected error for unknown sort mode")
	}
	mode, err := ParseSortMode(" CPU ")
	if err != nil {
		t.Fatalf("ParseSortMode: %v", err)
	}
	if mode != SortCPU {
		t.Fatalf("got %q, want %q", mode, SortCPU)
	}
}

func TestSortModeCycle(t *testing.T) {
	mode := SortRSS
	seen := map[SortMode]bool{}
	for i := 0; i < len(SortModes); i++ {
		seen[mode] = true
		mode = mode.Next()
	}
	if mode != SortRSS {
		t.Fatalf("cycle should return to rss, got %q", mode)
	}
	if len(seen) != len(SortModes) {
		t.Fatalf("cycle visited %d modes, want %d", len(seen), len(SortModes))
	}
}

func TestSort(t *testing.T) {
	base := []Record{
		{PID: 3, Name: "Alpha", RSS: 100, CPUPercent: 5},
		{PID: 1, Name: "beta", RSS: 300, CPUPercent: 1},
		{PID: 2, Name: "alpha", RSS: 200, CPUPercent: 9},
	}

	cases := []struct {
		mode SortMode
		want []int32
	}{
		{SortRSS, []int32{1, 2, 3}},
		{SortCPU, []int32{2, 3, 1}},
		{SortName, []int32{2, 3, 1}}, // case-insensitive, PID breaks the tie
		{SortPID, []int32{1, 2, 3}},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			records := append([]Record(nil), base...)
			Sort(records, tc.mode)
			for i, want := range tc.want {
				if records[i].PID != want {
					t.Fatalf("mode %s: position %d = pid %d, want %d", tc.mode, i, records[i].PID, want)
				}
			}
		})
	}
}
