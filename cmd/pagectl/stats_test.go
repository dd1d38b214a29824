package main

import (
	"testing"
)

func TestStatsCommand(t *testing.T) {
	tests := []struct {
		name        string
		mapFile     string
		pages       uint64
		wantJSON    bool
		wantContain []string
	}{
		{
			name:    "memory map",
			mapFile: "small.e820",
			pages:   64,
			wantContain: []string{
				"Page frames: 64",
				"Free pages: 63 (252.0 KB)",
				"Largest free block: order 5 (128.0 KB)",
				"Pages removed: 1",
			},
		},
		{
			name:  "grouped thousands",
			pages: 65536,
			wantContain: []string{
				"Page frames: 65,536",
				"[05] 2,048 blocks x 128.0 KB",
				"Pages inserted: 65,536",
			},
		},
		{
			name:        "json",
			mapFile:     "small.e820",
			pages:       64,
			wantJSON:    true,
			wantContain: []string{`"free_pages": 63`, `"largest_free_order": 5`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			numPages = tt.pages
			jsonOut = tt.wantJSON
			if tt.mapFile != "" {
				mapPath = testDataPath(t, tt.mapFile)
			}

			output, err := captureOutput(t, func() error {
				return runStats(nil)
			})
			if err != nil {
				t.Fatalf("runStats() error = %v", err)
			}

			if tt.wantJSON {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{4096, "4.0 KB"},
		{3 << 20, "3.0 MB"},
		{1 << 30, "1.0 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
