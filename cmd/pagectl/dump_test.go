package main

import (
	"testing"
)

func TestDumpCommand(t *testing.T) {
	tests := []struct {
		name           string
		mapFile        string
		pages          uint64
		order          int
		wantJSON       bool
		wantErr        bool
		wantContain    []string
		wantNotContain []string
	}{
		{
			name:    "memory map",
			mapFile: "small.e820",
			pages:   64,
			order:   -1,
			wantContain: []string{
				"*** buddy page allocator - free list ***",
				"[00] 11000--11fff \n",
				"[01] 12000--13fff \n",
				"[02] 14000--17fff \n",
				"[03] 18000--1ffff \n",
				"[04] 0--ffff \n",
				"[05] 20000--3ffff \n",
			},
		},
		{
			name:           "single order",
			mapFile:        "small.e820",
			pages:          64,
			order:          3,
			wantContain:    []string{"[03] 18000--1ffff \n"},
			wantNotContain: []string{"free list", "[04]"},
		},
		{
			name:        "whole store without map",
			pages:       64,
			order:       -1,
			wantContain: []string{"[05] 0--1ffff 20000--3ffff \n"},
		},
		{
			name:        "json",
			mapFile:     "small.e820",
			pages:       64,
			order:       -1,
			wantJSON:    true,
			wantContain: []string{`"first_pfn": 17`, `"last_pfn": 17`, `"order": 5`},
		},
		{
			name:    "order above last order",
			pages:   64,
			order:   6,
			wantErr: true,
		},
		{
			name:     "negative order in json",
			pages:    64,
			order:    -2,
			wantJSON: true,
			wantErr:  true,
		},
		{
			name:    "missing map",
			mapFile: "missing.e820",
			pages:   64,
			order:   -1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			numPages = tt.pages
			dumpOrder = tt.order
			jsonOut = tt.wantJSON
			if tt.mapFile == "missing.e820" {
				mapPath = "testdata/missing.e820"
			} else if tt.mapFile != "" {
				mapPath = testDataPath(t, tt.mapFile)
			}

			output, err := captureOutput(t, func() error {
				return runDump(nil)
			})

			if (err != nil) != tt.wantErr {
				t.Errorf("runDump() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				if output != "" {
					t.Errorf("runDump() wrote output on error: %q", output)
				}
				return
			}

			if tt.wantJSON {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
			assertNotContains(t, output, tt.wantNotContain)
		})
	}
}
