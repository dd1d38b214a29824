package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/joshuapare/pagekit/pkg/pagealloc"
)

func newScriptContext(t *testing.T) *pagealloc.Context {
	t.Helper()
	ctx, err := pagealloc.New(pagealloc.Config{Pages: 64, LastOrder: 5})
	if err != nil {
		t.Fatalf("pagealloc.New() error = %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestRunScript(t *testing.T) {
	tests := []struct {
		name        string
		script      string
		wantErr     string
		wantContain []string
	}{
		{
			name:   "allocate and free",
			script: "insert 0 16\nalloc 2\nalloc 0 zero\nfree last\nfree 0x0 2\nverify\ndump\n",
			wantContain: []string{
				"alloc order 2: pfn=0 base=0\n",
				"alloc order 0: pfn=4 base=4000\n",
				"verify: ok\n",
				"[04] 0--ffff \n",
				"0 outstanding allocations, 16 free pages\n",
			},
		},
		{
			name:        "comments and blank lines",
			script:      "# setup\n\ninsert 0 8 # eight pages\nalloc 3\n",
			wantContain: []string{"1 outstanding allocations, 0 free pages\n"},
		},
		{
			name:        "out of memory is reported",
			script:      "insert 0 4\nalloc 3\n",
			wantContain: []string{"alloc order 3: out of memory\n", "4 free pages"},
		},
		{
			name:    "double free faults",
			script:  "insert 0 8\nfree 0 0\n",
			wantErr: "line 2: buddy: free_pages",
		},
		{
			name:    "unknown operation",
			script:  "insert 0 8\nshrink 4\n",
			wantErr: `line 2: unknown operation "shrink"`,
		},
		{
			name:    "bad number",
			script:  "insert zero 8\n",
			wantErr: `line 1: bad number "zero"`,
		},
		{
			name:    "free last without allocation",
			script:  "free last\n",
			wantErr: "no outstanding allocation",
		},
		{
			name:    "order beyond last order",
			script:  "insert 0 64\nalloc 6\n",
			wantErr: "line 2: pagealloc: allocate order 6",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			ctx := newScriptContext(t)

			var out bytes.Buffer
			err := runScript(ctx, strings.NewReader(tt.script), &out, true)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runScript() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runScript() error = %v", err)
			}
			assertContains(t, out.String(), tt.wantContain)
		})
	}
}

func TestRunScriptFile(t *testing.T) {
	resetFlags()
	runVerify = true
	args := []string{testDataPath(t, "workload.txt")}

	output, err := captureOutput(t, func() error {
		return runScriptFile(args)
	})
	if err != nil {
		t.Fatalf("runScriptFile() error = %v", err)
	}
	assertContains(t, output, []string{"verify: ok", "16 free pages"})
}

func TestRunScriptWithMap(t *testing.T) {
	resetFlags()
	mapPath = testDataPath(t, "small.e820")
	ctx, err := newContext(false)
	if err != nil {
		t.Fatalf("newContext() error = %v", err)
	}
	defer ctx.Close()

	var out bytes.Buffer
	err = runScript(ctx, strings.NewReader("alloc 0\nalloc 0\n"), &out, true)
	if err != nil {
		t.Fatalf("runScript() error = %v", err)
	}
	assertContains(t, out.String(), []string{
		"alloc order 0: pfn=11 base=11000\n",
		"alloc order 0: pfn=12 base=12000\n",
		"61 free pages",
	})
}
