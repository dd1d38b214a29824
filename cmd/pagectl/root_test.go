package main

import (
	"bytes"
	"testing"
)

func TestVersionFlag(t *testing.T) {
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--version"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	assertContains(t, out.String(), []string{"pagectl dev\n", "  commit: none\n", "  built: unknown\n"})
	assertNotContains(t, out.String(), []string{"Usage:"})
}
