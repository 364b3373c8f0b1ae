package app

import (
	"reflect"
	"testing"
)

func TestSplitGlobalFlagsDataDir(t *testing.T) {
	args, globals, err := splitGlobalFlags([]string{"--data-dir", "/tmp/x", "optimize", "--graph", "g.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if globals.DataDir != "/tmp/x" {
		t.Fatalf("expected data dir /tmp/x, got %q", globals.DataDir)
	}
	want := []string{"optimize", "--graph", "g.json"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("expected %v, got %v", want, args)
	}
}

func TestSplitGlobalFlagsDataDirEquals(t *testing.T) {
	args, globals, err := splitGlobalFlags([]string{"runs", "--data-dir=/tmp/y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if globals.DataDir != "/tmp/y" {
		t.Fatalf("expected data dir /tmp/y, got %q", globals.DataDir)
	}
	if !reflect.DeepEqual(args, []string{"runs"}) {
		t.Fatalf("expected [runs], got %v", args)
	}
}

func TestSplitGlobalFlagsMissingValue(t *testing.T) {
	if _, _, err := splitGlobalFlags([]string{"--data-dir"}); err == nil {
		t.Fatalf("expected error for missing value")
	}
}

func TestSplitFlagArgsSeparatesPositionals(t *testing.T) {
	positional, flagArgs, err := splitFlagArgs(
		[]string{"run-abc", "--format", "json"},
		map[string]flagSpec{"format": {RequiresValue: true}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(positional, []string{"run-abc"}) {
		t.Fatalf("expected positional [run-abc], got %v", positional)
	}
	if !reflect.DeepEqual(flagArgs, []string{"--format", "json"}) {
		t.Fatalf("expected flags [--format json], got %v", flagArgs)
	}
}

func TestSplitPatterns(t *testing.T) {
	got := splitPatterns("legacy/, *.map ,,")
	want := []string{"legacy/", "*.map"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
