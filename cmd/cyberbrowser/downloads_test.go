package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cyberbrowser/cyberbrowser/internal/storage"
)

// TestNewDownloadsCmd tests the downloads command creation.
func TestNewDownloadsCmd(t *testing.T) {
	t.Parallel()

	cmd := NewDownloadsCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "downloads" {
			t.Errorf("expected use 'downloads', got %q", cmd.Use)
		}
	})

	t.Run("has limit flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})
}

// TestRunDownloadsCmd tests the downloads command execution.
func TestRunDownloadsCmd(t *testing.T) {
	t.Parallel()

	t.Run("missing ledger prints friendly message", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		cmd := NewDownloadsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--data-dir", t.TempDir()})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "No downloads") {
			t.Errorf("expected empty-ledger message, got %q", out.String())
		}
	})

	t.Run("lists recorded downloads", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		ledger, err := storage.Open(dir, storage.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open ledger: %v", err)
		}
		if _, err := ledger.Record(context.Background(), storage.Download{
			URL:      "https://example.org/report.pdf",
			Filename: "report.pdf",
			Dir:      "/tmp",
		}); err != nil {
			t.Fatalf("failed to record download: %v", err)
		}
		if err := ledger.Close(); err != nil {
			t.Fatalf("failed to close ledger: %v", err)
		}

		var out bytes.Buffer
		cmd := NewDownloadsCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--data-dir", dir})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "report.pdf") {
			t.Errorf("expected download in output, got %q", out.String())
		}
		if !strings.Contains(out.String(), "https://example.org/report.pdf") {
			t.Errorf("expected URL in output, got %q", out.String())
		}
	})
}
