package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	err := Output(map[string]string{"name": "Ada"}, OutputOptions{Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), `"name": "Ada"`) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestOutputYAMLDefault(t *testing.T) {
	var buf bytes.Buffer
	err := Output(map[string]string{"name": "Ada"}, OutputOptions{Writer: &buf})
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if !strings.Contains(buf.String(), "name: Ada") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestOutputUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Output("x", OutputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
