// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Doc: {
	name:     string & =~"^[a-z]+$"
	enabled?: bool
	items?: [...string]
}
`

type testDoc struct {
	Name    string   `json:"name"`
	Enabled bool     `json:"enabled"`
	Items   []string `json:"items"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	res, err := ParseAndDecode[testDoc]([]byte(testSchema), []byte(`name: "core"
enabled: true`), "#Doc", WithFilename("doc.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecode() error: %v", err)
	}
	if res.Value.Name != "core" || !res.Value.Enabled {
		t.Errorf("ParseAndDecode() = %+v, want name core enabled", *res.Value)
	}
}

func TestParseAndDecodeYAML(t *testing.T) {
	t.Parallel()

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()

		data := []byte("name: core\nitems:\n  - a\n  - b\n")
		res, err := ParseAndDecodeYAML[testDoc]([]byte(testSchema), data, "#Doc", WithFilename("doc.yaml"))
		if err != nil {
			t.Fatalf("ParseAndDecodeYAML() error: %v", err)
		}
		if len(res.Value.Items) != 2 || res.Value.Items[1] != "b" {
			t.Errorf("Items = %v, want [a b]", res.Value.Items)
		}
	})

	t.Run("schema violation names the file", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecodeYAML[testDoc]([]byte(testSchema), []byte("name: Core1\n"), "#Doc", WithFilename("doc.yaml"))
		if err == nil {
			t.Fatal("expected a validation error")
		}
		if !strings.Contains(err.Error(), "doc.yaml") {
			t.Errorf("error should mention the file, got: %v", err)
		}
	})

	t.Run("unparseable yaml", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecodeYAML[testDoc]([]byte(testSchema), []byte("name: [unclosed\n"), "#Doc", WithFilename("doc.yaml"))
		if err == nil {
			t.Fatal("expected a parse error")
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecodeYAML[testDoc]([]byte(testSchema), []byte("name: core\n"), "#Doc", WithMaxFileSize(4))
		if err == nil {
			t.Fatal("expected a size error")
		}
	})
}
