// ABOUTME: Tests for the .env loader: parsing, quoting, and no-clobber behavior.
package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDotEnvParsesFormats(t *testing.T) {
	path := writeEnvFile(t, `
# comment
PLAIN=one
QUOTED="two words"
SINGLE='three'
export EXPORTED=four
WITH_EQUALS=a=b
`)
	for _, key := range []string{"PLAIN", "QUOTED", "SINGLE", "EXPORTED", "WITH_EQUALS"} {
		os.Unsetenv(key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	loadDotEnv(path)

	cases := map[string]string{
		"PLAIN":       "one",
		"QUOTED":      "two words",
		"SINGLE":      "three",
		"EXPORTED":    "four",
		"WITH_EQUALS": "a=b",
	}
	for key, want := range cases {
		if got := os.Getenv(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}

func TestLoadDotEnvDoesNotClobber(t *testing.T) {
	path := writeEnvFile(t, "CLOBBER_TEST=file\n")
	t.Setenv("CLOBBER_TEST", "env")

	loadDotEnv(path)
	if got := os.Getenv("CLOBBER_TEST"); got != "env" {
		t.Errorf("existing value clobbered: %q", got)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "absent.env"))
}
