package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWrite_RoundTrip(t *testing.T) {
	want := Default()
	want.RetryAttempts = 2
	want.MaxConnections = 6
	want.CacheTTL = 90 * time.Second
	want.RequestTimeout = 2 * time.Minute
	want.LogLevel = "warn"

	var buf bytes.Buffer
	if err := Write(&buf, want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "cache_ttl: 1m30s") {
		t.Errorf("Write() output = %q, want cache_ttl: 1m30s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "reportops.yml")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Load(LoaderOptions{ConfigFile: path, EnvPrefix: "REPORTOPS_TEST_ROUNDTRIP"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}
