package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostwall.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
concurrency: 20
techniques: [dictionary, reverse, bing-api]
bing_key: abc
fcrdns: true
fcrdns_policy: claimed
server: 9.9.9.9
tls_timeout: 1s
rate_every: 250ms
headers_timeout: 5s
headers_https_port: "8443"
output: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Concurrency != 20 || cfg.BingKey != "abc" || !cfg.FCrDNS || cfg.FCrDNSPolicy != "claimed" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Techniques, []string{"dictionary", "reverse", "bing-api"}) {
		t.Errorf("techniques %v", cfg.Techniques)
	}
	if cfg.TLSTimeout != time.Second || cfg.RateEvery != 250*time.Millisecond {
		t.Errorf("durations %v %v", cfg.TLSTimeout, cfg.RateEvery)
	}
	if cfg.HeadersTimeout != 5*time.Second || cfg.HeadersHTTPPort != "" || cfg.HeadersHTTPSPort != "8443" {
		t.Errorf("headers options %v %q %q", cfg.HeadersTimeout, cfg.HeadersHTTPPort, cfg.HeadersHTTPSPort)
	}
	// defaults survive for keys the file leaves out
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("http timeout %v", cfg.HTTPTimeout)
	}
	if !cfg.Enabled("bing-api") || cfg.Enabled("headers") {
		t.Error("Enabled disagrees with techniques")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "concurency: 5\n")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for a misspelt key")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}

	cfg.Techniques = []string{"reverse", "telepathy"}
	cfg.FCrDNSPolicy = "strict"
	cfg.Output = "xml"
	cfg.Exclude = "("
	cfg.TLSTimeout = -time.Second
	cfg.HeadersTimeout = -time.Second
	cfg.HeadersHTTPPort = "http"
	cfg.HeadersHTTPSPort = "70000"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{
		"telepathy", "strict", "xml", "exclude", "tls_timeout",
		"headers_timeout", "headers_http_port", "headers_https_port",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}
