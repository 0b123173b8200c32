// Package config holds the options of a hostwall run and loads them from a
// YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/mysteriumnetwork/hostwall/reporter"
	"github.com/mysteriumnetwork/hostwall/validator"
)

// Techniques lists every technique tag in the order they are reported.
var Techniques = []string{
	"dictionary",
	"reverse",
	"certificate",
	"crtsh",
	"bing-api",
	"bing-web",
	"passive-dns",
	"viewdns",
	"headers",
	"srv",
	"ns",
	"mx",
	"axfr",
	"cloudflare",
}

type Config struct {
	Concurrency int      `yaml:"concurrency"`
	Techniques  []string `yaml:"techniques"`

	BingKey    string `yaml:"bing_key"`
	CFAPIToken string `yaml:"cf_api_token"`

	FCrDNS       bool   `yaml:"fcrdns"`
	FCrDNSPolicy string `yaml:"fcrdns_policy"`

	Server      string        `yaml:"server"`
	TLSTimeout  time.Duration `yaml:"tls_timeout"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	RateEvery   time.Duration `yaml:"rate_every"`

	// The headers technique answers on the standard ports unless told
	// otherwise.
	HeadersTimeout   time.Duration `yaml:"headers_timeout"`
	HeadersHTTPPort  string        `yaml:"headers_http_port"`
	HeadersHTTPSPort string        `yaml:"headers_https_port"`

	// Exclude drops records whose name matches the expression.
	Exclude string `yaml:"exclude"`

	Output              string `yaml:"output"`
	PagerDutyRoutingKey string `yaml:"pagerduty_routing_key"`
	HeartbeatURL        string `yaml:"heartbeat_url"`
	Database            string `yaml:"database"`

	Debug bool `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Concurrency:    100,
		Techniques:     []string{"reverse", "certificate", "headers"},
		FCrDNSPolicy:   "scoped",
		TLSTimeout:     600 * time.Millisecond,
		HTTPTimeout:    10 * time.Second,
		HeadersTimeout: 2 * time.Second,
		Output:         "plain",
	}
}

// Load reads path on top of the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Enabled(tag string) bool {
	for _, t := range c.Techniques {
		if t == tag {
			return true
		}
	}
	return false
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var result error

	known := make(map[string]bool, len(Techniques))
	for _, t := range Techniques {
		known[t] = true
	}
	if len(c.Techniques) == 0 {
		result = multierror.Append(result, errors.New("no techniques enabled"))
	}
	for _, t := range c.Techniques {
		if !known[t] {
			result = multierror.Append(result, fmt.Errorf("unknown technique %q", t))
		}
	}

	if _, err := validator.ParsePolicy(c.FCrDNSPolicy); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := reporter.ParseFormat(c.Output); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Exclude != "" {
		if _, err := regexp.Compile(c.Exclude); err != nil {
			result = multierror.Append(result, fmt.Errorf("bad exclude expression: %w", err))
		}
	}

	for name, d := range map[string]time.Duration{
		"tls_timeout":     c.TLSTimeout,
		"http_timeout":    c.HTTPTimeout,
		"rate_every":      c.RateEvery,
		"headers_timeout": c.HeadersTimeout,
	} {
		if d < 0 {
			result = multierror.Append(result, fmt.Errorf("%s must not be negative", name))
		}
	}

	for name, port := range map[string]string{
		"headers_http_port":  c.HeadersHTTPPort,
		"headers_https_port": c.HeadersHTTPSPort,
	} {
		if port == "" {
			continue
		}
		if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
			result = multierror.Append(result, fmt.Errorf("%s %q is not a port number", name, port))
		}
	}

	return result
}
