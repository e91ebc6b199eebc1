package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".clickgrab.yaml"

// HostConfig customizes requests to one host. Lure kits often serve their
// payload page only to visitors that arrive with the expected referrer or
// cookie.
type HostConfig struct {
	// Cookie is an HTTP cookie, "name=value" or "n1=v1; n2=v2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File is the structure of .clickgrab.yaml. Zero values leave the
// corresponding Config field untouched.
type File struct {
	Tags            []string `yaml:"tags,omitempty"`
	URLSuffixes     []string `yaml:"url_suffixes,omitempty"`
	Limit           int      `yaml:"limit,omitempty"`
	Concurrency     int      `yaml:"concurrency,omitempty"`
	RateLimit       int      `yaml:"rate_limit,omitempty"`
	UserAgent       string   `yaml:"user_agent,omitempty"`
	Proxy           string   `yaml:"proxy,omitempty"`
	CommandVariable string   `yaml:"command_variable,omitempty"`
	PathVariable    string   `yaml:"path_variable,omitempty"`
	ExampleLimit    int      `yaml:"example_limit,omitempty"`
	ExtraCDNHosts   []string `yaml:"extra_cdn_hosts,omitempty"`

	// Hosts maps a host name to its request customization.
	Hosts map[string]HostConfig `yaml:"hosts,omitempty"`

	// Defaults applies to every host unless overridden in Hosts.
	Defaults HostConfig `yaml:"defaults,omitempty"`
}

// LoadConfigFile loads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Hosts == nil {
		cf.Hosts = make(map[string]HostConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .clickgrab.yaml in the current directory
// 3. Look for .clickgrab.yaml in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ApplyFile copies the set values of f into c. explicit reports whether the
// option with the given YAML key was set on the command line; such options
// keep their command-line value. A nil explicit treats nothing as explicit.
func (c *Config) ApplyFile(f *File, explicit func(key string) bool) {
	if f == nil {
		return
	}
	c.FileConfig = f
	if explicit == nil {
		explicit = func(string) bool { return false }
	}
	use := func(key string, set bool) bool {
		return set && !explicit(key)
	}

	if use("tags", len(f.Tags) > 0) {
		c.Tags = append([]string{}, f.Tags...)
	}
	if use("url_suffixes", len(f.URLSuffixes) > 0) {
		c.URLSuffixes = append([]string{}, f.URLSuffixes...)
	}
	if use("limit", f.Limit != 0) {
		c.Limit = f.Limit
	}
	if use("concurrency", f.Concurrency != 0) {
		c.Concurrency = f.Concurrency
	}
	if use("rate_limit", f.RateLimit != 0) {
		c.RateLimit = f.RateLimit
	}
	if use("user_agent", f.UserAgent != "") {
		c.UserAgent = f.UserAgent
	}
	if use("proxy", f.Proxy != "") {
		c.ProxyAddress = f.Proxy
	}
	if use("command_variable", f.CommandVariable != "") {
		c.CommandVariable = f.CommandVariable
	}
	if use("path_variable", f.PathVariable != "") {
		c.PathVariable = f.PathVariable
	}
	if use("example_limit", f.ExampleLimit != 0) {
		c.ExampleLimit = f.ExampleLimit
	}
	if use("extra_cdn_hosts", len(f.ExtraCDNHosts) > 0) {
		c.ExtraCDNHosts = append([]string{}, f.ExtraCDNHosts...)
	}
}

// HostConfig returns the request customization for host, merging the
// host-specific entry over the defaults. Host matching ignores case.
func (f *File) HostConfig(host string) HostConfig {
	if f == nil {
		return HostConfig{}
	}
	result := HostConfig{Cookie: f.Defaults.Cookie}
	if len(f.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(f.Defaults.Headers))
		for k, v := range f.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	for name, hc := range f.Hosts {
		if !strings.EqualFold(name, host) {
			continue
		}
		if hc.Cookie != "" {
			result.Cookie = hc.Cookie
		}
		if len(hc.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range hc.Headers {
				result.Headers[k] = v
			}
		}
	}
	return result
}
