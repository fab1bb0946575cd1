package site

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const defaultLinkSelector = "a[href]"

type ConfigCache struct {
	sitesDir string
	cache    map[string]*Config
	mu       sync.RWMutex
}

func NewConfigCache(sitesDir string) *ConfigCache {
	return &ConfigCache{
		sitesDir: sitesDir,
		cache:    make(map[string]*Config),
	}
}

func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sitesDir); os.IsNotExist(err) {
		return nil
	}

	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(cc.sitesDir, pattern))
		if err != nil {
			return fmt.Errorf("failed to find YAML files: %w", err)
		}
		files = append(files, matches...)
	}

	for _, file := range files {
		siteName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		config, err := cc.LoadConfig(siteName, file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Site configuration loaded", "site", siteName, "enabled", config.IsEnabled(), "listing_paths", len(config.ListingPaths), "feed_paths", len(config.FeedPaths))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(siteName, configFile string) (*Config, error) {
	siteConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	siteConfig.Name = siteName

	if err := cc.validateConfig(siteConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[siteConfig.Name] = siteConfig

	return siteConfig, nil
}

// Add validates and registers a configuration built in code.
func (cc *ConfigCache) Add(siteConfig *Config) error {
	applyDefaults(siteConfig)
	if err := cc.validateConfig(siteConfig); err != nil {
		return fmt.Errorf("invalid config %s: %w", siteConfig.Name, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[siteConfig.Name] = siteConfig
	return nil
}

func (cc *ConfigCache) GetConfig(siteName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	siteConfig, ok := cc.cache[siteName]
	if !ok {
		return nil, fmt.Errorf("site config with name '%s' not found", siteName)
	}
	return siteConfig, nil
}

// GetConfigs returns all configurations sorted by name.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		configs = append(configs, v)
	}
	sortByName(configs)
	return configs
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabledConfigs := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.IsEnabled() {
			enabledConfigs = append(enabledConfigs, v)
		}
	}
	sortByName(enabledConfigs)
	return enabledConfigs
}

// Select returns the configurations for names in the given order, plus the
// names that are not configured.
func (cc *ConfigCache) Select(names []string) ([]*Config, []string) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	var found []*Config
	var unknown []string
	for _, name := range names {
		if v, ok := cc.cache[name]; ok {
			found = append(found, v)
		} else {
			unknown = append(unknown, name)
		}
	}
	return found, unknown
}

// ForURL finds the configuration whose hostname matches the URL's.
func (cc *ConfigCache) ForURL(rawURL string) *Config {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := StripWWW(u.Hostname())

	cc.mu.RLock()
	defer cc.mu.RUnlock()

	for _, v := range cc.cache {
		if v.Host() == host {
			return v
		}
	}
	return nil
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var siteConfig Config
	if err := yaml.Unmarshal(data, &siteConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	applyDefaults(&siteConfig)

	return &siteConfig, nil
}

func applyDefaults(siteConfig *Config) {
	if siteConfig.Selectors.Link == "" {
		siteConfig.Selectors.Link = defaultLinkSelector
	}
}

func (cc *ConfigCache) validateConfig(siteConfig *Config) error {
	if siteConfig == nil {
		return fmt.Errorf("siteConfig is nil")
	}

	requiredFields := map[string]string{
		"site name": siteConfig.Name,
		"base URL":  siteConfig.BaseURL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	u, err := url.Parse(siteConfig.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("base URL must be an absolute http(s) URL: %s", siteConfig.BaseURL)
	}

	if len(siteConfig.ListingPaths) == 0 && len(siteConfig.FeedPaths) == 0 {
		return fmt.Errorf("at least one listing path or feed path is required")
	}

	siteConfig.includeRe, err = compileAll(siteConfig.Include)
	if err != nil {
		return fmt.Errorf("invalid include pattern: %w", err)
	}
	siteConfig.excludeRe, err = compileAll(siteConfig.Exclude)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern: %w", err)
	}

	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func sortByName(configs []*Config) {
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
}
