package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ServerConfig server configuration
type ServerConfig struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Config CLI configuration
type Config struct {
	DefaultServer string                  `yaml:"default_server"`
	DefaultMode   string                  `yaml:"default_mode,omitempty"`
	Servers       map[string]ServerConfig `yaml:"servers"`
	configPath    string
}

// DefaultConfigPath returns ~/.error-logger/config.yaml
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".error-logger", "config.yaml"), nil
}

// LoadConfig loads the configuration from the default path
func LoadConfig(fallbackURL string) (*Config, error) {
	configPath, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(configPath, fallbackURL)
}

// LoadConfigFrom loads the configuration at configPath. A missing file is
// created with a single "local" server pointing at fallbackURL.
func LoadConfigFrom(configPath, fallbackURL string) (*Config, error) {
	config := &Config{
		configPath: configPath,
		Servers:    make(map[string]ServerConfig),
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		config.DefaultServer = "local"
		config.Servers["local"] = ServerConfig{
			URL:         fallbackURL,
			Description: "Local error logger service",
		}
		if err := config.Save(); err != nil {
			return nil, err
		}
		return config, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}
	if config.Servers == nil {
		config.Servers = make(map[string]ServerConfig)
	}

	config.configPath = configPath
	return config, nil
}

// Path is where the configuration is saved
func (c *Config) Path() string {
	return c.configPath
}

// Save saves the configuration
func (c *Config) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0600)
}

// AddServer adds a server
func (c *Config) AddServer(name, url, description string) error {
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}
	if url == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	c.Servers[name] = ServerConfig{
		URL:         url,
		Description: description,
	}

	// If this is the first server, set it as default
	if c.DefaultServer == "" {
		c.DefaultServer = name
	}

	return c.Save()
}

// RemoveServer removes a server
func (c *Config) RemoveServer(name string) error {
	if _, exists := c.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	delete(c.Servers, name)

	if c.DefaultServer == name {
		c.DefaultServer = ""
		if names := c.ServerNames(); len(names) > 0 {
			c.DefaultServer = names[0]
		}
	}

	return c.Save()
}

// SetDefault sets the default server
func (c *Config) SetDefault(name string) error {
	if _, exists := c.Servers[name]; !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	c.DefaultServer = name
	return c.Save()
}

// GetServer gets server configuration
func (c *Config) GetServer(name string) (*ServerConfig, error) {
	if name == "" {
		name = c.DefaultServer
	}

	server, exists := c.Servers[name]
	if !exists {
		return nil, fmt.Errorf("server '%s' not found", name)
	}

	return &server, nil
}

// ServerNames lists server names in sorted order
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveURL picks the server URL: a configured server name, a literal URL,
// or the default server when target is empty.
func (c *Config) ResolveURL(target string) (string, error) {
	if server, exists := c.Servers[target]; exists {
		return server.URL, nil
	}
	if target != "" {
		return target, nil
	}
	server, err := c.GetServer("")
	if err != nil {
		return "", err
	}
	return server.URL, nil
}
