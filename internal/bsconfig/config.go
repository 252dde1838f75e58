// Package bsconfig loads the TOML configuration file described in the
// external-interfaces contract: a maintainer keyring path, a default
// component list, and a per-branch component/extra-repository map.
package bsconfig

import (
	"fmt"
	"os"

	"github.com/debstrap/debstrap/internal/bserror"
	"github.com/pelletier/go-toml"
)

// BranchConfig describes the components fetched for one named branch.
type BranchConfig struct {
	BaseComponents []string `toml:"base_components"`
	Extra          []string `toml:"extra"`
}

// Config is the decoded contents of the TOML configuration file.
type Config struct {
	MaintainerKeyring string                  `toml:"maintainer_keyring"`
	Components        []string                `toml:"components"`
	Branches          map[string]BranchConfig `toml:"branches"`
	InstallRecommends bool                    `toml:"install_recommends"`
}

var allowedKeys = map[string]bool{
	"maintainer_keyring": true,
	"components":         true,
	"branches":           true,
	"install_recommends": true,
}

// Load reads and validates the configuration file at path, rejecting
// unknown top-level keys and unknown keys inside a branch table.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, bserror.New(bserror.Config, path, fmt.Errorf("reading config: %w", err))
	}

	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, bserror.New(bserror.Config, path, fmt.Errorf("parsing toml: %w", err))
	}
	for _, k := range tree.Keys() {
		if !allowedKeys[k] {
			return nil, bserror.Wrapf(bserror.Config, path, "unknown config key %q", k)
		}
	}
	if branches, ok := tree.Get("branches").(*toml.Tree); ok {
		for _, name := range branches.Keys() {
			branch, ok := branches.GetPath([]string{name}).(*toml.Tree)
			if !ok {
				continue
			}
			for _, k := range branch.Keys() {
				if k != "base_components" && k != "extra" {
					return nil, bserror.Wrapf(bserror.Config, path, "unknown config key %q in branch %q", k, name)
				}
			}
		}
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, bserror.New(bserror.Config, path, fmt.Errorf("decoding toml: %w", err))
	}
	if cfg.MaintainerKeyring == "" {
		return nil, bserror.Wrapf(bserror.Config, path, "maintainer_keyring is required")
	}
	if len(cfg.Components) == 0 {
		cfg.Components = []string{"main"}
	}
	return &cfg, nil
}

// ComponentsFor returns the component list for a branch: the branch's
// own base_components if set, otherwise the config's default components,
// plus any extra repositories layered on top.
func (c *Config) ComponentsFor(branch string) []string {
	b := c.Branches[branch]
	base := c.Components
	if len(b.BaseComponents) > 0 {
		base = b.BaseComponents
	}
	out := append([]string{}, base...)
	return append(out, b.Extra...)
}
