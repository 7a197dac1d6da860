package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Registry is one entry of the registries file.
type Registry struct {
	Name        string `toml:"name"`
	Address     string `toml:"address"`
	SubgraphURL string `toml:"subgraph_url"`
}

type registriesFile struct {
	Registry []Registry `toml:"registry"`
}

// LoadRegistries reads a TOML file of [[registry]] blocks:
//
//	[[registry]]
//	name = "Address Tags"
//	address = "0x66260C69d03837016d88c9877e61e08Ef74C59F2"
func LoadRegistries(path string) ([]Registry, error) {
	var f registriesFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	for i, r := range f.Registry {
		if !common.IsHexAddress(r.Address) {
			return nil, fmt.Errorf("registry %d (%q): invalid address %q", i, r.Name, r.Address)
		}
		if r.Name == "" {
			f.Registry[i].Name = r.Address
		}
	}
	return f.Registry, nil
}

// FindRegistry returns the entry for address, if the file lists it.
func FindRegistry(registries []Registry, address string) (Registry, bool) {
	want := common.HexToAddress(address)
	for _, r := range registries {
		if common.HexToAddress(r.Address) == want {
			return r, true
		}
	}
	return Registry{}, false
}

// ActiveRegistry returns the registry being watched. When a registries file
// lists the configured address its name and subgraph override the defaults.
func (c *Config) ActiveRegistry() (Registry, error) {
	active := Registry{
		Name:        c.Registry().Hex(),
		Address:     c.Registry().Hex(),
		SubgraphURL: c.SubgraphURL,
	}
	if c.RegistriesFile == "" {
		return active, nil
	}

	registries, err := LoadRegistries(c.RegistriesFile)
	if err != nil {
		return Registry{}, err
	}
	if r, ok := FindRegistry(registries, c.RegistryAddress); ok {
		active.Name = r.Name
		if r.SubgraphURL != "" {
			active.SubgraphURL = r.SubgraphURL
		}
	}
	return active, nil
}
