package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cubecore/chainops/internal/domain/model"
)

// RegistryFile is the parsed networks.yaml: the supported networks and
// the bridge routes that connect them.
type RegistryFile struct {
	Networks []model.NetworkDescriptor `yaml:"networks"`
	Bridges  []bridgeRouteYAML         `yaml:"bridges"`
}

type bridgeRouteYAML struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Chains          []string `yaml:"chains"`
	FeeBasisPoints  int64    `yaml:"fee_basis_points"`
	MinAmount       string   `yaml:"min_amount"`
	MaxAmount       string   `yaml:"max_amount"`
	SettlingMinutes int      `yaml:"settling_minutes"`
}

// LoadRegistry reads and validates the network registry file.
func LoadRegistry(path string) (*RegistryFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var reg RegistryFile
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	if len(reg.Networks) == 0 {
		return nil, fmt.Errorf("registry file %s declares no networks", path)
	}
	seen := make(map[model.NetworkID]bool, len(reg.Networks))
	for _, n := range reg.Networks {
		if n.ID == "" {
			return nil, fmt.Errorf("network with empty id in %s", path)
		}
		if n.VM != model.VMEVM && n.VM != model.VMSolana {
			return nil, fmt.Errorf("network %s: unknown vm %q", n.ID, n.VM)
		}
		if n.RPCURL == "" {
			return nil, fmt.Errorf("network %s: rpc_url is required", n.ID)
		}
		if seen[n.ID] {
			return nil, fmt.Errorf("duplicate network %s", n.ID)
		}
		seen[n.ID] = true
	}

	for _, b := range reg.Bridges {
		if b.ID == "" || len(b.Chains) < 2 {
			return nil, fmt.Errorf("bridge %q must name at least two chains", b.ID)
		}
		for _, c := range b.Chains {
			if !seen[model.NetworkID(c)] {
				return nil, fmt.Errorf("bridge %s references unknown network %q", b.ID, c)
			}
		}
	}
	return &reg, nil
}

// BridgeRoutes converts the YAML routes into domain routes.
func (r *RegistryFile) BridgeRoutes() []model.BridgeRoute {
	out := make([]model.BridgeRoute, 0, len(r.Bridges))
	for _, b := range r.Bridges {
		chains := make([]model.NetworkID, 0, len(b.Chains))
		for _, c := range b.Chains {
			chains = append(chains, model.NetworkID(c))
		}
		out = append(out, model.BridgeRoute{
			ID:                b.ID,
			Name:              b.Name,
			Chains:            chains,
			FeeBasisPoints:    b.FeeBasisPoints,
			MinAmount:         b.MinAmount,
			MaxAmount:         b.MaxAmount,
			EstimatedSettling: time.Duration(b.SettlingMinutes) * time.Minute,
		})
	}
	return out
}
