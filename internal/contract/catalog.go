// Package contract owns the template catalogue and the deployment and
// invocation engine over EVM networks.
package contract

import (
	"github.com/cubecore/chainops/internal/domain/errs"
	"github.com/cubecore/chainops/internal/domain/model"
)

// Template ids. The catalogue is read-only; templates are compiled
// artifacts baked into the binary.
const (
	TemplateFungible   = "erc20-fungible"
	TemplateCollection = "erc721-collection"
	TemplateStaking    = "staking-rewards"
)

const erc20TemplateABI = `[
	{"inputs":[{"name":"name_","type":"string"},{"name":"symbol_","type":"string"},{"name":"initialSupply","type":"uint256"},{"name":"decimals_","type":"uint8"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amount","type":"uint256"}],"name":"burn","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"pause","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"unpause","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const erc721TemplateABI = `[
	{"inputs":[{"name":"name_","type":"string"},{"name":"symbol_","type":"string"},{"name":"baseURI_","type":"string"},{"name":"royaltyRecipient","type":"address"},{"name":"royaltyBps","type":"uint96"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"name":"safeMint","outputs":[{"name":"","type":"uint256"}],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"transferFrom","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":true,"name":"tokenId","type":"uint256"}],"name":"Transfer","type":"event"}
]`

const stakingTemplateABI = `[
	{"inputs":[{"name":"stakingToken","type":"address"},{"name":"rewardToken","type":"address"},{"name":"rewardRateBps","type":"uint256"}],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[{"name":"amount","type":"uint256"}],"name":"stake","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"amount","type":"uint256"}],"name":"withdraw","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[],"name":"claimReward","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"earned","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"account","type":"address"}],"name":"stakedBalance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Staked","type":"event"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"account","type":"address"},{"indexed":false,"name":"amount","type":"uint256"}],"name":"Withdrawn","type":"event"}
]`

var templates = []model.ContractTemplate{
	{
		ID:       TemplateFungible,
		Name:     "Fungible Token",
		Kind:     model.AssetKindFungible,
		Bytecode: fungibleBytecode,
		ABI:      erc20TemplateABI,
		Params: []model.TemplateParam{
			{Name: "name_", Type: "string"},
			{Name: "symbol_", Type: "string"},
			{Name: "initialSupply", Type: "uint256"},
			{Name: "decimals_", Type: "uint8"},
		},
		GasEstimate:  1_450_000,
		SecurityTier: model.SecurityTierAudited,
	},
	{
		ID:       TemplateCollection,
		Name:     "NFT Collection",
		Kind:     model.AssetKindNonFungible,
		Bytecode: collectionBytecode,
		ABI:      erc721TemplateABI,
		Params: []model.TemplateParam{
			{Name: "name_", Type: "string"},
			{Name: "symbol_", Type: "string"},
			{Name: "baseURI_", Type: "string"},
			{Name: "royaltyRecipient", Type: "address"},
			{Name: "royaltyBps", Type: "uint96"},
		},
		GasEstimate:  2_300_000,
		SecurityTier: model.SecurityTierAudited,
	},
	{
		ID:       TemplateStaking,
		Name:     "Staking with Rewards",
		Kind:     model.AssetKindStaking,
		Bytecode: stakingBytecode,
		ABI:      stakingTemplateABI,
		Params: []model.TemplateParam{
			{Name: "stakingToken", Type: "address"},
			{Name: "rewardToken", Type: "address"},
			{Name: "rewardRateBps", Type: "uint256"},
		},
		GasEstimate:  1_900_000,
		SecurityTier: model.SecurityTierStandard,
	},
}

// Catalog is the read-only template catalogue.
type Catalog struct {
	byID  map[string]model.ContractTemplate
	order []string
}

func NewCatalog() *Catalog {
	c := &Catalog{byID: make(map[string]model.ContractTemplate, len(templates))}
	for _, t := range templates {
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c
}

// List returns templates in catalogue order.
func (c *Catalog) List() []model.ContractTemplate {
	out := make([]model.ContractTemplate, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Get returns the template with id.
func (c *Catalog) Get(id string) (model.ContractTemplate, error) {
	t, ok := c.byID[id]
	if !ok {
		return model.ContractTemplate{}, errs.Newf(errs.KindTemplateNotFound, "contract template %q not found", id)
	}
	return t, nil
}
