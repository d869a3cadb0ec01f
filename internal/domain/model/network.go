package model

// NetworkID identifies a registered ledger network (e.g. "ethereum", "solana").
type NetworkID string

func (n NetworkID) String() string {
	return string(n)
}

// VMKind distinguishes the client implementation a network requires.
type VMKind string

const (
	VMEVM    VMKind = "evm"
	VMSolana VMKind = "solana"
)

// NetworkDescriptor describes one supported network. Descriptors are
// immutable after registration; the registry is built once at startup.
type NetworkDescriptor struct {
	ID          NetworkID `yaml:"id"`
	Name        string    `yaml:"name"`
	Symbol      string    `yaml:"symbol"`
	Decimals    int       `yaml:"decimals"`
	VM          VMKind    `yaml:"vm"`
	ChainID     int64     `yaml:"chain_id"`
	RPCURL      string    `yaml:"rpc_url"`
	ExplorerURL string    `yaml:"explorer_url"`
	Testnet     bool      `yaml:"testnet"`
}
