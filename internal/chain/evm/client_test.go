package evm

import (
	"testing"

	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	c := &Client{network: model.NetworkID("ethereum")}

	assert.True(t, c.ValidateAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	assert.True(t, c.ValidateAddress("0x0000000000000000000000000000000000000000"))
	assert.False(t, c.ValidateAddress("742d35Cc6634C0532925a3b844Bc454e4438f44"))
	assert.False(t, c.ValidateAddress("0x742d35"))
	assert.False(t, c.ValidateAddress(""))
	assert.False(t, c.ValidateAddress("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"))
}
