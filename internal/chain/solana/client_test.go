package solana

import (
	"testing"

	"github.com/cubecore/chainops/internal/domain/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateAddress(t *testing.T) {
	c := &Client{network: model.NetworkID("solana")}

	assert.True(t, c.ValidateAddress("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"))
	assert.True(t, c.ValidateAddress("11111111111111111111111111111111"))
	assert.False(t, c.ValidateAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	assert.False(t, c.ValidateAddress("notbase58!!!"))
	assert.False(t, c.ValidateAddress(""))
}
