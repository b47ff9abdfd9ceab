package options

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractType_CaseInsensitive(t *testing.T) {
	assert.True(t, ContractType("call").IsCall())
	assert.True(t, ContractType("CALL").IsCall())
	assert.True(t, ContractType("Put").IsPut())
	assert.False(t, ContractType("put").IsCall())
	assert.False(t, ContractType("").IsCall())
	assert.False(t, ContractType("straddle").IsPut())
}

func TestOptionContract_HasStrike(t *testing.T) {
	assert.True(t, call(100).HasStrike())
	assert.False(t, OptionContract{ContractType: ContractCall}.HasStrike())
	assert.False(t, OptionContract{StrikePrice: decimal.NewFromInt(-1)}.HasStrike())
}

func TestContractList_ValueScanRoundTrip(t *testing.T) {
	list := ContractList{call(100), put(95)}

	value, err := list.Value()
	require.NoError(t, err)

	var scanned ContractList
	require.NoError(t, scanned.Scan(value))

	require.Len(t, scanned, 2)
	assert.Equal(t, ContractCall, scanned[0].ContractType)
	assert.True(t, scanned[0].StrikePrice.Equal(decimal.NewFromInt(100)))
}

func TestContractList_ScanNil(t *testing.T) {
	var list ContractList
	require.NoError(t, list.Scan(nil))
	assert.Empty(t, list)
}
