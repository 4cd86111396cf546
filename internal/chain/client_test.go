package chain

import (
	"math/big"
	"strings"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseABI(t *testing.T) gethabi.ABI {
	t.Helper()
	parsed, err := gethabi.JSON(strings.NewReader(blueChainCarbonABI))
	require.NoError(t, err)
	return parsed
}

func TestIsValidAddress(t *testing.T) {
	valid := []string{
		"0x087573bec726A13d77F521318b3FD7dE3c830988",
		"0x0000000000000000000000000000000000000000",
		"0xeb4cba4759bf91b0d3252564b951f1d577e744df",
	}
	for _, addr := range valid {
		assert.True(t, IsValidAddress(addr), addr)
	}

	invalid := []string{
		"",
		"0x123",
		"087573bec726A13d77F521318b3FD7dE3c830988",
		"0x087573bec726A13d77F521318b3FD7dE3c83098", // 39 hex chars
		"0x087573bec726A13d77F521318b3FD7dE3c8309888",
		"0xZZ7573bec726A13d77F521318b3FD7dE3c830988",
	}
	for _, addr := range invalid {
		assert.False(t, IsValidAddress(addr), addr)
	}
}

func TestMaticToWei(t *testing.T) {
	assert.Equal(t, big.NewInt(1e15), MaticToWei(0.001))
	assert.Equal(t, big.NewInt(0), MaticToWei(0))

	one := MaticToWei(1)
	expected, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, expected, one)

	// 100 credits at the default unit price
	assert.Equal(t, new(big.Int).Mul(big.NewInt(100), big.NewInt(1e15)), MaticToWei(0.1))
}

func TestParseTokenID(t *testing.T) {
	id, err := parseTokenID("7")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), id)

	_, err = parseTokenID("")
	assert.ErrorIs(t, err, ErrInvalidTokenID)

	_, err = parseTokenID("-1")
	assert.ErrorIs(t, err, ErrInvalidTokenID)

	_, err = parseTokenID("0xabc")
	assert.ErrorIs(t, err, ErrInvalidTokenID)
}

func TestContractABIParses(t *testing.T) {
	abi := mustParseABI(t)
	for _, method := range []string{"mintCredit", "listCredit", "buyCredit", "retireCredit", "rateSeller", "balanceOf"} {
		_, ok := abi.Methods[method]
		assert.True(t, ok, "missing method %s", method)
	}
	for _, event := range []string{"CreditMinted", "CreditListed", "CreditSold", "CreditRetired"} {
		_, ok := abi.Events[event]
		assert.True(t, ok, "missing event %s", event)
	}
}
