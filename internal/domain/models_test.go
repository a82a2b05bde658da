package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestValidAmount(t *testing.T) {
	cases := map[string]bool{
		"0.01":    true,
		"15":      true,
		"1000.50": true,
		"0":       false,
		"0.00":    false,
		"-1.00":   false,
		"1.005":   false,
		"0.001":   false,
	}
	for in, want := range cases {
		require.Equal(t, want, ValidAmount(decimal.RequireFromString(in)), in)
	}

	require.True(t, ValidBalance(decimal.Zero))
	require.False(t, ValidBalance(decimal.RequireFromString("-0.01")))
	require.False(t, ValidBalance(decimal.RequireFromString("2.001")))
}

func TestTransferJSONUsesNames(t *testing.T) {
	raw, err := json.Marshal(Transfer{
		ID:            3001,
		Type:          TransferTypeSend,
		Status:        TransferStatusApproved,
		FromAccountID: 2001,
		ToAccountID:   2002,
		Amount:        decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "Send", fields["transfer_type"])
	require.Equal(t, "Approved", fields["transfer_status"])
	require.EqualValues(t, 2001, fields["account_from"])

	_, err = json.Marshal(Transfer{Type: TransferType(9), Status: TransferStatusPending})
	require.Error(t, err)
}

func TestTransferStatusTerminal(t *testing.T) {
	require.False(t, TransferStatusPending.Terminal())
	require.True(t, TransferStatusApproved.Terminal())
	require.True(t, TransferStatusRejected.Terminal())

	var s TransferStatus
	require.NoError(t, s.UnmarshalText([]byte("Rejected")))
	require.Equal(t, TransferStatusRejected, s)
	require.Error(t, s.UnmarshalText([]byte("Lost")))
}
