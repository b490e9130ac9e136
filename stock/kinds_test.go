package stock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWarehouseKind_Grade(t *testing.T) {
	bulk := []WarehouseKind{WarehouseBulkInFromSite, WarehouseFarmerDelivery, WarehousePressingConsumption}
	pressed := []WarehouseKind{WarehouseInitialStock, WarehousePressingIn, WarehouseExportOut,
		WarehouseReturnToSite, WarehouseAdjustmentIn, WarehouseAdjustmentOut}

	for _, k := range bulk {
		assert.Equal(t, GradeBulk, k.Grade(), k)
		assert.True(t, k.Valid())
	}
	for _, k := range pressed {
		assert.Equal(t, GradePressed, k.Grade(), k)
		assert.True(t, k.Valid())
	}
	assert.False(t, WarehouseKind("BAGGING_TRANSFER").Valid())
	assert.False(t, OnSiteKind("RETURN_TO_SITE").Valid())
}

func TestTransferStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to TransferStatus
		want     bool
	}{
		{TransferAwaitingOutbound, TransferInTransit, true},
		{TransferAwaitingOutbound, TransferCompleted, true},
		{TransferInTransit, TransferPendingReception, true},
		{TransferPendingReception, TransferCompleted, true},
		{TransferPendingReception, TransferCancelled, true},
		{TransferInTransit, TransferAwaitingOutbound, false},
		{TransferInTransit, TransferInTransit, false},
		{TransferCompleted, TransferCancelled, false},
		{TransferCancelled, TransferCompleted, false},
		{TransferAwaitingOutbound, "LOST", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNextNumber(t *testing.T) {
	assert.Equal(t, "DEL-2024-001", nextNumber(PrefixDelivery, 2024, nil))
	assert.Equal(t, "DEL-2024-004", nextNumber(PrefixDelivery, 2024, []string{"DEL-2024-001", "DEL-2024-003", "DEL-2023-009"}))
	assert.Equal(t, "PRESS-2025-001", nextNumber(PrefixPressing, 2025, []string{"PRESS-2024-010", "garbage"}))
	assert.Equal(t, "EXP-2024-1000", nextNumber(PrefixExport, 2024, []string{"EXP-2024-999"}))
}
