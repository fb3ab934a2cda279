package dto

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

func TestValidate_CreateTicket(t *testing.T) {
	req := CreateTicketRequest{
		CustomerName:     "Mona",
		CustomerPhone:    "0100",
		CustomerAddress:  "Cairo",
		DeviceType:       "TV",
		FaultDescription: "no picture",
	}
	assert.NoError(t, Validate(req))

	req.CustomerEmail = "not-an-email"
	req.Priority = "LOW"
	req.CustomerName = ""
	err := Validate(req)
	require.Error(t, err)

	var de *apperrors.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	fields := de.Details["fields"].(map[string]any)
	assert.Equal(t, "is required", fields["customer_name"])
	assert.Equal(t, "must be a valid email address", fields["customer_email"])
	assert.Equal(t, "must be one of: NORMAL URGENT", fields["priority"])
}

func TestValidate_CostAndAccounts(t *testing.T) {
	assert.Error(t, Validate(CreateCostRequest{Description: "x", Quantity: 0.001, UnitPrice: 1}))
	assert.Error(t, Validate(CreateCostRequest{Description: "x", Quantity: 1, UnitPrice: -0.5}))
	assert.NoError(t, Validate(CreateCostRequest{Description: "x", Quantity: 0.01, UnitPrice: 0}))

	assert.NoError(t, Validate(AccountsQuery{From: "2024-01"}))
	assert.Error(t, Validate(AccountsQuery{To: "01/2024"}))
}
