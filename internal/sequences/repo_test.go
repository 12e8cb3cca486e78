package sequences

import (
	"context"
	"testing"

	"github.com/angelmondragon/ims-backend/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextCodeIsSequentialPerCounter(t *testing.T) {
	client := dbtest.Open(t)
	r := NewRepository(client.DB())
	ctx := context.Background()

	first, err := r.NextCode(ctx, EmployeeCode)
	require.NoError(t, err)
	second, err := r.NextCode(ctx, EmployeeCode)
	require.NoError(t, err)
	ticket, err := r.NextCode(ctx, TicketNumber)
	require.NoError(t, err)

	assert.Equal(t, "EMP001", first)
	assert.Equal(t, "EMP002", second)
	assert.Equal(t, "TKT001", ticket)
}

func TestNextRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	r := NewRepository(client.DB())
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := r.WithTx(tx).Next(ctx, TicketNumber); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	n, err := r.Next(ctx, TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNextCodeRejectsUnknownCounter(t *testing.T) {
	client := dbtest.Open(t)
	_, err := NewRepository(client.DB()).NextCode(context.Background(), "invoice")
	require.Error(t, err)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "EMP007", Format("EMP", 7))
	assert.Equal(t, "TKT1234", Format("TKT", 1234))
}
