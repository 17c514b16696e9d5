package listing

import (
	"bytes"
	"context"
	"testing"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportMine(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sold := f.create(t)
	f.create(t)
	_, err := f.svc.Create(ctx, stranger, wheat())
	require.NoError(t, err)

	_, err = f.svc.MarkSold(ctx, owner, sold.ID, SaleInput{FinalPrice: 2300, SoldTo: "Mahesh"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportMine(ctx, owner, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus the owner's two listings")
	assert.Equal(t, "Listing No", rows[0][0])

	var statuses []string
	for _, r := range rows[1:] {
		statuses = append(statuses, r[6])
	}
	assert.ElementsMatch(t, []string{string(models.ListingSold), string(models.ListingActive)}, statuses)
}

func TestExportMineRequiresSession(t *testing.T) {
	f := newFixture()
	err := f.svc.ExportMine(context.Background(), models.Actor{}, &bytes.Buffer{})
	assertKind(t, apperr.KindAuthentication, err)
}
