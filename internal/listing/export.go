package listing

import (
	"context"
	"io"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/models"
	"krishi-backend/internal/store"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Listings"

var exportHeader = []any{
	"Listing No", "Crop", "Category", "Quantity (qtl)", "Quality", "Expected Price",
	"Status", "Buyer Contacts", "Sold To", "Final Price", "Sold Quantity", "Location", "Created At",
}

// ExportMine writes the caller's listings, newest first, as an xlsx workbook.
func (s *Service) ExportMine(ctx context.Context, actor models.Actor, w io.Writer) error {
	if actor.Anonymous() {
		return apperr.Authentication("Authentication required")
	}
	items, err := s.repo.Find(ctx, store.Query{
		Where:  []store.Cond{store.Eq(fieldUserID, actor.ID)},
		SortBy: fieldCreatedAt,
		Desc:   true,
	})
	if err != nil {
		return apperr.Unexpected("Failed to load listings", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return apperr.Unexpected("Failed to build export", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return apperr.Unexpected("Failed to build export", err)
	}
	for i, l := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return apperr.Unexpected("Failed to build export", err)
		}
		row := []any{
			l.ListingNumber,
			l.Crop.Name,
			l.Crop.Category,
			l.CropDetails.Quantity,
			string(l.CropDetails.Quality),
			l.CropDetails.ExpectedPrice,
			string(l.Status),
			len(l.BuyerContacts),
			l.SoldTo,
			optional(l.FinalPrice),
			optional(l.SoldQuantity),
			l.Seller.Location,
			l.CreatedAt.Format("2006-01-02 15:04"),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return apperr.Unexpected("Failed to build export", err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperr.Unexpected("Failed to write export", err)
	}
	return nil
}

func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
