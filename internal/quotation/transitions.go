package quotation

import (
	"slices"

	"krishi-backend/internal/models"
)

// contacted, quoted and rejected are reserved: nothing moves a quotation
// into them yet, but a stored quotation in contacted or quoted still
// progresses like a pending one.
var transitions = map[models.QuotationStatus][]models.QuotationStatus{
	models.QuotationPending:   {models.QuotationApproved, models.QuotationCompleted, models.QuotationCancelled},
	models.QuotationContacted: {models.QuotationApproved, models.QuotationCompleted, models.QuotationCancelled},
	models.QuotationQuoted:    {models.QuotationApproved, models.QuotationCompleted, models.QuotationCancelled},
	models.QuotationApproved:  {models.QuotationCompleted, models.QuotationCancelled},
}

func CanTransition(from, to models.QuotationStatus) bool {
	return slices.Contains(transitions[from], to)
}

func IsTerminal(s models.QuotationStatus) bool {
	return len(transitions[s]) == 0
}

func sourcesOf(target models.QuotationStatus) []models.QuotationStatus {
	var out []models.QuotationStatus
	for from, tos := range transitions {
		if slices.Contains(tos, target) {
			out = append(out, from)
		}
	}
	return out
}
