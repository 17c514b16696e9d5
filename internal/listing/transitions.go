package listing

import (
	"slices"

	"krishi-backend/internal/models"
)

// transitions lists the statuses each status may move to. Statuses without
// an entry are terminal. expired is reserved and nothing leads to it.
var transitions = map[models.ListingStatus][]models.ListingStatus{
	models.ListingActive:      {models.ListingContacted, models.ListingSold, models.ListingCancelled},
	models.ListingContacted:   {models.ListingNegotiating, models.ListingSold, models.ListingCancelled},
	models.ListingNegotiating: {models.ListingSold, models.ListingCancelled},
}

func CanTransition(from, to models.ListingStatus) bool {
	return slices.Contains(transitions[from], to)
}

func IsTerminal(s models.ListingStatus) bool {
	return len(transitions[s]) == 0
}

// sourcesOf returns every status that may move to target.
func sourcesOf(target models.ListingStatus) []models.ListingStatus {
	var out []models.ListingStatus
	for from, tos := range transitions {
		if slices.Contains(tos, target) {
			out = append(out, from)
		}
	}
	return out
}
