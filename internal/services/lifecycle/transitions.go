package lifecycle

import "github.com/Windi-Fikriyansyah/handygo/internal/models"

// Each table lists the only statuses reachable in one step. Terminal
// statuses have no entry.

var jobNext = map[models.JobStatus]models.JobStatus{
	models.JobStatusOpen:     models.JobStatusAssigned,
	models.JobStatusAssigned: models.JobStatusCompleted,
}

var jobCardNext = map[models.JobCardStatus]models.JobCardStatus{
	models.JobCardPending:    models.JobCardInProgress,
	models.JobCardInProgress: models.JobCardCompleted,
}

var bookingNext = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

func CanAdvanceJob(from, to models.JobStatus) bool {
	next, ok := jobNext[from]
	return ok && next == to
}

func CanAdvanceJobCard(from, to models.JobCardStatus) bool {
	next, ok := jobCardNext[from]
	return ok && next == to
}

func CanAdvanceBooking(from, to models.BookingStatus) bool {
	for _, next := range bookingNext[from] {
		if next == to {
			return true
		}
	}
	return false
}

// JobCardRank orders job card statuses; transitions only ever increase it.
func JobCardRank(s models.JobCardStatus) int {
	switch s {
	case models.JobCardPending:
		return 0
	case models.JobCardInProgress:
		return 1
	case models.JobCardCompleted:
		return 2
	}
	return -1
}

func IsTerminalBooking(s models.BookingStatus) bool {
	return len(bookingNext[s]) == 0
}
