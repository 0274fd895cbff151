package appointments

import (
	"context"

	"donorslot/internal/domain"
)

// HistoryEntry is an appointment joined with its center for display.
type HistoryEntry struct {
	Appointment domain.Appointment
	Center      domain.Center
	Completed   bool
}

// ListHistory returns the donor's appointments most recent first, each with
// the center it was booked at and whether its start has passed.
func (s *Service) ListHistory(ctx context.Context, donorID string) ([]HistoryEntry, error) {
	appts, err := s.ListForDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	centers := make(map[string]domain.Center)
	out := make([]HistoryEntry, 0, len(appts))
	for _, a := range appts {
		c, ok := centers[a.CenterID]
		if !ok {
			c, err = s.lookupCenter(ctx, a.CenterID)
			if err != nil {
				return nil, err
			}
			centers[a.CenterID] = c
		}
		out = append(out, HistoryEntry{
			Appointment: a,
			Center:      c,
			Completed:   a.Completed(now, s.loc),
		})
	}
	return out, nil
}
