package domain

import (
	"sort"
	"time"
)

type SeatMapSeat struct {
	ID     int64      `json:"id"`
	Number int        `json:"number"`
	Class  SeatClass  `json:"class"`
	Status SeatStatus `json:"status"`
}

type SeatMapRow struct {
	Row   string        `json:"row"`
	Seats []SeatMapSeat `json:"seats"`
}

// SeatMap is the per-row view of a showtime's seats as shown to viewers.
type SeatMap struct {
	ShowtimeID int64        `json:"showtimeId"`
	Rows       []SeatMapRow `json:"rows"`
	Available  int          `json:"available"`
	Total      int          `json:"total"`
}

// BuildSeatMap groups seats by row, ordered by row then number. Holds whose
// deadline passed are shown as available.
func BuildSeatMap(showtimeID int64, seats []ShowtimeSeat, now time.Time) SeatMap {
	sorted := make([]ShowtimeSeat, len(seats))
	copy(sorted, seats)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Number < sorted[j].Number
	})

	m := SeatMap{ShowtimeID: showtimeID, Rows: []SeatMapRow{}, Total: len(sorted)}
	for _, s := range sorted {
		status := s.DisplayStatus(now)
		if status == SeatAvailable {
			m.Available++
		}

		if n := len(m.Rows); n == 0 || m.Rows[n-1].Row != s.Row {
			m.Rows = append(m.Rows, SeatMapRow{Row: s.Row})
		}
		last := &m.Rows[len(m.Rows)-1]
		last.Seats = append(last.Seats, SeatMapSeat{
			ID:     s.ID,
			Number: s.Number,
			Class:  s.Class,
			Status: status,
		})
	}

	return m
}
