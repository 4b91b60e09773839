package calendar

import (
	"sort"
	"strconv"
	"time"
)

const (
	// GridCells is the fixed number of cells in a month grid.
	GridCells = 42
	// GridColumns is the number of weekday columns, Sunday first.
	GridColumns = 7

	maxTrailingCells = 14
	dateKeyLayout    = "2006-01-02"
	timeLabelLayout  = "15:04"
)

// Weekdays are the grid column headers, Sunday first.
var Weekdays = [GridColumns]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Grid is a six week view of one month.
type Grid struct {
	Year     int
	Month    time.Month
	Location *time.Location
	Weekdays [GridColumns]string
	Cells    []Cell
}

// Cell is one day square of the grid. Cells outside the displayed month
// carry only a day number.
type Cell struct {
	Date    time.Time
	Day     int
	InMonth bool
	IsToday bool
	Key     string
	Events  []CellEvent
}

// CellEvent is a session placed in a day cell together with its display label.
type CellEvent struct {
	Event
	Label string
}

// Title returns the month label, e.g. "February 2024".
func (g Grid) Title() string {
	return g.Month.String() + " " + strconv.Itoa(g.Year)
}

// Rows splits the cells into weeks.
func (g Grid) Rows() [][]Cell {
	rows := make([][]Cell, 0, len(g.Cells)/GridColumns)
	for start := 0; start < len(g.Cells); start += GridColumns {
		end := start + GridColumns
		if end > len(g.Cells) {
			end = len(g.Cells)
		}
		rows = append(rows, g.Cells[start:end])
	}
	return rows
}

// DateKey formats t as the YYYY-MM-DD key used to place events in cells.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// BuildMonthGrid lays out the month containing reference. Day boundaries
// and the today marker are evaluated in reference's location. Events are
// expected to be filtered already; those outside the month are ignored.
func BuildMonthGrid(events []Event, reference, today time.Time) Grid {
	loc := reference.Location()
	year, month, _ := reference.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	leading := int(first.Weekday())
	daysInMonth := daysIn(year, month, loc)
	prev := first.AddDate(0, 0, -1)
	daysInPrev := prev.Day()
	todayKey := DateKey(today.In(loc))

	byDay := groupByDay(events, loc)

	grid := Grid{
		Year:     year,
		Month:    month,
		Location: loc,
		Weekdays: Weekdays,
		Cells:    make([]Cell, 0, GridCells),
	}

	for i := leading - 1; i >= 0; i-- {
		day := daysInPrev - i
		grid.Cells = append(grid.Cells, Cell{
			Date: time.Date(prev.Year(), prev.Month(), day, 0, 0, 0, 0, loc),
			Day:  day,
		})
	}

	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, loc)
		key := DateKey(date)
		grid.Cells = append(grid.Cells, Cell{
			Date:    date,
			Day:     day,
			InMonth: true,
			IsToday: key == todayKey,
			Key:     key,
			Events:  byDay[key],
		})
	}

	trailing := GridCells - len(grid.Cells)
	if trailing > maxTrailingCells {
		trailing = maxTrailingCells
	}
	next := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	for day := 1; day <= trailing; day++ {
		grid.Cells = append(grid.Cells, Cell{
			Date: next.AddDate(0, 0, day-1),
			Day:  day,
		})
	}

	return grid
}

func groupByDay(events []Event, loc *time.Location) map[string][]CellEvent {
	byDay := make(map[string][]CellEvent)
	for _, event := range events {
		start := event.Start.In(loc)
		key := DateKey(start)
		byDay[key] = append(byDay[key], CellEvent{
			Event: event,
			Label: event.Title + " - " + start.Format(timeLabelLayout),
		})
	}
	for key := range byDay {
		cellEvents := byDay[key]
		sort.SliceStable(cellEvents, func(i, j int) bool {
			return startsBefore(cellEvents[i].Event, cellEvents[j].Event)
		})
	}
	return byDay
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
