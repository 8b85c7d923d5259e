// Package simulation advances a simulated calendar day by day, consuming
// item uses and flagging items that run out or expire.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/stowage/internal/planner"
)

// maxDays bounds a single advance request.
const maxDays = 3650

var (
	// ErrInvalidDays is returned when the number of days is not positive or too large.
	ErrInvalidDays = errors.New("days must be between 1 and 3650")
	// ErrTargetInPast is returned when asked to advance to a date not after the current one.
	ErrTargetInPast = errors.New("target date must be after the simulated date")
)

// Inventory is the part of the store the simulator mutates.
type Inventory interface {
	UseItems(ids []string) []string
	MarkWaste(now time.Time) []planner.WasteItem
}

// DayReport summarises one simulated day.
type DayReport struct {
	Date     time.Time           `json:"date"`
	Used     []string            `json:"itemsUsed"`
	Depleted []string            `json:"itemsDepletedToday"`
	Expired  []planner.WasteItem `json:"itemsExpired"`
}

// Report summarises an advance over one or more days.
type Report struct {
	NewDate  time.Time   `json:"newDate"`
	Days     []DayReport `json:"days"`
	Depleted []string    `json:"itemsDepleted"`
	Expired  []string    `json:"itemsExpired"`
}

// Simulator owns the simulated date.
type Simulator struct {
	mu     sync.Mutex
	inv    Inventory
	date   time.Time
	logger *zap.Logger
}

// New creates a simulator starting at start.
func New(inv Inventory, start time.Time, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{inv: inv, date: start.UTC(), logger: logger}
}

// Now returns the simulated date.
func (s *Simulator) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.date
}

// Advance moves the calendar forward by days. Every listed item is used
// once per day; items whose uses hit zero and items whose expiry is on or
// before the new date become waste.
func (s *Simulator) Advance(days int, usage []string) (Report, error) {
	if days < 1 || days > maxDays {
		return Report{}, fmt.Errorf("%w: got %d", ErrInvalidDays, days)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := Report{Days: make([]DayReport, 0, days), Depleted: []string{}, Expired: []string{}}
	for range days {
		s.date = s.date.AddDate(0, 0, 1)
		day := DayReport{Date: s.date, Used: append([]string{}, usage...)}
		day.Depleted = s.inv.UseItems(usage)
		if day.Depleted == nil {
			day.Depleted = []string{}
		}
		day.Expired = s.inv.MarkWaste(s.date)
		report.Depleted = append(report.Depleted, day.Depleted...)
		for _, w := range day.Expired {
			report.Expired = append(report.Expired, w.ItemID)
		}
		report.Days = append(report.Days, day)
	}
	report.NewDate = s.date

	s.logger.Info("simulation advanced",
		zap.Int("days", days),
		zap.Time("date", s.date),
		zap.Int("depleted", len(report.Depleted)),
		zap.Int("expired", len(report.Expired)),
	)
	return report, nil
}

// AdvanceTo moves the calendar to target, rounding partial days up.
func (s *Simulator) AdvanceTo(target time.Time, usage []string) (Report, error) {
	gap := target.Sub(s.Now())
	if gap <= 0 {
		return Report{}, ErrTargetInPast
	}
	days := int(math.Ceil(gap.Hours() / 24))
	return s.Advance(days, usage)
}
