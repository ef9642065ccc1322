// Package progress computes the derived completion/payment/schedule snapshot
// for a contract and its milestones. It is a pure transform: same contract,
// milestones and "now" always produce the same snapshot, nothing is written,
// and every numeric edge case (no milestones, zero total value, deadline
// before start) degrades to 0 or a clamped value instead of failing — the
// dashboard must always render a number.
package progress

import (
	"math"
	"time"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

type MilestoneCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Approved  int `json:"approved"`
	Paid      int `json:"paid"`
	Overdue   int `json:"overdue"`
	Upcoming  int `json:"upcoming"`
}

// Overview carries the count-based progress metrics. PaymentProgressPct here
// is paid-count / total-count; the value-based figure lives in Financial.
type Overview struct {
	Milestones          MilestoneCounts `json:"milestones"`
	OverallProgressPct  int             `json:"overall_progress_pct"`
	PaymentProgressPct  int             `json:"payment_progress_pct"`
	ProgressVsTimeDelta int             `json:"progress_vs_time_delta"`
}

type Financial struct {
	TotalValue         float64 `json:"total_value"`
	CompletedValue     float64 `json:"completed_value"`
	PaidValue          float64 `json:"paid_value"`
	PendingValue       float64 `json:"pending_value"`
	PaymentProgressPct int     `json:"payment_progress_pct"`
}

type Timeline struct {
	ContractDurationDays int  `json:"contract_duration_days"`
	DaysElapsed          int  `json:"days_elapsed"`
	DaysRemaining        int  `json:"days_remaining"`
	IsOverdue            bool `json:"is_overdue"`
	TimeProgressPct      int  `json:"time_progress_pct"`
}

type OverdueAlert struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

type UpcomingAlert struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	DueDate      time.Time `json:"due_date"`
	DaysUntilDue int       `json:"days_until_due"`
}

type Alerts struct {
	OverdueMilestones  []OverdueAlert  `json:"overdue_milestones"`
	UpcomingMilestones []UpcomingAlert `json:"upcoming_milestones"`
}

type Snapshot struct {
	Progress  Overview  `json:"progress"`
	Financial Financial `json:"financial"`
	Timeline  Timeline  `json:"timeline"`
	Alerts    Alerts    `json:"alerts"`
}

// upcomingWindowDays is how far ahead a not-yet-approved milestone counts as
// "upcoming".
const upcomingWindowDays = 7

// IsCompleted reports whether the status counts as completed work:
// COMPLETED, APPROVED or PAID.
func IsCompleted(s models.MilestoneStatus) bool {
	return s == models.MilestoneStatusCompleted ||
		s == models.MilestoneStatusApproved ||
		s == models.MilestoneStatusPaid
}

// IsApproved reports whether the status counts as approved: APPROVED or PAID.
func IsApproved(s models.MilestoneStatus) bool {
	return s == models.MilestoneStatusApproved || s == models.MilestoneStatusPaid
}

// ceilDays converts a duration to whole days, rounding any partial day up.
// Negative durations stay negative so callers can clamp explicitly.
func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// pct is round(100 * num / den), 0 when den is not positive.
func pct(num, den float64) int {
	if den <= 0 {
		return 0
	}
	return int(math.Round(100 * num / den))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Calculate builds the progress snapshot for a contract at instant now.
// Milestones are expected in due-date order (alert lists keep input order).
func Calculate(ct *models.Contract, milestones []models.Milestone, now time.Time) Snapshot {
	counts := MilestoneCounts{Total: len(milestones)}

	var completedValue, paidValue float64
	alerts := Alerts{
		OverdueMilestones:  []OverdueAlert{},
		UpcomingMilestones: []UpcomingAlert{},
	}

	for _, m := range milestones {
		if IsCompleted(m.Status) {
			counts.Completed++
			completedValue += m.Amount
		}
		if IsApproved(m.Status) {
			counts.Approved++
		}
		if m.Status == models.MilestoneStatusPaid {
			counts.Paid++
			paidValue += m.Amount
		}

		if IsApproved(m.Status) {
			continue // approved/paid milestones are never overdue nor upcoming
		}

		if m.DueDate.Before(now) {
			counts.Overdue++
			alerts.OverdueMilestones = append(alerts.OverdueMilestones, OverdueAlert{
				ID:          m.ID.String(),
				Title:       m.Title,
				DueDate:     m.DueDate,
				DaysOverdue: ceilDays(now.Sub(m.DueDate)),
			})
			continue
		}

		// due exactly now yields 0 days and is not upcoming
		if d := ceilDays(m.DueDate.Sub(now)); d > 0 && d <= upcomingWindowDays {
			counts.Upcoming++
			alerts.UpcomingMilestones = append(alerts.UpcomingMilestones, UpcomingAlert{
				ID:           m.ID.String(),
				Title:        m.Title,
				DueDate:      m.DueDate,
				DaysUntilDue: d,
			})
		}
	}

	overallPct := pct(float64(counts.Completed), float64(counts.Total))

	durationDays := ceilDays(ct.Deadline.Sub(ct.StartDate))
	if durationDays < 1 {
		durationDays = 1 // guards deadline <= start
	}
	daysElapsed := ceilDays(now.Sub(ct.StartDate))
	if daysElapsed < 0 {
		daysElapsed = 0
	}
	daysRemaining := ceilDays(ct.Deadline.Sub(now))
	if daysRemaining < 0 {
		daysRemaining = 0
	}
	timePct := clamp(pct(float64(daysElapsed), float64(durationDays)), 0, 100)

	return Snapshot{
		Progress: Overview{
			Milestones:          counts,
			OverallProgressPct:  overallPct,
			PaymentProgressPct:  pct(float64(counts.Paid), float64(counts.Total)),
			ProgressVsTimeDelta: overallPct - timePct,
		},
		Financial: Financial{
			TotalValue:         ct.TotalAmount,
			CompletedValue:     completedValue,
			PaidValue:          paidValue,
			PendingValue:       ct.TotalAmount - paidValue,
			PaymentProgressPct: pct(paidValue, ct.TotalAmount),
		},
		Timeline: Timeline{
			ContractDurationDays: durationDays,
			DaysElapsed:          daysElapsed,
			DaysRemaining:        daysRemaining,
			IsOverdue:            ct.Deadline.Before(now),
			TimeProgressPct:      timePct,
		},
		Alerts: alerts,
	}
}
