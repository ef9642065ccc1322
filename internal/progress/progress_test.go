package progress

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fahmirid/backend_lancerhub/internal/models"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return testNow.AddDate(0, 0, offset)
}

func contract(total float64, start, deadline time.Time) *models.Contract {
	return &models.Contract{
		ID:          uuid.New(),
		TotalAmount: total,
		StartDate:   start,
		Deadline:    deadline,
		Status:      models.ContractStatusActive,
	}
}

func milestone(amount float64, due time.Time, status models.MilestoneStatus) models.Milestone {
	return models.Milestone{
		ID:      uuid.New(),
		Title:   "milestone",
		Amount:  amount,
		DueDate: due,
		Status:  status,
	}
}

func TestCalculate_MixedStatuses(t *testing.T) {
	// 3 milestones of 2250/4500/2250 with PENDING/APPROVED/PAID
	ct := contract(9000, day(-30), day(30))
	ms := []models.Milestone{
		milestone(2250, day(5), models.MilestoneStatusPending),
		milestone(4500, day(10), models.MilestoneStatusApproved),
		milestone(2250, day(20), models.MilestoneStatusPaid),
	}

	s := Calculate(ct, ms, testNow)

	if s.Progress.Milestones.Completed != 2 {
		t.Fatalf("completed = %d, want 2", s.Progress.Milestones.Completed)
	}
	if s.Progress.Milestones.Approved != 2 {
		t.Fatalf("approved = %d, want 2", s.Progress.Milestones.Approved)
	}
	if s.Progress.Milestones.Paid != 1 {
		t.Fatalf("paid = %d, want 1", s.Progress.Milestones.Paid)
	}
	if s.Progress.OverallProgressPct != 67 {
		t.Fatalf("overall pct = %d, want 67", s.Progress.OverallProgressPct)
	}
	if s.Financial.PaidValue != 2250 {
		t.Fatalf("paid value = %v, want 2250", s.Financial.PaidValue)
	}
	if s.Financial.PaymentProgressPct != 25 {
		t.Fatalf("value payment pct = %d, want 25", s.Financial.PaymentProgressPct)
	}
	if s.Financial.CompletedValue != 6750 {
		t.Fatalf("completed value = %v, want 6750", s.Financial.CompletedValue)
	}
	if s.Financial.PendingValue != 6750 {
		t.Fatalf("pending value = %v, want 6750", s.Financial.PendingValue)
	}
}

func TestCalculate_ZeroMilestones(t *testing.T) {
	ct := contract(5000, day(-10), day(10))

	s := Calculate(ct, nil, testNow)

	if s.Progress.OverallProgressPct != 0 {
		t.Fatalf("overall pct = %d, want 0", s.Progress.OverallProgressPct)
	}
	if s.Progress.PaymentProgressPct != 0 {
		t.Fatalf("count payment pct = %d, want 0", s.Progress.PaymentProgressPct)
	}
	if s.Financial.PaymentProgressPct != 0 {
		t.Fatalf("value payment pct = %d, want 0", s.Financial.PaymentProgressPct)
	}
	// time progress is independent of milestone count
	if s.Timeline.TimeProgressPct != 50 {
		t.Fatalf("time pct = %d, want 50", s.Timeline.TimeProgressPct)
	}
	if s.Alerts.OverdueMilestones == nil || s.Alerts.UpcomingMilestones == nil {
		t.Fatalf("alert lists must be empty, not nil")
	}
}

func TestCalculate_Timeline(t *testing.T) {
	// start = now-10d, deadline = now+10d
	ct := contract(1000, day(-10), day(10))

	s := Calculate(ct, nil, testNow)

	if s.Timeline.ContractDurationDays != 20 {
		t.Fatalf("duration = %d, want 20", s.Timeline.ContractDurationDays)
	}
	if s.Timeline.DaysElapsed != 10 {
		t.Fatalf("elapsed = %d, want 10", s.Timeline.DaysElapsed)
	}
	if s.Timeline.DaysRemaining != 10 {
		t.Fatalf("remaining = %d, want 10", s.Timeline.DaysRemaining)
	}
	if s.Timeline.IsOverdue {
		t.Fatalf("contract must not be overdue")
	}
	if s.Timeline.TimeProgressPct != 50 {
		t.Fatalf("time pct = %d, want 50", s.Timeline.TimeProgressPct)
	}
}

func TestCalculate_DeadlineBeforeStart_ClampsDuration(t *testing.T) {
	ct := contract(1000, day(5), day(-5))

	s := Calculate(ct, nil, testNow)

	if s.Timeline.ContractDurationDays != 1 {
		t.Fatalf("duration = %d, want 1", s.Timeline.ContractDurationDays)
	}
	if s.Timeline.DaysElapsed != 0 {
		t.Fatalf("elapsed = %d, want 0 (start in the future)", s.Timeline.DaysElapsed)
	}
	if s.Timeline.TimeProgressPct < 0 || s.Timeline.TimeProgressPct > 100 {
		t.Fatalf("time pct out of range: %d", s.Timeline.TimeProgressPct)
	}
	if !s.Timeline.IsOverdue {
		t.Fatalf("deadline in the past must flag the contract overdue")
	}
}

func TestCalculate_OverdueClassification(t *testing.T) {
	ct := contract(1000, day(-20), day(20))

	pending := milestone(500, day(-3), models.MilestoneStatusPending)
	s := Calculate(ct, []models.Milestone{pending}, testNow)

	if s.Progress.Milestones.Overdue != 1 {
		t.Fatalf("overdue count = %d, want 1", s.Progress.Milestones.Overdue)
	}
	if len(s.Alerts.OverdueMilestones) != 1 {
		t.Fatalf("overdue alerts = %d, want 1", len(s.Alerts.OverdueMilestones))
	}
	if got := s.Alerts.OverdueMilestones[0].DaysOverdue; got != 3 {
		t.Fatalf("days overdue = %d, want 3", got)
	}

	// same milestone but PAID is not overdue
	paid := pending
	paid.Status = models.MilestoneStatusPaid
	s = Calculate(ct, []models.Milestone{paid}, testNow)
	if s.Progress.Milestones.Overdue != 0 {
		t.Fatalf("paid milestone counted overdue")
	}
}

func TestCalculate_UpcomingClassification(t *testing.T) {
	ct := contract(1000, day(-20), day(20))

	// COMPLETED but not yet approved still shows as upcoming
	m := milestone(500, day(5), models.MilestoneStatusCompleted)
	s := Calculate(ct, []models.Milestone{m}, testNow)

	if s.Progress.Milestones.Upcoming != 1 {
		t.Fatalf("upcoming count = %d, want 1", s.Progress.Milestones.Upcoming)
	}
	if got := s.Alerts.UpcomingMilestones[0].DaysUntilDue; got != 5 {
		t.Fatalf("days until due = %d, want 5", got)
	}

	// beyond the 7-day window
	far := milestone(500, day(9), models.MilestoneStatusPending)
	s = Calculate(ct, []models.Milestone{far}, testNow)
	if s.Progress.Milestones.Upcoming != 0 {
		t.Fatalf("milestone 9 days out counted upcoming")
	}

	// APPROVED milestones never show up in alerts
	approved := milestone(500, day(5), models.MilestoneStatusApproved)
	s = Calculate(ct, []models.Milestone{approved}, testNow)
	if s.Progress.Milestones.Upcoming != 0 || len(s.Alerts.UpcomingMilestones) != 0 {
		t.Fatalf("approved milestone counted upcoming")
	}
}

func TestCalculate_DueExactlyNow_Boundary(t *testing.T) {
	ct := contract(1000, day(-20), day(20))
	m := milestone(500, testNow, models.MilestoneStatusPending)

	s := Calculate(ct, []models.Milestone{m}, testNow)

	if s.Progress.Milestones.Overdue != 0 {
		t.Fatalf("milestone due exactly now counted overdue")
	}
	if s.Progress.Milestones.Upcoming != 0 {
		t.Fatalf("milestone due exactly now counted upcoming (daysUntilDue=0)")
	}
}

func TestCalculate_CountChain(t *testing.T) {
	ct := contract(6000, day(-20), day(20))
	statuses := []models.MilestoneStatus{
		models.MilestoneStatusPending,
		models.MilestoneStatusRevision,
		models.MilestoneStatusCompleted,
		models.MilestoneStatusCompleted,
		models.MilestoneStatusApproved,
		models.MilestoneStatusPaid,
	}
	var ms []models.Milestone
	for i, st := range statuses {
		ms = append(ms, milestone(1000, day(i+1), st))
	}

	s := Calculate(ct, ms, testNow)

	c := s.Progress.Milestones
	if !(c.Completed >= c.Approved && c.Approved >= c.Paid) {
		t.Fatalf("count chain violated: completed=%d approved=%d paid=%d",
			c.Completed, c.Approved, c.Paid)
	}
	if c.Completed != 4 || c.Approved != 2 || c.Paid != 1 {
		t.Fatalf("counts = %+v", c)
	}
	// REVISION is not completed
	if s.Financial.CompletedValue != 4000 {
		t.Fatalf("completed value = %v, want 4000", s.Financial.CompletedValue)
	}
	if s.Progress.OverallProgressPct < s.Financial.PaymentProgressPct {
		t.Fatalf("overall pct %d < value payment pct %d",
			s.Progress.OverallProgressPct, s.Financial.PaymentProgressPct)
	}
}

func TestCalculate_Idempotent(t *testing.T) {
	ct := contract(9000, day(-10), day(25))
	ms := []models.Milestone{
		milestone(2250, day(-2), models.MilestoneStatusPending),
		milestone(4500, day(4), models.MilestoneStatusCompleted),
		milestone(2250, day(15), models.MilestoneStatusPaid),
	}

	a := Calculate(ct, ms, testNow)
	b := Calculate(ct, ms, testNow)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ for identical input:\n%+v\n%+v", a, b)
	}
}

func TestCalculate_ZeroTotalValue(t *testing.T) {
	ct := contract(0, day(-10), day(10))
	ms := []models.Milestone{milestone(0, day(5), models.MilestoneStatusPaid)}

	s := Calculate(ct, ms, testNow)

	if s.Financial.PaymentProgressPct != 0 {
		t.Fatalf("value payment pct = %d, want 0 for zero total", s.Financial.PaymentProgressPct)
	}
}

func TestCalculate_ProgressVsTimeDelta(t *testing.T) {
	// halfway through the timeline with everything completed: 100 - 50 = +50
	ct := contract(2000, day(-10), day(10))
	ms := []models.Milestone{
		milestone(1000, day(-5), models.MilestoneStatusPaid),
		milestone(1000, day(-1), models.MilestoneStatusApproved),
	}

	s := Calculate(ct, ms, testNow)
	if s.Progress.ProgressVsTimeDelta != 50 {
		t.Fatalf("delta = %d, want 50", s.Progress.ProgressVsTimeDelta)
	}

	// nothing done: 0 - 50 = -50
	for i := range ms {
		ms[i].Status = models.MilestoneStatusPending
	}
	s = Calculate(ct, ms, testNow)
	if s.Progress.ProgressVsTimeDelta != -50 {
		t.Fatalf("delta = %d, want -50", s.Progress.ProgressVsTimeDelta)
	}
}
