package types

import "time"

// NextBillingDate calculates the next billing date based on the given start
// time and billing cycle.
// For example:
// - If the cycle is MONTHLY, we add one calendar month.
// - If the cycle is QUARTERLY, we add three calendar months.
// - If the cycle is ANNUAL, we add one calendar year.
// Unrecognized cycles fall back to MONTHLY; callers should treat that as a
// data-quality warning (validate the cycle separately), not a fatal error.
// Calendar arithmetic is clamped so month-boundary issues and leap years are
// handled (Jan 31 + 1 month lands on the last day of February).
func NextBillingDate(start time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case BILLING_CYCLE_DAILY:
		return AddClampedDate(start, 0, 0, 1)
	case BILLING_CYCLE_WEEKLY:
		return AddClampedDate(start, 0, 0, 7)
	case BILLING_CYCLE_QUARTERLY:
		return AddClampedDate(start, 0, 3, 0)
	case BILLING_CYCLE_ANNUAL:
		return AddClampedDate(start, 1, 0, 0)
	default:
		return AddClampedDate(start, 0, 1, 0)
	}
}

// AddClampedDate adds the given years, months and days to t, clamping the
// day-of-month to the last valid day of the resulting month instead of
// rolling over the way time.AddDate does.
func AddClampedDate(t time.Time, years, months, days int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	newY := y + years
	newM := time.Month(int(m) + months)

	// If we move beyond December, it adjusts correctly,
	// for example adding 2 months to November will land on January next year.
	for newM > 12 {
		newM -= 12
		newY++
	}
	for newM < 1 {
		newM += 12
		newY--
	}

	// Find the last valid day of the new month
	firstOfNextMonth := time.Date(newY, newM+1, 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfNextMonth.Add(-24 * time.Hour).Day()

	newD := d
	if newD > lastDay {
		newD = lastDay
	}

	result := time.Date(newY, newM, newD, h, min, sec, t.Nanosecond(), t.Location())
	if days != 0 {
		result = result.AddDate(0, 0, days)
	}
	return result
}
