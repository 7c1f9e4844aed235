package amortization

import "time"

// maxPaymentDay keeps scheduled dates valid in every month.
const maxPaymentDay = 28

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func clampDay(paymentDay int) int {
	if paymentDay < 1 {
		return 1
	}
	if paymentDay > maxPaymentDay {
		return maxPaymentDay
	}
	return paymentDay
}

// MonthsElapsed counts scheduled payments that have come due between start
// and today. The current month only counts once its payment day is reached;
// days past the 28th fall due on the 28th, as NextPaymentDate schedules them.
func MonthsElapsed(start time.Time, paymentDay int, today time.Time) int {
	start, today = Day(start), Day(today)
	n := (today.Year()-start.Year())*12 + int(today.Month()) - int(start.Month())
	if today.Day() < clampDay(paymentDay) {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

// NextPaymentDate returns the first payment date strictly after today.
func NextPaymentDate(today time.Time, paymentDay int) time.Time {
	today = Day(today)
	next := time.Date(today.Year(), today.Month(), clampDay(paymentDay), 0, 0, 0, 0, time.UTC)
	if !next.After(today) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

// AdvanceMonth moves a payment date to the same payment day of the next month.
func AdvanceMonth(from time.Time, paymentDay int) time.Time {
	from = Day(from)
	return time.Date(from.Year(), from.Month()+1, clampDay(paymentDay), 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns whole days from today to date; negative when overdue.
func DaysUntil(date, today time.Time) int {
	return int(Day(date).Sub(Day(today)).Hours() / 24)
}
