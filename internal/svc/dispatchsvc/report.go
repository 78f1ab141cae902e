package dispatchsvc

import (
	"fmt"
	"strings"
)

func buildReport(outcomes []Outcome) Report {
	report := Report{
		Outcomes: outcomes,
	}

	for _, o := range outcomes {
		if o.Status == StatusSent {
			report.SentCount++
			continue
		}

		report.FailedCount++
	}

	return report
}

// Summary is human-readable one line count of the batch.
func (r Report) Summary() string {
	return fmt.Sprintf("Summary: %d emails sent successfully. %d emails failed.", r.SentCount, r.FailedCount)
}

// FailureDetails returns one line for each outcome which is not Sent, in batch order.
func (r Report) FailureDetails() []string {
	lines := make([]string, 0, r.FailedCount)
	for _, o := range r.Outcomes {
		if o.Status == StatusSent {
			continue
		}

		lines = append(lines, fmt.Sprintf("- %s (PAN: %s, PAN1: %s): %s",
			o.Recipient.Email, orNA(o.Recipient.PAN), orNA(o.Recipient.PAN1), o.Detail,
		))
	}

	return lines
}

// String renders summary followed by failure details, if any.
func (r Report) String() string {
	sb := &strings.Builder{}
	sb.WriteString(r.Summary())

	details := r.FailureDetails()
	if len(details) > 0 {
		sb.WriteString("\n\nFailure details:\n")
		sb.WriteString(strings.Join(details, "\n"))
	}

	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}
