package notify

import (
	"fmt"
	"time"
)

// render turns an outbox kind and its payload into a subject and a plain-text body.
func render(kind string, to string, data map[string]interface{}) (string, string) {
	greet := "Hello"
	if to != "" {
		greet = "Hello " + to
	}
	switch kind {
	case "payment_confirmed":
		return "Payment confirmed",
			fmt.Sprintf("%s,\n\nWe received your payment for invoice %v (%v %v). Your %v plan is active until %s.",
				greet, data["invoice_number"], data["amount"], data["currency"], data["plan_name"], day(data["expires_at"]))
	case "expiry_warning":
		return "Your subscription expires soon",
			fmt.Sprintf("%s,\n\nYour %v plan expires in %v day(s), on %s. Renew now to keep your features.",
				greet, data["plan_name"], data["days_remaining"], day(data["expires_at"]))
	case "downgrade_notice":
		return "Your subscription has expired",
			fmt.Sprintf("%s,\n\nYour %v plan has expired and your account was moved to %v. Upgrade any time to restore your features.",
				greet, data["from_plan_name"], data["to_plan_name"])
	case "payment_reminder":
		return "Payment reminder",
			fmt.Sprintf("%s,\n\nInvoice %v for %v %v is due on %s.",
				greet, data["invoice_number"], data["amount"], data["currency"], day(data["due_date"]))
	}
	return "Account update", fmt.Sprintf("%s,\n\nThere is an update on your account.", greet)
}

func day(v interface{}) string {
	s, _ := v.(string)
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Format("02 Jan 2006")
}
