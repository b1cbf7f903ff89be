package usecase

import (
	"fmt"
	"time"
)

const dateLayout = "02 Jan 2006"

func paymentConfirmedMessage(number, planName string, expires time.Time) string {
	return fmt.Sprintf("Invoice %s is paid. Your %s plan is active until %s.", number, planName, expires.Format(dateLayout))
}

func paymentReminderMessage(number string, amount int64, currency string, due time.Time) string {
	return fmt.Sprintf("Invoice %s for %d %s is due on %s.", number, amount, currency, due.Format(dateLayout))
}

func expiryWarningMessage(planName string, days int, expires time.Time) string {
	unit := "days"
	if days == 1 {
		unit = "day"
	}
	return fmt.Sprintf("Your %s plan expires in %d %s (%s). Renew to keep your features.", planName, days, unit, expires.Format(dateLayout))
}

func downgradeMessage(fromName, toName string) string {
	return fmt.Sprintf("Your %s plan has expired and your account is now on %s.", fromName, toName)
}

func lowStockMessage(item string, qty int) string {
	return fmt.Sprintf("%s is running low: %d left in stock.", item, qty)
}

func outOfStockMessage(item string) string {
	return fmt.Sprintf("%s is out of stock.", item)
}
