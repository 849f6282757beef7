package models

import (
	"strings"
	"time"
)

// FeeLine строка начисления или платежа.
type FeeLine struct {
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
	FeeType string    `json:"fee_type"`
}

// Account начисления и платежи ученика за четверть.
type Account struct {
	SubjectID string    `json:"subject_id"`
	Term      string    `json:"term"`
	Bills     []FeeLine `json:"bills"`
	Payments  []FeeLine `json:"payments"`
}

// TotalBilled сумма начислений.
func (a Account) TotalBilled() float64 { return sum(a.Bills, nil) }

// TotalPaid сумма платежей.
func (a Account) TotalPaid() float64 { return sum(a.Payments, nil) }

// Balance остаток к оплате.
func (a Account) Balance() float64 { return a.TotalBilled() - a.TotalPaid() }

// Totals возвращает начисленную и оплаченную суммы для вида пропуска.
// Для транспортного пропуска учитываются только транспортные строки.
func (a Account) Totals(kind EntitlementKind) (due, paid float64) {
	if kind != KindTransportPass {
		return a.TotalBilled(), a.TotalPaid()
	}
	return sum(a.Bills, isTransport), sum(a.Payments, isTransport)
}

func isTransport(l FeeLine) bool {
	return strings.Contains(strings.ToLower(l.FeeType), "transport")
}

func sum(lines []FeeLine, keep func(FeeLine) bool) float64 {
	var total float64
	for _, l := range lines {
		if keep != nil && !keep(l) {
			continue
		}
		total += l.Amount
	}
	return total
}
