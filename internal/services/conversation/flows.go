package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/sl"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/expiry"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/issuance"
	"github.com/magabrotheeeer/gatepass-assistant/internal/services/term"
)

const humanDate = "02 January 2006"

// checkTerm проверяет введённый код четверти. При ошибке состояние сессии
// становится state, а возвращается текст с повторным запросом.
func (s *Service) checkTerm(t *turn, code string, state models.SessionState) (string, bool) {
	var msg string
	switch tm, err := s.deps.Calendar.Lookup(code); {
	case !term.ValidCode(code):
		msg = fmt.Sprintf("*%s* is not a valid term code.", code)
	case err != nil:
		msg = fmt.Sprintf("Term *%s* is not in the school calendar.", code)
	case datetime.Day(t.now).Before(tm.Start):
		msg = fmt.Sprintf("Term *%s* has not started yet. Please choose a current or past term.", code)
	default:
		return "", true
	}

	t.sess.State = state
	if state == models.StateMainMenu {
		t.sess.PendingKind = ""
		return withMenu(msg), false
	}
	return msg + " Reply with a term code like *2026-1*, or *menu* to go back.", false
}

func (s *Service) accountErrLine(t *turn, c models.Contact, code string, err error) string {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Sprintf("%s: no account found for Term %s.", displayName(c), code)
	}
	t.log.Error("failed to load account", slog.String("subject_id", c.SubjectID), sl.Err(err))
	return fmt.Sprintf("%s: could not load account details. Please contact _%s_.", displayName(c), s.opts.SupportContact)
}

func (s *Service) balance(ctx context.Context, t *turn, code string) (string, error) {
	if code == "" {
		resolved, ok := s.resolveTerm(t.now)
		if !ok {
			t.sess.State = models.StateAwaitingTermForBalance
			return askTerm("view balances"), nil
		}
		code = resolved
	}

	lines := make([]string, 0, len(t.contacts))
	for _, c := range t.contacts {
		acc, err := s.deps.Accounts.Account(ctx, c.SubjectID, code)
		if err != nil {
			lines = append(lines, s.accountErrLine(t, c, code, err))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\nBilled: $%.2f | Paid: $%.2f | Balance: *$%.2f*",
			displayName(c), acc.TotalBilled(), acc.TotalPaid(), acc.Balance()))
	}
	return finish(t, withMenu(fmt.Sprintf("📊 *Balances for Term %s*\n\n%s", code, strings.Join(lines, "\n\n"))))
}

func (s *Service) statement(ctx context.Context, t *turn, code string) (string, error) {
	if code == "" {
		resolved, ok := s.resolveTerm(t.now)
		if !ok {
			t.sess.State = models.StateAwaitingTermForStatement
			return askTerm("request a statement"), nil
		}
		code = resolved
	}

	blocks := make([]string, 0, len(t.contacts))
	for _, c := range t.contacts {
		acc, err := s.deps.Accounts.Account(ctx, c.SubjectID, code)
		if err != nil {
			blocks = append(blocks, s.accountErrLine(t, c, code, err))
			continue
		}
		blocks = append(blocks, formatStatement(c, acc))
	}
	return finish(t, withMenu(fmt.Sprintf("🧾 *Statement for Term %s*\n\n%s", code, strings.Join(blocks, "\n\n"))))
}

func formatStatement(c models.Contact, acc models.Account) string {
	var b strings.Builder
	b.WriteString(displayName(c))
	b.WriteString("\n_Bills_")
	if len(acc.Bills) == 0 {
		b.WriteString("\nnone")
	}
	for _, l := range acc.Bills {
		fmt.Fprintf(&b, "\n%s %s $%.2f", l.Date.Format(time.DateOnly), l.FeeType, l.Amount)
	}
	b.WriteString("\n_Payments_")
	if len(acc.Payments) == 0 {
		b.WriteString("\nnone")
	}
	for _, l := range acc.Payments {
		fmt.Fprintf(&b, "\n%s %s $%.2f", l.Date.Format(time.DateOnly), l.FeeType, l.Amount)
	}
	fmt.Fprintf(&b, "\nBalance: *$%.2f*", acc.Balance())
	return b.String()
}

func (s *Service) entitlement(ctx context.Context, t *turn, kind models.EntitlementKind, code string) (string, error) {
	title := kind.Title()
	if code == "" {
		resolved, ok := s.resolveTerm(t.now)
		if !ok {
			next, hasNext := s.deps.Calendar.NextUpcoming(t.now)
			if !hasNext {
				t.sess.State = models.StateAwaitingTermForEntitlement
				t.sess.PendingKind = string(kind)
				return askTerm("request a " + title), nil
			}
			nt, err := s.deps.Calendar.Lookup(next)
			if err != nil {
				return "", err
			}
			return finish(t, withMenu(fmt.Sprintf("📅 %ss are only issued during active school terms. "+
				"Term *%s* starts on %s. Please try again then.", title, next, nt.Start.Format(humanDate))))
		}
		code = resolved
	}

	tm, err := s.deps.Calendar.Lookup(code)
	if err != nil {
		return "", err
	}
	today := datetime.Day(t.now)
	if today.After(tm.End) {
		return finish(t, withMenu(fmt.Sprintf("⛔ *%s Request Denied.*\nTerm *%s* ended on %s. %ss are only issued during active school terms.",
			title, code, tm.End.Format(humanDate), title)))
	}
	if today.Before(tm.Start) {
		return finish(t, withMenu(fmt.Sprintf("📅 Term *%s* starts on %s. %ss are only issued during active school terms.",
			code, tm.Start.Format(humanDate), title)))
	}

	lines := make([]string, 0, len(t.contacts))
	for _, c := range t.contacts {
		lines = append(lines, s.entitlementLine(ctx, t, kind, code, c))
	}
	return finish(t, withMenu(fmt.Sprintf("🎫 *%s: Term %s*\n\n%s\n\n_If not received, ensure %s is registered with WhatsApp._",
		title, code, strings.Join(lines, "\n\n"), t.phone)))
}

func (s *Service) entitlementLine(ctx context.Context, t *turn, kind models.EntitlementKind, code string, c models.Contact) string {
	name := displayName(c)
	acc, err := s.deps.Accounts.Account(ctx, c.SubjectID, code)
	if err != nil {
		return s.accountErrLine(t, c, code, err)
	}
	due, paid := acc.Totals(kind)
	if due <= 0 {
		if kind == models.KindTransportPass {
			return fmt.Sprintf("%s: no transport fees are billed for Term %s.", name, code)
		}
		return fmt.Sprintf("%s: fees for Term %s have not been posted yet. Please check again later.", name, code)
	}

	res, err := s.deps.Issuer.Issue(ctx, issuance.Request{
		Kind:          kind,
		SubjectID:     c.SubjectID,
		Term:          code,
		PaymentAmount: paid,
		TotalDue:      due,
		Channel:       t.phone,
		Now:           t.now,
	})
	if err != nil {
		return s.issueErrLine(t, c, code, err)
	}

	title := kind.Title()
	switch res.Outcome {
	case issuance.OutcomeIssued:
		return fmt.Sprintf("✅ %s: %s issued, valid until %s (%.0f%% paid).",
			name, title, res.Entitlement.ExpiryAt.Format(humanDate), res.PaymentPercentage)
	case issuance.OutcomeIssuedTextOnlyFallback:
		return fmt.Sprintf("✅ %s: %s issued, valid until %s (%.0f%% paid). The document could not be sent, so a text summary was sent instead.",
			name, title, res.Entitlement.ExpiryAt.Format(humanDate), res.PaymentPercentage)
	case issuance.OutcomeReusedSent:
		return fmt.Sprintf("🔁 %s: your current %s (valid until %s) has been sent again.",
			name, title, res.Entitlement.ExpiryAt.Format(humanDate))
	case issuance.OutcomeReusedTextOnly:
		return fmt.Sprintf("🔁 %s: you already have a %s valid until %s. A text summary was sent.",
			name, title, res.Entitlement.ExpiryAt.Format(humanDate))
	case issuance.OutcomeBelowThreshold:
		return fmt.Sprintf("⛔ %s: %.0f%% of fees paid, which is below the minimum for a %s. Balance due: $%.2f.",
			name, res.PaymentPercentage, title, due-paid)
	case issuance.OutcomeRateLimited:
		return fmt.Sprintf("⚠️ %s: too many pass requests this week. Please try again next week.", name)
	default:
		t.log.Error("unknown issuance outcome", slog.String("outcome", string(res.Outcome)))
		return fmt.Sprintf("%s: the request could not be processed. Please contact _%s_.", name, s.opts.SupportContact)
	}
}

func (s *Service) issueErrLine(t *turn, c models.Contact, code string, err error) string {
	name := displayName(c)
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		return fmt.Sprintf("⚠️ %s: %s. Please contact _%s_.", name, vErr.Error(), s.opts.SupportContact)
	case errors.Is(err, models.ErrNotFound):
		return fmt.Sprintf("⚠️ %s: student record not found. Please contact _%s_.", name, s.opts.SupportContact)
	case errors.Is(err, models.ErrChannelUnverified):
		return fmt.Sprintf("⚠️ %s: %s is not registered on WhatsApp. Please register the number or contact _%s_.",
			name, t.phone, s.opts.SupportContact)
	case errors.Is(err, expiry.ErrInvalidTerm), errors.Is(err, term.ErrUnknownTerm):
		t.log.Error("term is not configured", slog.String("term", code), sl.Err(err))
		return fmt.Sprintf("⚠️ %s: Term %s is not configured for passes. Please contact _%s_.", name, code, s.opts.SupportContact)
	default:
		t.log.Error("issuance failed", slog.String("subject_id", c.SubjectID), sl.Err(err))
		return fmt.Sprintf("⚠️ %s: the request could not be processed. Please contact _%s_.", name, s.opts.SupportContact)
	}
}
