// Package schoolapi клиент школьной системы: профили учеников, начисления и платежи.
package schoolapi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/gatepass-assistant/internal/clients"
	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
	"github.com/magabrotheeeer/gatepass-assistant/internal/lib/datetime"
	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// Client HTTP-клиент школьной системы.
type Client struct {
	client *resty.Client
}

// New создаёт клиент по настройкам SchoolAPI.
func New(cfg config.SchoolAPI) *Client {
	c := resty.New().
		SetBaseURL(cfg.SchoolBaseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(cfg.SchoolAPIKey).
		SetTimeout(cfg.SchoolTimeout)
	return &Client{client: c}
}

type profilePage struct {
	Students []models.Profile `json:"students"`
	HasMore  bool             `json:"has_more"`
}

type feeLine struct {
	Amount  float64 `json:"amount"`
	Date    string  `json:"date"`
	FeeType string  `json:"fee_type"`
}

type accountResponse struct {
	Bills    []feeLine `json:"bills"`
	Payments []feeLine `json:"payments"`
}

// FetchProfile возвращает профиль ученика; models.ErrNotFound, если его нет.
func (c *Client) FetchProfile(ctx context.Context, subjectID string) (models.Profile, error) {
	const op = "schoolapi.FetchProfile"
	var p models.Profile
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", subjectID).
		SetResult(&p).
		Get("/students/{id}")
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := clients.CheckStatus(resp, op); err != nil {
		return models.Profile{}, err
	}
	if p.SubjectID == "" {
		p.SubjectID = subjectID
	}
	return p, nil
}

// ListProfiles возвращает страницу профилей, page начинается с 1.
func (c *Client) ListProfiles(ctx context.Context, page, size int) ([]models.Profile, bool, error) {
	const op = "schoolapi.ListProfiles"
	var out profilePage
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":      strconv.Itoa(page),
			"page_size": strconv.Itoa(size),
		}).
		SetResult(&out).
		Get("/students")
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if err := clients.CheckStatus(resp, op); err != nil {
		return nil, false, err
	}
	return out.Students, out.HasMore, nil
}

// Account возвращает начисления и платежи ученика за четверть.
func (c *Client) Account(ctx context.Context, subjectID, term string) (models.Account, error) {
	const op = "schoolapi.Account"
	var out accountResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": subjectID, "term": term}).
		SetResult(&out).
		Get("/students/{id}/accounts/{term}")
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := clients.CheckStatus(resp, op); err != nil {
		return models.Account{}, err
	}

	bills, err := convertLines(out.Bills)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: bills: %w", op, err)
	}
	payments, err := convertLines(out.Payments)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: payments: %w", op, err)
	}
	return models.Account{SubjectID: subjectID, Term: term, Bills: bills, Payments: payments}, nil
}

func convertLines(in []feeLine) ([]models.FeeLine, error) {
	lines := make([]models.FeeLine, 0, len(in))
	for _, l := range in {
		d, err := datetime.ParseDate(l.Date)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.FeeLine{Amount: l.Amount, Date: d, FeeType: l.FeeType})
	}
	return lines, nil
}
