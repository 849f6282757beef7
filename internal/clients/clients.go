// Package clients содержит общие ошибки и помощники HTTP-клиентов внешних систем.
package clients

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/magabrotheeeer/gatepass-assistant/internal/models"
)

// ErrRateLimited внешняя система ответила 429.
var ErrRateLimited = errors.New("rate limited by remote API")

// CheckStatus переводит код ответа в ошибку: 404 в models.ErrNotFound, 429 в ErrRateLimited.
func CheckStatus(resp *resty.Response, op string) error {
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w", op, ErrRateLimited)
	default:
		return fmt.Errorf("%s: unexpected status %d: %s", op, code, resp.String())
	}
}
