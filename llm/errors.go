package llm

import (
	"context"
	"errors"
	"net"
	"net/http"

	sdk "github.com/anthropics/anthropic-sdk-go"
)

// Category groups LLM failures by what the user should be told.
type Category string

const (
	CategoryTimeout        Category = "timeout"
	CategoryRateLimited    Category = "rate_limited"
	CategoryAuth           Category = "auth"
	CategoryInvalidRequest Category = "invalid_request"
	CategoryAPI            Category = "api_error"
	CategoryGeneral        Category = "general"
)

// userMessages are shown to end users instead of raw errors.
var userMessages = map[Category]string{
	CategoryGeneral:        "Analyysin hakeminen epäonnistui. Yritä uudelleen myöhemmin.",
	CategoryAPI:            "Tekoälypalvelun virhe. Palvelu voi olla tilapäisesti poissa käytöstä.",
	CategoryRateLimited:    "Liian monta pyyntöä lyhyessä ajassa. Odota hetki ja yritä uudelleen.",
	CategoryTimeout:        "Pyyntö aikakatkaistiin. Verkkoyhteydessä voi olla ongelmia.",
	CategoryAuth:           "Tunnistautumisvirhe. Tarkista API-avain.",
	CategoryInvalidRequest: "Virheellinen pyyntö. Tarkista syötetyt tiedot.",
}

// Classify maps an error from Client.Complete to its category.
func Classify(err error) Category {
	if err == nil {
		return ""
	}

	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return CategoryAuth
		case code == http.StatusTooManyRequests:
			return CategoryRateLimited
		case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
			return CategoryTimeout
		case code >= 500:
			return CategoryAPI
		case code >= 400:
			return CategoryInvalidRequest
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}
	if errors.Is(err, ErrEmptyResponse) {
		return CategoryAPI
	}
	return CategoryGeneral
}

// Retryable reports whether another attempt can succeed. Credentials and
// malformed requests fail the same way every time.
func (c Category) Retryable() bool {
	return c != CategoryAuth && c != CategoryInvalidRequest
}

// UserMessage returns the Finnish message for err's category.
func UserMessage(err error) string {
	return MessageFor(Classify(err))
}

// MessageFor returns the Finnish message for a category.
func MessageFor(c Category) string {
	if msg, ok := userMessages[c]; ok {
		return msg
	}
	return userMessages[CategoryGeneral]
}
