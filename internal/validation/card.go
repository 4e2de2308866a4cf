// Package validation содержит функции проверки входных данных.
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// Visa (13 или 16 цифр) и MasterCard (51-55, 16 цифр).
	cardPattern   = regexp.MustCompile(`^(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14})$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/?([0-9]{2})$`)
	cvvPattern    = regexp.MustCompile(`^[0-9]{3}$`)
)

// PaymentDetails содержит реквизиты карты, введённые при оплате.
// Реквизиты только проверяются по формату и нигде не сохраняются.
type PaymentDetails struct {
	CardNumber     string `json:"cardNumber"`
	ExpirationDate string `json:"expirationDate"`
	CVV            string `json:"cvv"`
}

// Validate возвращает описание первой найденной ошибки или пустую строку.
func (p PaymentDetails) Validate() string {
	number := strings.ReplaceAll(p.CardNumber, " ", "")
	switch {
	case !IsValidCardNumber(number):
		return "please provide a valid Visa or MasterCard number"
	case !expiryPattern.MatchString(p.ExpirationDate):
		return "please provide a valid expiration date (MM/YY)"
	case !cvvPattern.MatchString(p.CVV):
		return "CVV must be 3 digits"
	}
	return ""
}

// IsValidCardNumber проверяет номер карты Visa или MasterCard по шаблону и алгоритму Луна.
func IsValidCardNumber(number string) bool {
	return cardPattern.MatchString(number) && luhn(number)
}

func luhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false

	for i := len(number) - 1; i >= 0; i-- {
		ch := rune(number[i])
		if !unicode.IsDigit(ch) {
			return false
		}
		digit := int(ch - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

// ShippingAddress возвращает описание первой ошибки адреса доставки или пустую строку.
func ShippingAddress(a model.ShippingAddress) string {
	switch {
	case strings.TrimSpace(a.Address) == "":
		return "shipping address is required"
	case strings.TrimSpace(a.City) == "":
		return "shipping city is required"
	case strings.TrimSpace(a.PostalCode) == "":
		return "shipping postal code is required"
	case strings.TrimSpace(a.Country) == "":
		return "shipping country is required"
	}
	return ""
}
