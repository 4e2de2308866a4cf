package model

import (
	"github.com/shopspring/decimal"
)

// Money хранит денежную сумму в виде десятичного числа с фиксированной точкой.
// В JSON сумма всегда выводится строкой с двумя знаками после запятой.
type Money struct {
	decimal.Decimal
}

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// NewMoney создаёт сумму из целого числа копеек (центов).
func NewMoney(cents int64) Money {
	return Money{decimal.New(cents, -2)}
}

// MoneyFromDecimal оборачивает десятичное значение без округления.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// ParseMoney разбирает строковое представление суммы.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// MustMoney разбирает сумму и паникует при ошибке. Используется в тестах и константах.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Round2 округляет до двух знаков по правилу floor(x*100 + 0.5) / 100.
func Round2(d decimal.Decimal) Money {
	return Money{d.Mul(hundred).Add(half).Floor().Div(hundred)}
}

// String возвращает сумму с ровно двумя знаками после запятой.
func (m Money) String() string {
	return m.StringFixed(2)
}

// Equal сравнивает суммы по значению.
func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// MarshalJSON кодирует сумму строкой вида "12.30".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// UnmarshalJSON принимает сумму как строкой, так и числом.
func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
