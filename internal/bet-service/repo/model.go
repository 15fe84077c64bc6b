package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Status é o estado de uma aposta. Valores de fio em minúsculas.
type Status string

const (
	StatusPending Status = "pending"
	StatusWin     Status = "win"
	StatusLose    Status = "lose"
)

var ErrUnknownStatus = errors.New("unknown bet status")

// ParseStatus aceita qualquer caixa ("WIN", "win", ...)
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPending, StatusWin, StatusLose:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s Status) Terminal() bool { return s == StatusWin || s == StatusLose }

// Amount é o valor apostado: decimal exato, positivo e com no máximo duas casas.
// Serializa em JSON como número com duas casas fixas (10.50).
type Amount struct {
	decimal.Decimal
}

func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, err
	}
	return Amount{Decimal: d}, nil
}

func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// maxIntDigits acompanha NUMERIC(18,2): o valor precisa ser menor que 1e16
const maxIntDigits = 16

// maxAmountLiteral limita o tamanho do literal aceito no JSON
const maxAmountLiteral = 64

var errAmountTooLong = errors.New("amount literal too long")

// Valid: estritamente positivo, menor que 1e16 e sem precisão além de centavos.
// Só expoente e número de dígitos são consultados antes de qualquer reescala.
func (a Amount) Valid() bool {
	if !a.IsPositive() {
		return false
	}
	exp := int(a.Exponent())
	magnitude := a.NumDigits() + exp // valor em [10^(magnitude-1), 10^magnitude)
	if magnitude > maxIntDigits || magnitude < -1 {
		return false
	}
	if exp >= -2 {
		return true
	}
	return a.Equal(a.Truncate(2))
}

func (a Amount) String() string { return a.StringFixed(2) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.StringFixed(2)), nil
}

// UnmarshalJSON aceita número ou string ("10.5" / 10.5)
func (a *Amount) UnmarshalJSON(b []byte) error {
	if len(b) > maxAmountLiteral {
		return errAmountTooLong
	}
	return a.Decimal.UnmarshalJSON(b)
}

// Bet é o registro do ledger. Só Status muda depois da criação.
type Bet struct {
	ID      int64  `json:"id,string"`
	EventID string `json:"event_id"`
	Amount  Amount `json:"amount"`
	Status  Status `json:"status"`
}
