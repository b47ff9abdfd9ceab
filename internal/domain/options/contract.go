package options

import (
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"minerva/pkg/errors"
)

// ContractType is the exchange-listed option side
type ContractType string

const (
	ContractCall ContractType = "call"
	ContractPut  ContractType = "put"
)

// IsCall reports whether the contract type is a call, case-insensitively.
// Upstream payloads are not consistent about casing.
func (t ContractType) IsCall() bool {
	return strings.EqualFold(string(t), string(ContractCall))
}

// IsPut reports whether the contract type is a put
func (t ContractType) IsPut() bool {
	return strings.EqualFold(string(t), string(ContractPut))
}

// OptionContract is one exchange-listed option as returned by the upstream
// API. Immutable once fetched. A zero StrikePrice means the upstream record
// carried no strike; such contracts are kept in the snapshot but excluded
// from strike statistics.
type OptionContract struct {
	ContractType      ContractType    `json:"contract_type"`
	StrikePrice       decimal.Decimal `json:"strike_price"`
	ExpirationDate    string          `json:"expiration_date"`
	UnderlyingTicker  string          `json:"underlying_ticker"`
	ExerciseStyle     string          `json:"exercise_style,omitempty"`
	SharesPerContract int             `json:"shares_per_contract,omitempty"`
	PrimaryExchange   string          `json:"primary_exchange,omitempty"`
}

// HasStrike reports whether the contract carries a usable strike price
func (c OptionContract) HasStrike() bool {
	return c.StrikePrice.IsPositive()
}

// ContractList stores the ordered contract sequence as a JSONB column
type ContractList []OptionContract

// Value implements driver.Valuer for JSONB storage
func (l ContractList) Value() (driver.Value, error) {
	if l == nil {
		l = ContractList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *ContractList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.Wrapf(errors.ErrInternal, "cannot scan %T into ContractList", src)
	}
}
