package polygon

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"minerva/internal/domain/options"
	"minerva/pkg/errors"
)

// Upstream contract records come in two shapes: flat fields on the record
// itself, or the same fields nested under "details". Normalization happens
// here once; nothing downstream branches on payload shape again.

type contractFields struct {
	ContractType      string          `json:"contract_type"`
	StrikePrice       decimal.Decimal `json:"strike_price"`
	ExpirationDate    string          `json:"expiration_date"`
	UnderlyingTicker  string          `json:"underlying_ticker"`
	ExerciseStyle     string          `json:"exercise_style"`
	SharesPerContract int             `json:"shares_per_contract"`
	PrimaryExchange   string          `json:"primary_exchange"`
}

type contractPayload struct {
	contractFields
	Details *contractFields `json:"details"`
}

type contractsEnvelope struct {
	Results []contractPayload `json:"results"`
}

// normalize maps either upstream shape into the fixed domain contract.
// Missing strike or contract type is permitted: the contract still counts
// toward the snapshot total, it just stays out of the typed counts and
// strike statistics.
func normalize(p contractPayload) options.OptionContract {
	f := p.contractFields
	if p.Details != nil {
		if f.ContractType == "" {
			f.ContractType = p.Details.ContractType
		}
		if !f.StrikePrice.IsPositive() {
			f.StrikePrice = p.Details.StrikePrice
		}
		if f.ExpirationDate == "" {
			f.ExpirationDate = p.Details.ExpirationDate
		}
		if f.UnderlyingTicker == "" {
			f.UnderlyingTicker = p.Details.UnderlyingTicker
		}
		if f.ExerciseStyle == "" {
			f.ExerciseStyle = p.Details.ExerciseStyle
		}
		if f.SharesPerContract == 0 {
			f.SharesPerContract = p.Details.SharesPerContract
		}
		if f.PrimaryExchange == "" {
			f.PrimaryExchange = p.Details.PrimaryExchange
		}
	}

	return options.OptionContract{
		ContractType:      options.ContractType(f.ContractType),
		StrikePrice:       f.StrikePrice,
		ExpirationDate:    f.ExpirationDate,
		UnderlyingTicker:  f.UnderlyingTicker,
		ExerciseStyle:     f.ExerciseStyle,
		SharesPerContract: f.SharesPerContract,
		PrimaryExchange:   f.PrimaryExchange,
	}
}

// ParseContracts decodes an upstream payload into normalized contracts.
// Accepts both the {"results": [...]} envelope and a bare JSON array, so
// callers that already hold upstream data can store it directly.
func ParseContracts(raw []byte) ([]options.OptionContract, error) {
	var envelope contractsEnvelope
	envErr := json.Unmarshal(raw, &envelope)
	if envErr != nil || envelope.Results == nil {
		var bare []contractPayload
		if err := json.Unmarshal(raw, &bare); err != nil {
			if envErr == nil {
				// valid object without results, e.g. {"count": 0}
				envelope.Results = nil
			} else {
				return nil, errors.Wrapf(errors.ErrInvalidInput, "malformed contracts payload: %v", err)
			}
		} else {
			envelope.Results = bare
		}
	}

	contracts := make([]options.OptionContract, 0, len(envelope.Results))
	for _, p := range envelope.Results {
		contracts = append(contracts, normalize(p))
	}
	return contracts, nil
}
