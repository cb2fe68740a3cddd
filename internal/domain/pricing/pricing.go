package pricing

import (
	"errors"
	"math/big"
	"strings"

	"rentwheels/internal/domain/cars"
	"rentwheels/internal/domain/shared/money"
)

var (
	ErrUnknownTier     = errors.New("pricing: unknown insurance tier")
	ErrInvalidDuration = errors.New("pricing: duration must be positive")
)

type InsuranceTier string

const (
	TierBasic         InsuranceTier = "basic"
	TierComprehensive InsuranceTier = "comprehensive"
	TierPremium       InsuranceTier = "premium"
)

const (
	TaxPercent = 10
	// DayFee applies when billing includes a whole-day or weekly component.
	DayFee = 2500
	// HourlyFee applies to purely hourly rentals.
	HourlyFee = 1000
)

// ParseInsuranceTier maps user input to a tier; empty input selects basic cover.
func ParseInsuranceTier(raw string) (InsuranceTier, error) {
	switch t := InsuranceTier(strings.ToLower(strings.TrimSpace(raw))); t {
	case "":
		return TierBasic, nil
	case TierBasic, TierComprehensive, TierPremium:
		return t, nil
	}
	return "", ErrUnknownTier
}

// RatePercent is the share of the base price charged for cover.
func (t InsuranceTier) RatePercent() int64 {
	switch t {
	case TierComprehensive:
		return 10
	case TierPremium:
		return 15
	default:
		return 5
	}
}

// Duration is the ceiling-rounded length of a rental.
type Duration struct {
	Hours int `json:"hours"`
	Days  int `json:"days"`
}

// Units records how the base price was billed.
type Units struct {
	Weeks int `json:"weeks,omitempty"`
	Days  int `json:"days,omitempty"`
	Hours int `json:"hours,omitempty"`
}

type Breakdown struct {
	Base      money.Money
	Insurance money.Money
	Taxes     money.Money
	Fees      money.Money
	Discount  money.Money
	Total     money.Money
	Tier      InsuranceTier
	Units     Units
}

// Calculate prices a rental. Every monetary field is rounded half-up to cents
// from exact unrounded inputs, never from another rounded field.
func Calculate(rates cars.RateCard, d Duration, tier InsuranceTier) (Breakdown, error) {
	if err := rates.Validate(); err != nil {
		return Breakdown{}, err
	}
	if d.Hours <= 0 || d.Days <= 0 {
		return Breakdown{}, ErrInvalidDuration
	}
	if tier == "" {
		tier = TierBasic
	}
	if _, err := ParseInsuranceTier(string(tier)); err != nil {
		return Breakdown{}, err
	}
	currency := strings.ToUpper(rates.Currency)

	base, units := basePrice(rates, d)
	fee := int64(HourlyFee)
	if units.Weeks > 0 || units.Days > 0 {
		fee = DayFee
	}

	baseRat := new(big.Rat).SetInt64(base)
	insurance := new(big.Rat).Mul(baseRat, big.NewRat(tier.RatePercent(), 100))
	taxable := new(big.Rat).Add(baseRat, insurance)
	taxes := new(big.Rat).Mul(taxable, big.NewRat(TaxPercent, 100))
	total := new(big.Rat).Add(taxable, taxes)
	total.Add(total, new(big.Rat).SetInt64(fee))

	return Breakdown{
		Base:      money.Money{Amount: base, Currency: currency},
		Insurance: money.Money{Amount: roundHalfUp(insurance), Currency: currency},
		Taxes:     money.Money{Amount: roundHalfUp(taxes), Currency: currency},
		Fees:      money.Money{Amount: fee, Currency: currency},
		Discount:  money.Zero(currency),
		Total:     money.Money{Amount: roundHalfUp(total), Currency: currency},
		Tier:      tier,
		Units:     units,
	}, nil
}

// basePrice picks the billing tier. Weekly billing keys off the ceiling day count,
// day billing off whole elapsed days so a few hours never cost a full day.
func basePrice(rates cars.RateCard, d Duration) (int64, Units) {
	if d.Days >= 7 {
		weekly := rates.Weekly
		if weekly <= 0 {
			weekly = 7 * rates.Daily
		}
		weeks := (d.Days + 6) / 7
		return int64(weeks) * weekly, Units{Weeks: weeks}
	}
	wholeDays := d.Hours / 24
	if wholeDays >= 1 {
		rem := d.Hours % 24
		return int64(wholeDays)*rates.Daily + int64(rem)*rates.Hourly, Units{Days: wholeDays, Hours: rem}
	}
	return int64(d.Hours) * rates.Hourly, Units{Hours: d.Hours}
}

// roundHalfUp rounds a non-negative amount of minor units to an integer.
func roundHalfUp(r *big.Rat) int64 {
	num := new(big.Int).Mul(r.Num(), big.NewInt(2))
	num.Add(num, r.Denom())
	den := new(big.Int).Mul(r.Denom(), big.NewInt(2))
	return new(big.Int).Quo(num, den).Int64()
}
