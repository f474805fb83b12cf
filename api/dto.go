/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON wire shapes. Every monetary amount and rate crosses
  the boundary as a canonical decimal string: money.Money and money.Rate
  marshal to strings and reject bare JSON numbers, so a float64 can
  never sneak into a monetary field.

CONVENTIONS:
  - Money: 2 decimal places ("1812.50")
  - Rates: 4+ decimal places ("0.0725")
  - Dates: "2006-01-02"
  - Timestamps: RFC3339

SEE ALSO:
  - handlers.go: Where these are parsed and filled
  - ../money/money.go: The string-only JSON codecs
*/
package api

import (
	"encoding/json"

	"github.com/warp/deal-engine/money"
)

// =============================================================================
// SHARED DTOS
// =============================================================================

// LineItemDTO is a fee, product, or accessory on a deal.
type LineItemDTO struct {
	Code    string      `json:"code"`
	Name    string      `json:"name"`
	Amount  money.Money `json:"amount"`
	Taxable bool        `json:"taxable"`
}

// BreakdownLineDTO is one itemized tax component. Rate is omitted for
// flat lines (EV fee/incentive).
type BreakdownLineDTO struct {
	Code   string      `json:"code"`
	Label  string      `json:"label"`
	Amount money.Money `json:"amount"`
	Rate   *money.Rate `json:"rate,omitempty"`
}

// JurisdictionDTO is the resolved jurisdiction identity.
type JurisdictionDTO struct {
	PostalCode      string `json:"postal_code"`
	State           string `json:"state"`
	County          string `json:"county"`
	City            string `json:"city"`
	SpecialDistrict string `json:"special_district,omitempty"`
}

// RateSetDTO carries the layered rates plus the derived total.
type RateSetDTO struct {
	State           money.Rate `json:"state"`
	County          money.Rate `json:"county"`
	City            money.Rate `json:"city"`
	SpecialDistrict money.Rate `json:"special_district"`
	Total           money.Rate `json:"total"`
}

// RuleSetDTO describes the jurisdiction rule variants in effect.
type RuleSetDTO struct {
	RulesVersion              string       `json:"rules_version"`
	TradeInCreditKind         string       `json:"trade_in_credit_kind"`
	TradeInCreditCap          *money.Money `json:"trade_in_credit_cap,omitempty"`
	ManufacturerRebateTaxable bool         `json:"manufacturer_rebate_taxable"`
	TaxCap                    *money.Money `json:"tax_cap,omitempty"`
	EffectiveFrom             string       `json:"effective_from"`
	EffectiveTo               *string      `json:"effective_to,omitempty"`
}

// ValidationCheckDTO is one re-derived invariant outcome.
type ValidationCheckDTO struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// ValidationReportDTO summarizes the audit validator's findings.
type ValidationReportDTO struct {
	AllChecksPass bool                 `json:"all_checks_pass"`
	Checks        []ValidationCheckDTO `json:"checks"`
}

// =============================================================================
// TAX CALCULATION
// =============================================================================

// TaxRequest is the body of POST /api/tax/calculate-sales-tax and
// POST /api/tax/calculate-deal-taxes. DealID and CalculatedBy feed the
// audit record; a calculation without a DealID is not audited.
type TaxRequest struct {
	DealID       string `json:"deal_id,omitempty"`
	CalculatedBy string `json:"calculated_by,omitempty"`

	PostalCode string `json:"postal_code"`

	VehiclePrice       money.Money `json:"vehicle_price"`
	TradeInValue       money.Money `json:"trade_in_value,omitempty"`
	RebateManufacturer money.Money `json:"rebate_manufacturer,omitempty"`
	RebateDealer       money.Money `json:"rebate_dealer,omitempty"`
	DocFee             money.Money `json:"doc_fee,omitempty"`

	OtherFees   []LineItemDTO `json:"other_fees,omitempty"`
	Products    []LineItemDTO `json:"products,omitempty"`
	Accessories []LineItemDTO `json:"accessories,omitempty"`

	LuxuryThreshold *money.Money `json:"luxury_threshold,omitempty"`
	LuxuryRate      *money.Rate  `json:"luxury_rate,omitempty"`

	EVFee       *money.Money `json:"ev_fee,omitempty"`
	EVIncentive *money.Money `json:"ev_incentive,omitempty"`
}

// TaxResponse is the itemized calculation result.
type TaxResponse struct {
	CalculationID string `json:"calculation_id,omitempty"`
	RulesVersion  string `json:"rules_version"`

	Jurisdiction JurisdictionDTO `json:"jurisdiction"`

	TaxableAmount money.Money        `json:"taxable_amount"`
	Breakdown     []BreakdownLineDTO `json:"breakdown"`

	StateTax  money.Money `json:"state_tax"`
	LocalTax  money.Money `json:"local_tax"`
	LuxuryTax money.Money `json:"luxury_tax"`
	TotalTax  money.Money `json:"total_tax"`

	TotalFees        money.Money `json:"total_fees"`
	TotalTaxAndFees  money.Money `json:"total_tax_and_fees"`
	EffectiveTaxRate money.Rate  `json:"effective_tax_rate"`

	TaxCapApplied bool `json:"tax_cap_applied"`

	Warnings []string `json:"warnings,omitempty"`
	Notes    []string `json:"notes,omitempty"`

	Validation ValidationReportDTO `json:"validation"`
}

// DealTaxResponse extends TaxResponse with whole-deal aggregates.
type DealTaxResponse struct {
	TaxResponse

	TotalTaxable      money.Money `json:"total_taxable"`
	TotalNonTaxable   money.Money `json:"total_non_taxable"`
	TotalTaxesAndFees money.Money `json:"total_taxes_and_fees"`
	VehicleTax        money.Money `json:"vehicle_tax"`
	FeesTax           money.Money `json:"fees_tax"`
}

// =============================================================================
// JURISDICTION LOOKUP
// =============================================================================

// JurisdictionResponse is the body of GET /api/tax/jurisdiction/{postalCode}.
type JurisdictionResponse struct {
	Jurisdiction JurisdictionDTO `json:"jurisdiction"`
	Rates        RateSetDTO      `json:"rates"`
	Rules        RuleSetDTO      `json:"rules"`
}

// =============================================================================
// AUDIT HISTORY
// =============================================================================

// AuditRecordDTO is one immutable calculation snapshot.
type AuditRecordDTO struct {
	CalculationID string          `json:"calculation_id"`
	DealID        string          `json:"deal_id"`
	CalculatedAt  string          `json:"calculated_at"`
	CalculatedBy  string          `json:"calculated_by"`
	EngineVersion string          `json:"engine_version"`
	RulesVersion  string          `json:"rules_version"`
	Inputs        json.RawMessage `json:"inputs"`
	Outputs       json.RawMessage `json:"outputs"`
}

// AuditHistoryResponse is the body of GET /api/tax/audit/{dealId}.
type AuditHistoryResponse struct {
	DealID  string           `json:"deal_id"`
	Records []AuditRecordDTO `json:"records"`
}

// =============================================================================
// FINANCE
// =============================================================================

// PaymentRequest is the body of POST /api/finance/payment. APR is a
// percent figure as a decimal string ("5.9" means 5.9%).
type PaymentRequest struct {
	VehiclePrice   money.Money `json:"vehicle_price"`
	DownPayment    money.Money `json:"down_payment,omitempty"`
	TradeAllowance money.Money `json:"trade_allowance,omitempty"`
	TradePayoff    money.Money `json:"trade_payoff,omitempty"`
	APR            string      `json:"apr"`
	TermMonths     int         `json:"term_months"`
	TotalTax       money.Money `json:"total_tax,omitempty"`
	TotalFees      money.Money `json:"total_fees,omitempty"`
}

// PaymentResponse is the computed financing outcome.
type PaymentResponse struct {
	MonthlyPayment money.Money `json:"monthly_payment"`
	AmountFinanced money.Money `json:"amount_financed"`
	TradeEquity    money.Money `json:"trade_equity"`
	TotalCost      money.Money `json:"total_cost"`
	TotalInterest  money.Money `json:"total_interest"`
}

// LeaseRequest is the body of POST /api/finance/lease. MoneyFactor is
// the lease rate as a small decimal string ("0.00125").
type LeaseRequest struct {
	VehiclePrice  money.Money `json:"vehicle_price"`
	DownPayment   money.Money `json:"down_payment,omitempty"`
	TradeEquity   money.Money `json:"trade_equity,omitempty"`
	MoneyFactor   string      `json:"money_factor"`
	TermMonths    int         `json:"term_months"`
	ResidualValue money.Money `json:"residual_value"`
	TotalTax      money.Money `json:"total_tax,omitempty"`
	TotalFees     money.Money `json:"total_fees,omitempty"`
}

// LeaseResponse is the computed lease outcome. APREquivalent is the
// money factor times 2400, display only.
type LeaseResponse struct {
	CapitalizedCost money.Money `json:"capitalized_cost"`
	Depreciation    money.Money `json:"depreciation"`
	RentCharge      money.Money `json:"rent_charge"`
	MonthlyPayment  money.Money `json:"monthly_payment"`
	APREquivalent   string      `json:"apr_equivalent"`
}

// AmortizationRequest is the body of POST /api/finance/amortization.
type AmortizationRequest struct {
	Principal  money.Money `json:"principal"`
	APR        string      `json:"apr"`
	TermMonths int         `json:"term_months"`
	StartDate  string      `json:"start_date"` // 2006-01-02
}

// AmortizationEntryDTO is one period of the schedule.
type AmortizationEntryDTO struct {
	PaymentNumber    int         `json:"payment_number"`
	PaymentDate      string      `json:"payment_date"`
	PaymentAmount    money.Money `json:"payment_amount"`
	Principal        money.Money `json:"principal"`
	Interest         money.Money `json:"interest"`
	RemainingBalance money.Money `json:"remaining_balance"`
}

// AmortizationResponse is the full schedule.
type AmortizationResponse struct {
	Entries []AmortizationEntryDTO `json:"entries"`
}

// =============================================================================
// ADMIN
// =============================================================================

// RuleTableInfoDTO describes one stored rule-table snapshot.
type RuleTableInfoDTO struct {
	RulesVersion string `json:"rules_version"`
	LoadedAt     string `json:"loaded_at"`
}

// ReloadRulesResponse confirms a rule-table reload.
type ReloadRulesResponse struct {
	RulesVersion  string `json:"rules_version"`
	Jurisdictions int    `json:"jurisdictions"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
