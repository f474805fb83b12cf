/*
handlers.go - HTTP API handlers for the deal calculation engine

PURPOSE:
  Exposes the tax and finance engines via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Tax:
    POST   /api/tax/calculate-sales-tax      Itemized sales tax
    POST   /api/tax/calculate-deal-taxes     Full-deal taxes and fees
    GET    /api/tax/jurisdiction/{postalCode} Resolve rates and rules
    GET    /api/tax/audit/{dealId}           Calculation history

  Finance:
    POST   /api/finance/payment              Level finance payment
    POST   /api/finance/lease                Lease payment
    POST   /api/finance/amortization         Amortization schedule

  Admin:
    POST   /api/admin/rules/reload           Load a new rule table
    GET    /api/admin/rules                  List stored rule tables

REQUEST FLOW:
  1. Parse HTTP request (string decimals only)
  2. Resolve jurisdiction through the rate cache
  3. Call domain logic (tax, finance)
  4. Re-derive invariants via the audit validator
  5. Persist the audit record (only when all error-severity checks pass)
  6. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed decimals, invalid input
  - 404: Unknown postal code, unknown deal
  - 422: A recomputed invariant failed; the result is NOT persisted
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are
  public. Front this service with the platform gateway in production.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/deal-engine/audit"
	"github.com/warp/deal-engine/factory"
	"github.com/warp/deal-engine/finance"
	"github.com/warp/deal-engine/jurisdiction"
	"github.com/warp/deal-engine/money"
	"github.com/warp/deal-engine/store/sqlite"
	"github.com/warp/deal-engine/tax"
)

// EngineVersion is pinned into every audit record so a historical
// calculation can be replayed against the exact engine that produced it.
const EngineVersion = "1.0.0"

const defaultActor = "api"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	// Resolver is the read-through rate cache in front of Table.
	Resolver *jurisdiction.RateCache

	// Table is the authoritative in-memory rule table; rule reloads
	// write here and invalidate the cache.
	Table *jurisdiction.TableResolver

	Log audit.Log

	// Store persists rule-table snapshots for replay. May be nil in
	// tests that only exercise calculations.
	Store *sqlite.Store

	RulesFactory *factory.RulesFactory
}

// NewHandler creates a handler wired to the given table, cache, audit
// log, and store.
func NewHandler(table *jurisdiction.TableResolver, cache *jurisdiction.RateCache, log audit.Log, store *sqlite.Store) *Handler {
	return &Handler{
		Resolver:     cache,
		Table:        table,
		Log:          log,
		Store:        store,
		RulesFactory: factory.NewRulesFactory(),
	}
}

// =============================================================================
// TAX HANDLERS
// =============================================================================

// CalculateSalesTax computes the itemized sales tax for a deal.
func (h *Handler) CalculateSalesTax(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PostalCode == "" {
		writeError(w, http.StatusBadRequest, "postal_code is required", nil)
		return
	}

	lookup, err := h.Resolver.Resolve(r.Context(), req.PostalCode)
	if err != nil {
		writeDomainError(w, "Failed to resolve jurisdiction", err)
		return
	}

	result, err := tax.Calculate(toTaxInput(req), lookup)
	if err != nil {
		writeDomainError(w, "Calculation failed", err)
		return
	}

	report := audit.ValidateTaxCalculation(result, lookup, time.Now().UTC())
	resp := toTaxResponse(result, report)

	// A failed error-severity check means the figure cannot be trusted:
	// return it with the failing checks and persist nothing.
	if report.Err() != nil {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if req.DealID != "" {
		if err := h.appendAudit(r, req, &resp, &resp); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to record audit entry", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CalculateDealTaxes computes the full-deal taxes and fees.
func (h *Handler) CalculateDealTaxes(w http.ResponseWriter, r *http.Request) {
	var req TaxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.PostalCode == "" {
		writeError(w, http.StatusBadRequest, "postal_code is required", nil)
		return
	}

	lookup, err := h.Resolver.Resolve(r.Context(), req.PostalCode)
	if err != nil {
		writeDomainError(w, "Failed to resolve jurisdiction", err)
		return
	}

	full, err := tax.CalculateDeal(toTaxInput(req), lookup)
	if err != nil {
		writeDomainError(w, "Calculation failed", err)
		return
	}

	report := audit.ValidateTaxCalculation(&full.Result, lookup, time.Now().UTC())
	resp := DealTaxResponse{
		TaxResponse:       toTaxResponse(&full.Result, report),
		TotalTaxable:      full.TotalTaxable,
		TotalNonTaxable:   full.TotalNonTaxable,
		TotalTaxesAndFees: full.TotalTaxesAndFees,
		VehicleTax:        full.VehicleTax,
		FeesTax:           full.FeesTax,
	}

	if report.Err() != nil {
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	if req.DealID != "" {
		if err := h.appendAudit(r, req, &resp.TaxResponse, &resp); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to record audit entry", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// appendAudit snapshots the request and response into the audit log and
// stamps the calculation ID onto the response. snapshot is the full
// response value to serialize - for deal calculations it carries more
// than the embedded TaxResponse.
func (h *Handler) appendAudit(r *http.Request, req TaxRequest, resp *TaxResponse, snapshot any) error {
	rec, err := h.newAuditRecord(req, resp.RulesVersion)
	if err != nil {
		return err
	}
	resp.CalculationID = rec.CalculationID
	rec.OutputsSnapshot = mustMarshal(snapshot)
	return h.Log.Append(r.Context(), rec)
}

func (h *Handler) newAuditRecord(req TaxRequest, rulesVersion string) (audit.Record, error) {
	inputs, err := json.Marshal(req)
	if err != nil {
		return audit.Record{}, err
	}
	actor := req.CalculatedBy
	if actor == "" {
		actor = defaultActor
	}
	return audit.NewRecord(req.DealID, actor, EngineVersion, rulesVersion, inputs, nil), nil
}

// GetJurisdiction resolves a postal code to its rates and rules.
func (h *Handler) GetJurisdiction(w http.ResponseWriter, r *http.Request) {
	postalCode := chi.URLParam(r, "postalCode")

	lookup, err := h.Resolver.Resolve(r.Context(), postalCode)
	if err != nil {
		writeDomainError(w, "Failed to resolve jurisdiction", err)
		return
	}

	writeJSON(w, http.StatusOK, toJurisdictionResponse(lookup))
}

// GetAuditHistory returns the ordered calculation history for a deal.
func (h *Handler) GetAuditHistory(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "dealId")

	records, err := h.Log.History(r.Context(), dealID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit history", err)
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "No calculations recorded for deal", nil)
		return
	}

	resp := AuditHistoryResponse{DealID: dealID, Records: make([]AuditRecordDTO, len(records))}
	for i, rec := range records {
		resp.Records[i] = AuditRecordDTO{
			CalculationID: rec.CalculationID,
			DealID:        rec.DealID,
			CalculatedAt:  rec.CalculatedAt.Format(time.RFC3339Nano),
			CalculatedBy:  rec.CalculatedBy,
			EngineVersion: rec.EngineVersion,
			RulesVersion:  rec.RulesVersion,
			Inputs:        rec.InputsSnapshot,
			Outputs:       rec.OutputsSnapshot,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// FINANCE HANDLERS
// =============================================================================

// CalculatePayment computes the level finance payment for a deal.
func (h *Handler) CalculatePayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	apr, err := parseDecimal(req.APR)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid APR", err)
		return
	}

	result, err := finance.CalculatePayment(finance.PaymentInput{
		VehiclePrice:   req.VehiclePrice,
		DownPayment:    req.DownPayment,
		TradeAllowance: req.TradeAllowance,
		TradePayoff:    req.TradePayoff,
		APR:            apr,
		TermMonths:     req.TermMonths,
		TotalTax:       req.TotalTax,
		TotalFees:      req.TotalFees,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Payment calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, PaymentResponse{
		MonthlyPayment: result.MonthlyPayment,
		AmountFinanced: result.AmountFinanced,
		TradeEquity:    result.TradeEquity,
		TotalCost:      result.TotalCost,
		TotalInterest:  result.TotalInterest,
	})
}

// CalculateLease computes the level lease payment for a deal.
func (h *Handler) CalculateLease(w http.ResponseWriter, r *http.Request) {
	var req LeaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mf, err := parseDecimal(req.MoneyFactor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid money factor", err)
		return
	}

	result, err := finance.CalculateLease(finance.LeaseInput{
		VehiclePrice:  req.VehiclePrice,
		DownPayment:   req.DownPayment,
		TradeEquity:   req.TradeEquity,
		MoneyFactor:   mf,
		TermMonths:    req.TermMonths,
		ResidualValue: req.ResidualValue,
		TotalTax:      req.TotalTax,
		TotalFees:     req.TotalFees,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Lease calculation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, LeaseResponse{
		CapitalizedCost: result.CapitalizedCost,
		Depreciation:    result.Depreciation,
		RentCharge:      result.RentCharge,
		MonthlyPayment:  result.MonthlyPayment,
		APREquivalent:   finance.MoneyFactorToAPR(mf).StringFixed(2),
	})
}

// GenerateAmortization expands a financed amount into its full schedule.
func (h *Handler) GenerateAmortization(w http.ResponseWriter, r *http.Request) {
	var req AmortizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	apr, err := parseDecimal(req.APR)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid APR", err)
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date, expected YYYY-MM-DD", err)
		return
	}

	entries, err := finance.Schedule(req.Principal, apr, req.TermMonths, startDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Schedule generation failed", err)
		return
	}

	resp := AmortizationResponse{Entries: make([]AmortizationEntryDTO, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = AmortizationEntryDTO{
			PaymentNumber:    e.PaymentNumber,
			PaymentDate:      e.PaymentDate.Format("2006-01-02"),
			PaymentAmount:    e.PaymentAmount,
			Principal:        e.Principal,
			Interest:         e.Interest,
			RemainingBalance: e.RemainingBalance,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ReloadRules loads a new rule table: the entries replace the in-memory
// table, cached lookups are invalidated, and the snapshot is persisted
// for replay.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	var table factory.RuleTableJSON
	if err := json.NewDecoder(r.Body).Decode(&table); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule table JSON", err)
		return
	}

	lookups, err := h.RulesFactory.FromJSON(table)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule table", err)
		return
	}

	for _, l := range lookups {
		if err := h.Table.Put(l); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid rule table entry", err)
			return
		}
		h.Resolver.Invalidate(l.Jurisdiction.PostalCode)
	}

	if h.Store != nil {
		raw, err := json.Marshal(table)
		if err == nil {
			err = h.Store.SaveRuleTable(r.Context(), table.RulesVersion, string(raw))
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to persist rule table", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, ReloadRulesResponse{
		RulesVersion:  table.RulesVersion,
		Jurisdictions: len(lookups),
	})
}

// ListRuleTables returns the stored rule-table snapshots, newest first.
func (h *Handler) ListRuleTables(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusOK, []RuleTableInfoDTO{})
		return
	}

	records, err := h.Store.ListRuleTables(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rule tables", err)
		return
	}

	dtos := make([]RuleTableInfoDTO, len(records))
	for i, rec := range records {
		dtos[i] = RuleTableInfoDTO{
			RulesVersion: rec.RulesVersion,
			LoadedAt:     rec.LoadedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toTaxInput(req TaxRequest) tax.Input {
	return tax.Input{
		VehiclePrice:       req.VehiclePrice,
		TradeInValue:       req.TradeInValue,
		RebateManufacturer: req.RebateManufacturer,
		RebateDealer:       req.RebateDealer,
		DocFee:             req.DocFee,
		OtherFees:          toLineItems(req.OtherFees),
		Products:           toLineItems(req.Products),
		Accessories:        toLineItems(req.Accessories),
		LuxuryThreshold:    req.LuxuryThreshold,
		LuxuryRate:         req.LuxuryRate,
		EVFee:              req.EVFee,
		EVIncentive:        req.EVIncentive,
	}
}

func toLineItems(dtos []LineItemDTO) []tax.LineItem {
	if len(dtos) == 0 {
		return nil
	}
	items := make([]tax.LineItem, len(dtos))
	for i, d := range dtos {
		items[i] = tax.LineItem{Code: d.Code, Name: d.Name, Amount: d.Amount, Taxable: d.Taxable}
	}
	return items
}

func toTaxResponse(result *tax.Result, report audit.Report) TaxResponse {
	resp := TaxResponse{
		RulesVersion: result.RulesVersion,
		Jurisdiction: JurisdictionDTO{
			PostalCode:      result.Jurisdiction.PostalCode,
			State:           result.Jurisdiction.State,
			County:          result.Jurisdiction.County,
			City:            result.Jurisdiction.City,
			SpecialDistrict: result.Jurisdiction.SpecialDistrict,
		},
		TaxableAmount:    result.TaxableAmount,
		Breakdown:        make([]BreakdownLineDTO, len(result.Breakdown)),
		StateTax:         result.StateTax.Round2(),
		LocalTax:         result.LocalTax.Round2(),
		LuxuryTax:        result.LuxuryTax.Round2(),
		TotalTax:         result.TotalTax.Round2(),
		TotalFees:        result.TotalFees,
		TotalTaxAndFees:  result.TotalTaxAndFees.Round2(),
		EffectiveTaxRate: result.EffectiveTaxRate,
		TaxCapApplied:    result.TaxCapApplied,
		Warnings:         result.Warnings,
		Notes:            result.Notes,
		Validation:       toValidationReport(report),
	}
	for i, line := range result.Breakdown {
		resp.Breakdown[i] = BreakdownLineDTO{
			Code:   line.Code,
			Label:  line.Label,
			Amount: line.Amount,
			Rate:   line.Rate,
		}
	}
	return resp
}

func toValidationReport(report audit.Report) ValidationReportDTO {
	dto := ValidationReportDTO{
		AllChecksPass: report.AllChecksPass,
		Checks:        make([]ValidationCheckDTO, len(report.Checks)),
	}
	for i, c := range report.Checks {
		dto.Checks[i] = ValidationCheckDTO{
			Name:     c.Name,
			Passed:   c.Passed,
			Severity: string(c.Severity),
			Detail:   c.Detail,
		}
	}
	return dto
}

func toJurisdictionResponse(lookup jurisdiction.Lookup) JurisdictionResponse {
	resp := JurisdictionResponse{
		Jurisdiction: JurisdictionDTO{
			PostalCode:      lookup.Jurisdiction.PostalCode,
			State:           lookup.Jurisdiction.State,
			County:          lookup.Jurisdiction.County,
			City:            lookup.Jurisdiction.City,
			SpecialDistrict: lookup.Jurisdiction.SpecialDistrict,
		},
		Rates: RateSetDTO{
			State:           lookup.Rates.StateRate,
			County:          lookup.Rates.CountyRate,
			City:            lookup.Rates.CityRate,
			SpecialDistrict: lookup.Rates.SpecialDistrictRate,
			Total:           lookup.Rates.TotalRate(),
		},
		Rules: RuleSetDTO{
			RulesVersion:              lookup.Rules.RulesVersion,
			TradeInCreditKind:         string(lookup.Rules.TradeInCredit.Kind),
			ManufacturerRebateTaxable: lookup.Rules.ManufacturerRebateTaxable,
			TaxCap:                    lookup.Rules.TaxCap,
			EffectiveFrom:             lookup.Rules.EffectiveFrom.Format("2006-01-02"),
		},
	}
	if lookup.Rules.TradeInCredit.Kind == jurisdiction.TradeInCreditCapped {
		cap := lookup.Rules.TradeInCredit.CapAmount
		resp.Rules.TradeInCreditCap = &cap
	}
	if lookup.Rules.EffectiveTo != nil {
		to := lookup.Rules.EffectiveTo.Format("2006-01-02")
		resp.Rules.EffectiveTo = &to
	}
	return resp
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &money.MalformedDecimalError{Input: s}
	}
	return d, nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// DTOs contain only marshalable fields; a failure here is a
		// programming error.
		panic(err)
	}
	return data
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, jurisdiction.ErrJurisdictionNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case money.IsInputError(err),
		errors.Is(err, tax.ErrIncompleteLuxuryConfig),
		errors.Is(err, tax.ErrNegativeBase),
		errors.Is(err, money.ErrDivisionByZero):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
