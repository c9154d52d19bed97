package models

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisVariant selects the instruction block and output schema of an analysis run.
type AnalysisVariant string

const (
	VariantMarket   AnalysisVariant = "market"
	VariantEnergy   AnalysisVariant = "energy"
	VariantCustomer AnalysisVariant = "customer"
)

// ParseVariant validates a variant name. Empty input selects the market variant.
func ParseVariant(s string) (AnalysisVariant, error) {
	switch AnalysisVariant(strings.ToLower(strings.TrimSpace(s))) {
	case "", VariantMarket:
		return VariantMarket, nil
	case VariantEnergy:
		return VariantEnergy, nil
	case VariantCustomer:
		return VariantCustomer, nil
	default:
		return "", fmt.Errorf("unknown analysis variant %q", s)
	}
}

// RiskLevel grades a geopolitical event.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// GeopoliticalEvent is an event extracted by the energy variant.
type GeopoliticalEvent struct {
	Event     string    `json:"event" validate:"required"`
	Region    string    `json:"region"`
	Impact    string    `json:"impact"`
	RiskLevel RiskLevel `json:"riskLevel" validate:"required,oneof=low medium high"`
}

// PriceEntry is one row of the energy variant's price table.
type PriceEntry struct {
	Product string `json:"product" validate:"required"`
	Price   string `json:"price"`
	Unit    string `json:"unit"`
	Change  string `json:"change"`
	Outlook string `json:"outlook"`
}

// CustomerStrategy is a recommendation for one selected customer.
type CustomerStrategy struct {
	Name        string `json:"name" validate:"required"`
	Strategy    string `json:"strategy"`
	Opportunity string `json:"opportunity"`
}

// AnalysisResult is the structured reply of an analysis run. Keys follow the
// reply schema so the document can be passed through unchanged.
type AnalysisResult struct {
	Title              string   `json:"title" validate:"required"`
	Summary            string   `json:"summary"`
	KeyInsights        []string `json:"keyInsights"`
	Recommendations    []string `json:"recommendations"`
	CompetitorAnalysis string   `json:"competitorAnalysis"`
	Trends             []string `json:"trends"`

	GeopoliticalEvents []GeopoliticalEvent `json:"geopoliticalEvents,omitempty" validate:"dive"`
	PriceTable         []PriceEntry        `json:"priceTable,omitempty" validate:"dive"`
	CustomerStrategies []CustomerStrategy  `json:"customerStrategies,omitempty" validate:"dive"`
}

// Normalize replaces nil slices with empty ones. Variant slices are only
// materialized for the variant that carries them.
func (r *AnalysisResult) Normalize(variant AnalysisVariant) {
	if r.KeyInsights == nil {
		r.KeyInsights = []string{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	if r.Trends == nil {
		r.Trends = []string{}
	}
	switch variant {
	case VariantEnergy:
		if r.GeopoliticalEvents == nil {
			r.GeopoliticalEvents = []GeopoliticalEvent{}
		}
		if r.PriceTable == nil {
			r.PriceTable = []PriceEntry{}
		}
	case VariantCustomer:
		if r.CustomerStrategies == nil {
			r.CustomerStrategies = []CustomerStrategy{}
		}
	}
}

// AnalysisReport wraps a result with the context it was produced in.
type AnalysisReport struct {
	Result      AnalysisResult  `json:"result"`
	Variant     AnalysisVariant `json:"variant"`
	Model       string          `json:"model"`
	SourceFiles []string        `json:"source_files"`
	Customers   []string        `json:"customers,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}
