package analysis

import (
	"github.com/ternarybob/marketlens/internal/models"
)

type schemaMap = map[string]interface{}

func stringProp(description string) schemaMap {
	return schemaMap{"type": "string", "description": description}
}

func stringArray(description string) schemaMap {
	return schemaMap{"type": "array", "description": description, "items": schemaMap{"type": "string"}}
}

func objectArray(description string, properties schemaMap, required []string) schemaMap {
	return schemaMap{
		"type":        "array",
		"description": description,
		"items": schemaMap{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

var baseFields = []string{"title", "summary", "keyInsights", "recommendations", "competitorAnalysis", "trends"}

// ReplySchema is the JSON schema sent to the provider for a variant. Every
// field is required so the model fills the whole report.
func ReplySchema(variant models.AnalysisVariant) schemaMap {
	return replySchema(variant, true)
}

// validationSchema is what a reply is checked against: field types are
// enforced but only the title must be present. Missing arrays are
// normalized to empty after parsing.
func validationSchema(variant models.AnalysisVariant) schemaMap {
	return replySchema(variant, false)
}

func replySchema(variant models.AnalysisVariant, strict bool) schemaMap {
	properties := schemaMap{
		"title":              stringProp("Report title"),
		"summary":            stringProp("Executive summary"),
		"keyInsights":        stringArray("Key insights drawn from the sources"),
		"recommendations":    stringArray("Strategic recommendations"),
		"competitorAnalysis": stringProp("Competitor landscape and moves"),
		"trends":             stringArray("Predicted future trends"),
	}
	required := append([]string{}, baseFields...)

	switch variant {
	case models.VariantEnergy:
		eventRequired := []string{"event", "riskLevel"}
		priceRequired := []string{"product"}
		if strict {
			eventRequired = []string{"event", "region", "impact", "riskLevel"}
			priceRequired = []string{"product", "price", "unit", "change", "outlook"}
		}
		properties["geopoliticalEvents"] = objectArray("Geopolitical events affecting the market", schemaMap{
			"event":     stringProp("What happened"),
			"region":    stringProp("Where it happened"),
			"impact":    stringProp("Effect on supply, demand or prices"),
			"riskLevel": schemaMap{"type": "string", "enum": []interface{}{"low", "medium", "high"}},
		}, eventRequired)
		properties["priceTable"] = objectArray("Prices quoted in the sources", schemaMap{
			"product": stringProp("Product or benchmark"),
			"price":   stringProp("Quoted price"),
			"unit":    stringProp("Price unit"),
			"change":  stringProp("Change versus previous period"),
			"outlook": stringProp("Short-term outlook"),
		}, priceRequired)
		required = append(required, "geopoliticalEvents", "priceTable")

	case models.VariantCustomer:
		strategyRequired := []string{"name"}
		if strict {
			strategyRequired = []string{"name", "strategy", "opportunity"}
		}
		properties["customerStrategies"] = objectArray("One entry per customer profile", schemaMap{
			"name":        stringProp("Customer name exactly as given"),
			"strategy":    stringProp("Recommended strategy"),
			"opportunity": stringProp("Business opportunity"),
		}, strategyRequired)
		required = append(required, "customerStrategies")
	}

	if !strict {
		required = []string{"title"}
	}

	return schemaMap{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
