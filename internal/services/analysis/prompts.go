package analysis

import (
	"fmt"
	"strings"

	"github.com/ternarybob/marketlens/internal/models"
)

const marketInstructions = `You are a world-class market analyst. Read and deeply analyze every file provided (images, PDF, Word, Excel, PowerPoint, text).
Integrate all of the information into one in-depth market analysis report.

Requirements:
1. Language: professional %[1]s.
2. Format: strict JSON.
3. Structure: title, summary, keyInsights, recommendations, competitorAnalysis, trends.`

const energyInstructions = `

Energy market focus:
- geopoliticalEvents: every geopolitical event in the sources that affects energy supply, demand or prices, with its region, its impact and a riskLevel of low, medium or high.
- priceTable: every price quoted in the sources with product, price, unit, change versus the previous period and a short outlook. Copy figures exactly; do not invent prices.`

const customerInstructions = `

Customer strategy matching:
The customer profiles above describe equipment, capacity, raw material needs, products and gross margin.
- customerStrategies: exactly one entry per customer profile, using the customer name exactly as given, with a concrete strategy and the business opportunity the market situation creates for that customer.`

// Instructions returns the instruction block appended after the file parts
func Instructions(variant models.AnalysisVariant, language string) string {
	if strings.TrimSpace(language) == "" {
		language = "English"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, marketInstructions, language)
	switch variant {
	case models.VariantEnergy:
		sb.WriteString(energyInstructions)
	case models.VariantCustomer:
		sb.WriteString(customerInstructions)
	}
	return sb.String()
}

// CustomerProfiles renders the selected customers as a text block
func CustomerProfiles(customers []models.Customer) string {
	var sb strings.Builder
	sb.WriteString("Customer profiles:\n")
	for i, c := range customers {
		fmt.Fprintf(&sb, "%d. Name: %s\n", i+1, c.Name)
		fmt.Fprintf(&sb, "   Equipment: %s\n", c.Equipment)
		fmt.Fprintf(&sb, "   Capacity: %s\n", c.Capacity)
		fmt.Fprintf(&sb, "   Raw materials: %s\n", c.RawMaterials)
		fmt.Fprintf(&sb, "   Products: %s\n", c.Products)
		fmt.Fprintf(&sb, "   Gross margin: %.1f%%\n", c.GrossMargin)
	}
	return sb.String()
}
