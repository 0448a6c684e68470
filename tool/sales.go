package tool

import "fmt"

// Plan catalogue used by the sales tools. Static business data; a real
// deployment would back this with the billing system.
type plan struct {
	Monthly  float64
	Yearly   float64
	Features []string
}

var pricingTable = map[string]plan{
	"basic": {
		Monthly:  19.99,
		Yearly:   199.99,
		Features: []string{"Distribución ilimitada", "Análisis básico", "Soporte email"},
	},
	"professional": {
		Monthly:  49.99,
		Yearly:   499.99,
		Features: []string{"Todo de Basic", "Pre-saves", "Análisis avanzado", "Soporte prioritario"},
	},
	"premium": {
		Monthly:  99.99,
		Yearly:   999.99,
		Features: []string{"Todo de Pro", "Marketing tools", "Splits automáticos", "Manager dedicado"},
	},
}

// NewGetPricingTool exposes the plan catalogue to the sales agent.
func NewGetPricingTool() Tool {
	return NewFunctionTool(
		"get_pricing",
		"Consultar precios de servicios de distribución musical",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service_type": map[string]any{
					"type":        "string",
					"enum":        []string{"basic", "professional", "premium", "enterprise"},
					"description": "Tipo de servicio a consultar",
				},
			},
			"required": []string{"service_type"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			serviceType, _ := args["service_type"].(string)
			p, ok := pricingTable[serviceType]
			if !ok {
				// Enterprise and unknown tiers are negotiated, not listed.
				return map[string]any{"service_type": serviceType, "pricing": "custom", "contact_sales": true}, nil
			}
			tc.SetState("plan_interest", serviceType)
			return map[string]any{
				"service_type": serviceType,
				"monthly":      p.Monthly,
				"yearly":       p.Yearly,
				"features":     p.Features,
			}, nil
		},
	)
}

// NewGenerateQuoteTool builds a personalized quote with volume discounts:
// 10% above 10 releases/year, 15% above 20; yearly billing takes a further
// 10% off twelve monthly payments.
func NewGenerateQuoteTool() Tool {
	return NewFunctionTool(
		"generate_quote",
		"Generar cotización personalizada",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"service_type": map[string]any{"type": "string", "description": "Tipo de servicio"},
				"num_releases": map[string]any{"type": "integer", "description": "Número de lanzamientos al año"},
				"artist_name":  map[string]any{"type": "string", "description": "Nombre del artista"},
			},
			"required": []string{"service_type", "num_releases"},
		},
		func(tc *Context, args map[string]any) (any, error) {
			serviceType, _ := args["service_type"].(string)
			releases := asInt(args["num_releases"])
			if releases < 0 {
				return nil, fmt.Errorf("num_releases must be non-negative")
			}

			base := 19.99
			if p, ok := pricingTable[serviceType]; ok {
				base = p.Monthly
			}

			discount := 0.0
			switch {
			case releases > 20:
				discount = 0.15
			case releases > 10:
				discount = 0.10
			}

			monthly := base * (1 - discount)
			quote := map[string]any{
				"service_type":     serviceType,
				"num_releases":     releases,
				"monthly_price":    round2(monthly),
				"yearly_price":     round2(monthly * 12 * 0.9),
				"discount_applied": discount,
			}
			if name, ok := args["artist_name"].(string); ok && name != "" {
				quote["artist_name"] = name
			}
			tc.SetState("last_quote", quote)
			return quote, nil
		},
	)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
