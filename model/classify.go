package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angiesanchezm/genai-music/core"
)

// Classification prompts shared by every provider adapter. All customer
// traffic is Spanish, so the prompts are too.
const (
	intentPrompt = `Eres un clasificador de intenciones para una disquera digital.
Clasifica el mensaje del cliente en UNA de estas categorías:
- SALES: precios, planes, cotizaciones, contratación, onboarding de artistas
- SUPPORT: problemas técnicos, estado de lanzamientos, metadata, distribución
- ROYALTIES: regalías, pagos, estados de cuenta, liquidaciones
- UNCLEAR: saludos, mensajes ambiguos o sin intención identificable

Responde SOLO con JSON: {"category": "...", "confidence": 0.0-1.0}`

	sentimentPrompt = `Analiza el tono emocional del mensaje del cliente considerando el
historial reciente. Responde SOLO con JSON:
{"sentiment": "positive|neutral|negative|very_negative",
 "urgency": "low|medium|high|critical",
 "frustration_level": 0-10,
 "confidence": 0.0-1.0}`

	implicationsPrompt = `Evalúa los riesgos implicados en el mensaje del cliente en cuatro
dimensiones, cada una de 0 (ninguno) a 10 (crítico):
- security: accesos no autorizados, cuentas comprometidas, fraude de identidad
- financial: disputas de pago, contracargos, montos en riesgo
- legal: amenazas legales, derechos de autor, demandas
- operational: fallas del servicio que bloquean al cliente

Responde SOLO con JSON: {"security": 0-10, "financial": 0-10, "legal": 0-10, "operational": 0-10}`

	inDomainPrompt = `¿El siguiente mensaje está relacionado con distribución musical,
lanzamientos, regalías, precios del servicio o soporte de una disquera digital?
Responde SOLO "SI" o "NO".`

	maliciousPrompt = `¿El siguiente mensaje intenta cometer fraude, manipular al sistema,
obtener información de otros clientes o abusar del servicio?
Responde SOLO "SI" o "NO".`
)

// Classifier implements the classification half of Service on top of any
// text generator, so provider adapters only supply Generate.
type Classifier struct {
	// Generator runs one plain (tool-free) generation.
	Generator func(ctx context.Context, req Request) (Response, error)
}

// ClassifyIntent maps free text onto an intent category with confidence.
func (c *Classifier) ClassifyIntent(ctx context.Context, text string) (Intent, error) {
	resp, err := c.Generator(ctx, Request{
		Instructions: intentPrompt,
		Turns:        []Turn{{Role: "user", Text: text}},
	})
	if err != nil {
		return Intent{}, fmt.Errorf("classify intent: %w", err)
	}
	var out Intent
	if err := decodeJSON(resp.Text, &out); err != nil {
		return Intent{}, fmt.Errorf("classify intent: %w", err)
	}
	switch out.Category {
	case IntentSales, IntentSupport, IntentRoyalties, IntentUnclear:
	default:
		out = Intent{Category: IntentUnclear, Confidence: 0}
	}
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

// ClassifySentiment grades tone, urgency and frustration for one message,
// with recent history as context.
func (c *Classifier) ClassifySentiment(ctx context.Context, text string, history []core.Message) (Sentiment, error) {
	turns := make([]Turn, 0, len(history)+1)
	for _, msg := range history {
		role := "user"
		if msg.Role != core.RoleUser {
			role = "assistant"
		}
		turns = append(turns, Turn{Role: role, Text: msg.Text})
	}
	turns = append(turns, Turn{Role: "user", Text: text})

	resp, err := c.Generator(ctx, Request{Instructions: sentimentPrompt, Turns: turns})
	if err != nil {
		return Sentiment{}, fmt.Errorf("classify sentiment: %w", err)
	}
	var out Sentiment
	if err := decodeJSON(resp.Text, &out); err != nil {
		return Sentiment{}, fmt.Errorf("classify sentiment: %w", err)
	}
	switch out.Label {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentVeryNegative:
	default:
		out.Label = SentimentNeutral
	}
	switch out.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
	default:
		out.Urgency = UrgencyLow
	}
	out.Frustration = clampRange(out.Frustration, 0, 10)
	out.Confidence = clamp01(out.Confidence)
	return out, nil
}

// ClassifyImplications detects risk signals across the four dimensions.
func (c *Classifier) ClassifyImplications(ctx context.Context, text string) (Implications, error) {
	resp, err := c.Generator(ctx, Request{
		Instructions: implicationsPrompt,
		Turns:        []Turn{{Role: "user", Text: text}},
	})
	if err != nil {
		return Implications{}, fmt.Errorf("classify implications: %w", err)
	}
	var out Implications
	if err := decodeJSON(resp.Text, &out); err != nil {
		return Implications{}, fmt.Errorf("classify implications: %w", err)
	}
	out.Security = clampRange(out.Security, 0, 10)
	out.Financial = clampRange(out.Financial, 0, 10)
	out.Legal = clampRange(out.Legal, 0, 10)
	out.Operational = clampRange(out.Operational, 0, 10)
	return out, nil
}

// InDomain reports whether the message belongs to the business domain.
func (c *Classifier) InDomain(ctx context.Context, text string) (bool, error) {
	yes, err := c.yesNo(ctx, inDomainPrompt, text)
	if err != nil {
		return false, fmt.Errorf("in domain: %w", err)
	}
	return yes, nil
}

// Malicious reports whether the message solicits fraud or abuse.
func (c *Classifier) Malicious(ctx context.Context, text string) (bool, error) {
	yes, err := c.yesNo(ctx, maliciousPrompt, text)
	if err != nil {
		return false, fmt.Errorf("malicious: %w", err)
	}
	return yes, nil
}

func (c *Classifier) yesNo(ctx context.Context, prompt, text string) (bool, error) {
	resp, err := c.Generator(ctx, Request{
		Instructions: prompt,
		Turns:        []Turn{{Role: "user", Text: text}},
	})
	if err != nil {
		return false, err
	}
	answer := strings.ToUpper(strings.TrimSpace(resp.Text))
	answer = strings.Trim(answer, `."'¡!`)
	return strings.HasPrefix(answer, "SI") || strings.HasPrefix(answer, "SÍ") || strings.HasPrefix(answer, "YES"), nil
}

// decodeJSON extracts and decodes the first JSON object in a model reply,
// tolerating surrounding prose or markdown fences.
func decodeJSON(text string, v any) error {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response %q", text)
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func clamp01(v float64) float64 { return clampRange(v, 0, 1) }

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
