package agent

import (
	"github.com/angiesanchezm/genai-music/core"
	"github.com/angiesanchezm/genai-music/model"
	"github.com/angiesanchezm/genai-music/tool"
)

const salesInstructions = `Eres un agente de ventas experto de una disquera digital.

**RESPONSABILIDADES:**
1. Explicar servicios de distribución musical a plataformas (Spotify, Apple Music, etc.)
2. Consultar y presentar precios de forma clara
3. Generar cotizaciones personalizadas
4. Guiar el proceso de onboarding de nuevos artistas

**ESTILO:** amigable, profesional, conciso (máximo 3-4 oraciones), enfocado en valor.

**IMPORTANTE:** siempre da una respuesta en texto, incluso si usas herramientas.
Primero usa las herramientas necesarias, luego explica al cliente lo que encontraste.

**CUÁNDO ESCALAR A HUMANO:** negociaciones de contratos especiales, clientes
enterprise, descuentos significativos, o cuando el cliente pide hablar con una persona.`

const supportInstructions = `Eres un agente de soporte técnico de una disquera digital.

**RESPONSABILIDADES:**
1. Diagnosticar problemas de lanzamientos y metadata
2. Verificar el estado de lanzamientos en las plataformas
3. Crear tickets de soporte para seguimiento
4. Resolver dudas técnicas de distribución

**ESTILO:** empático, claro, orientado a resolver. Máximo 3-4 oraciones.

**IMPORTANTE:** si el problema requiere seguimiento, crea un ticket y comparte
el número con el cliente. Escala a humano ante disputas o casos sin resolución.`

const royaltiesInstructions = `Eres un agente especializado en regalías de una disquera digital.

**RESPONSABILIDADES:**
1. Consultar estados de cuenta y pagos de regalías
2. Explicar desgloses por plataforma y calendarios de pago
3. Crear tickets para discrepancias de pago

**ESTILO:** preciso con cifras, transparente, conciso.

**IMPORTANTE:** ante disputas de montos o sospechas de error en liquidaciones,
crea un ticket y escala a un especialista humano.`

// NewSales builds the sales agent with pricing and quoting tools.
func NewSales(svc model.Service, tickets core.TicketCreator, optFns ...func(o *Options)) *ModelAgent {
	return New(core.AgentSales, "Ventas, precios, cotizaciones y onboarding de artistas", svc,
		append([]func(o *Options){func(o *Options) {
			o.Instructions = salesInstructions
			o.Tickets = tickets
			o.Tools = []tool.Tool{
				tool.NewGetPricingTool(),
				tool.NewGenerateQuoteTool(),
				tool.NewEscalateToHumanTool(),
				tool.NewTransferToAgentTool(),
			}
			o.EmptyReply = "¡Hola! Estoy aquí para ayudarte con nuestros servicios de distribución musical. ¿En qué puedo asistirte?"
		}}, optFns...)...)
}

// NewSupport builds the support agent with release status and ticket tools.
func NewSupport(svc model.Service, tickets core.TicketCreator, optFns ...func(o *Options)) *ModelAgent {
	return New(core.AgentSupport, "Soporte técnico, estado de lanzamientos y tickets", svc,
		append([]func(o *Options){func(o *Options) {
			o.Instructions = supportInstructions
			o.Tickets = tickets
			o.Tools = []tool.Tool{
				tool.NewCheckReleaseStatusTool(),
				tool.NewCreateSupportTicketTool(),
				tool.NewEscalateToHumanTool(),
				tool.NewTransferToAgentTool(),
			}
		}}, optFns...)...)
}

// NewRoyalties builds the royalties agent with statement and ticket tools.
func NewRoyalties(svc model.Service, tickets core.TicketCreator, optFns ...func(o *Options)) *ModelAgent {
	return New(core.AgentRoyalties, "Regalías, pagos y estados de cuenta", svc,
		append([]func(o *Options){func(o *Options) {
			o.Instructions = royaltiesInstructions
			o.Tickets = tickets
			o.Tools = []tool.Tool{
				tool.NewQueryRoyaltiesTool(),
				tool.NewCreateSupportTicketTool(),
				tool.NewEscalateToHumanTool(),
				tool.NewTransferToAgentTool(),
			}
		}}, optFns...)...)
}
