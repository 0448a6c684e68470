package fallback

import "github.com/angiesanchezm/genai-music/core"

// Static degradation responses keyed by current agent and failure class.
// Used when generation is exhausted: the user always gets a reply while the
// escalation ticket is raised in parallel.
var staticReplies = map[core.AgentID]map[Class]string{
	core.AgentSales: {
		ClassTimeout: "Disculpa la demora, estamos tardando más de lo normal. Un asesor comercial revisará tu consulta y te contactará en breve.",
		ClassError:   "Disculpa, tuve un problema procesando tu consulta comercial. Un asesor la revisará y te responderá pronto.",
	},
	core.AgentSupport: {
		ClassTimeout: "Disculpa la demora. Tu caso de soporte fue registrado y un especialista lo está revisando.",
		ClassError:   "Tuvimos un inconveniente técnico procesando tu solicitud. Tu caso fue registrado para revisión por un especialista.",
	},
	core.AgentRoyalties: {
		ClassTimeout: "Disculpa la demora consultando tus regalías. Registramos tu consulta y te responderemos con el detalle a la brevedad.",
		ClassError:   "No pudimos consultar tus regalías en este momento. Tu consulta fue registrada y te responderemos pronto.",
	},
}

// defaultStaticReply covers HUMAN and any unknown combination.
const defaultStaticReply = "Disculpa, no pude procesar tu mensaje en este momento. Tu caso fue registrado y una persona de nuestro equipo te contactará."

// ConflictApology is sent when unresolved commit contention exhausts the
// replay budget; the turn escalates rather than silently dropping.
const ConflictApology = "Disculpa, tu mensaje nos llegó mientras procesábamos otro. Una persona de nuestro equipo revisará la conversación y te responderá."

// StaticReply returns the pre-defined response for an agent and failure class.
func StaticReply(agent core.AgentID, class Class) string {
	if byClass, ok := staticReplies[agent]; ok {
		if msg, ok := byClass[class]; ok {
			return msg
		}
		if msg, ok := byClass[ClassError]; ok {
			return msg
		}
	}
	return defaultStaticReply
}
