// Package core defines the shared domain model of the conversation
// orchestration engine: conversations and their immutable snapshots, agent
// identifiers, security verdicts, priority scores, turn outcomes and the
// collaborator interfaces (stores, gateway, audit) consumed by the pipeline.
//
// Everything here is transport- and vendor-agnostic. Mutable conversation
// state is owned exclusively by a ConversationStore; every other component
// only ever sees Snapshot values and proposes changes through commit
// mutators.
package core
