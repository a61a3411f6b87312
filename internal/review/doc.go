// Package review contains the core review pipeline: the comment and change
// types, the per-file context builder, batch formation, the double-check
// verifier, and the orchestrator that sequences one full run over a
// changeset.
//
// The orchestrator consumes two interfaces defined here, ChangeSource
// (hosting platform) and Provider (AI reviewer), so the pipeline carries no
// HTTP knowledge of its own. Comments flagged critical or major are routed
// through evidence-based verification; everything else passes through
// unchanged.
package review
