// Package governanceengine implements the Governance Engine inside the
// protocol-governance context.
//
// The module owns the proposal lifecycle (create/update/cancel/extend/
// execute), weighted multi-option voting with two-tier delegation, the
// timelocked winner reveal, and the owner/multisig access policy. Business
// rules live in application/domain layers; storage, transport, and event
// plumbing stay behind ports and adapters.
package governanceengine
