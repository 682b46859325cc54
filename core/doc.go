// Package core contains the canonical quantum resource contracts: resource
// types, payloads, task status, credentials, tokens, the error taxonomy and the
// Resource abstraction that drives a vendor client. Vendor packages depend on
// core; core must not depend on vendor-specific or transport-specific code.
package core
