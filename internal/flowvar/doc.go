// Package flowvar implements the flow variable accessors called from rule
// scripts: string flowvars and uint32 flowints, addressed by script-local id.
//
// Every accessor takes an explicit CallContext. Context checks run first,
// then id resolution, then the slot access under the lock policy selected
// by the context's hint. Failures are *Error values whose Message is the
// exact string handed back to the script.
package flowvar
