// Package ir holds the shared vocabulary of flowlua: storage indices,
// variable namespaces, the engine-wide bounds, and canonical JSON.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Storage index 0 is the unbound sentinel in both namespaces
//   - Ids are bounded per namespace by MaxFlowvars / MaxFlowints
//   - Flowvar strings never exceed MaxStringLen bytes
//   - Flowint values are unsigned 32-bit
package ir
