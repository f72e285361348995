// Package tool defines the capability contract between the execution
// engine and the tools it invokes.
//
// A tool is anything with a name and an Invoke method: a remote HTTP API,
// a local deterministic fixture, or an in-process function wrapped with
// Func. The engine treats every tool as an opaque callable; resilience,
// caching, and observability are layered on top in package exec.
package tool
