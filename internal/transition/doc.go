// Package transition cycles the wall through albums: background prefetch
// with supersede-and-cancel semantics, a memory guard, and the boundary
// decision between a seamless swap, a fallback reload, and the scheduled
// forced reload that keeps long-lived sessions fresh.
package transition
