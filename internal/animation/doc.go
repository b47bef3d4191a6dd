// Package animation choreographs photo swaps: a removed cell shrinks toward
// the gravity corner, the row mutates, survivors reflow FLIP-style with a
// directional bounce while the replacement slides in from the opposite edge,
// and fill cells follow with a stagger. Each row owns one choreographer and
// one cancellation scope; a superseding run cancels the previous run's
// pending timers before its own first phase.
package animation
