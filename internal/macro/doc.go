// Package macro holds the configuration tree that macros live in.
//
// The tree is a list of nodes, each either a Folder (which only groups other
// nodes) or a Macro (which is the only executable kind). Node is a tagged
// variant rather than an interface because the two kinds share nothing beyond
// an ID and a display name.
//
// The execution engine never mutates the tree. It receives a Macro by value at
// spawn time, so edits made to the tree afterwards do not reach instances that
// are already running.
package macro
