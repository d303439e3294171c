// Package permission evaluates nested boolean permission grant documents and
// per-object binding documents.
//
// A grant document is a tree whose leaves are booleans: a true at any level
// authorizes every permission path passing through it, while absent keys and
// non-terminal matches deny. A bindings document restricts individual
// permissions to specific object ids per node type.
//
// This package is a pure in-memory evaluator with no I/O and no dependencies
// on the rest of the module.
package permission
