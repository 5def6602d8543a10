// Package library reads and writes macro libraries: files describing a
// configuration tree of folders and macros.
//
// Two formats are supported, chosen by file extension:
//
//	.yaml, .yml  YAML documents
//	.cue         CUE values, checked against a built-in schema
//
// Both share one shape:
//
//	version: 1
//	max_length: 10000
//	nodes:
//	  - name: Crafting
//	    children:
//	      - name: Synth
//	        contents: |
//	          /ac Synthesis <wait.3>
//	          /loop
//
// A node is a macro if and only if it has a contents key; otherwise it is a
// folder. Nodes without an id get a stable one derived from their position
// in the tree (see StableID), so the same file always yields the same IDs.
//
// A directory is loaded by reading every library file in it in lexical
// order and concatenating their nodes.
package library
