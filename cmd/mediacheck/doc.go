// Package main hosts the mediacheck CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration, applies flag overrides, builds
// the logger, and hands control to internal/workflow for scans. The inventory
// and deps commands are read-only views over the store and the external tool
// checks. Add behavior to the internal packages first and surface it here.
package main
