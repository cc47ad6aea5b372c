// Package tools provides host runtime helpers shared by the provisioner.
//
// Ownership boundary:
// - external command execution
//
// - exit status mapping for invoked tools
package tools
