// Package venv owns provisioning of isolated Python environments.
//
// Ownership boundary:
// - environment directory reset
//
// - interpreter environment creation
//
// - activation as an explicit value threaded into later steps
//
// - manifest install and optional installed-package verification
//
// Lifecycle order:
// - start -> reset -> create -> activate -> install -> [verify ->] done
//
// - any step failure moves to failed and skips the remaining steps.
//
// Activation does not outlive the provisioning process. Shells that want the
// environment still source <env>/bin/activate themselves.
package venv
