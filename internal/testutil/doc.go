// Package testutil provides fixtures shared by package tests: temp-dir
// stores and builders for hwvtep nodes and records.
package testutil
