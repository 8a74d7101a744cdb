// Package testsupport holds helpers shared by package tests: temp-dir backed
// configs, stub executables on PATH, and a capture store opened per test.
package testsupport
