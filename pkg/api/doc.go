// Package api defines the core protocol types for the TCI (test code
// interpreter) SDK.
//
// This package provides the data types shared by the client facade, the
// backend implementations, and the reference server: sessions, test
// specifications and graded results, executions, files, the structured
// error taxonomy, session ID generation, and request validation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. All types serialize to the JSON wire format spoken by
// the TCI REST API.
//
// Core types:
//   - [Session]: An isolated execution context with its own file namespace
//   - [TestSpec]: A declared grading rule submitted with an execution
//   - [TestResult]: The evaluated outcome of a TestSpec
//   - [Execution]: Captured output, final value, and graded tests of one run
//   - [File]: A named byte snapshot in a session's private store
//   - [APIError]: Structured error with type, param, and message
package api
