// Package common provides shared error-wrapping utilities used across the
// parser, analyzer, and evaluator for attaching path context to failures.
package common
