// Package suno implements the client for the external music generation
// service: job submission, status polling until a terminal state, per-job
// timeout enforcement, and error classification into transient and
// permanent failures.
package suno
