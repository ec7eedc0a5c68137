// Package services defines the shared error taxonomy and context carriers
// used by the external service clients and the pipeline.
//
// Errors are tagged with sentinel markers so callers can classify failures
// without string matching: transient failures are retried, permanent
// failures are recorded against their item while the batch continues, and
// everything else is left to the orchestrator's fatality policy.
package services
