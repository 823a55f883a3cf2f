// Package api provides the REST API of the keen-connectivity daemon.
//
// The API exposes the connectivity manager to local tooling: it reports the
// current network epoch, socket mode and fault state, and lets callers feed
// network changes, usage reports and DNS refresh requests into the manager.
//
// # Response Format
//
// All successful responses wrap data in a "data" field:
//
//	{
//	  "data": { /* response payload */ }
//	}
//
// Error responses use the following format:
//
//	{
//	  "error": {
//	    "code": "ERROR_CODE",
//	    "message": "Human-readable error message",
//	    "details": { /* optional context */ }
//	  }
//	}
//
// Requests carrying a configuration key that is no longer current are
// accepted and ignored, exactly like direct calls on the manager. The
// response always carries the key that is current after the call.
package api
