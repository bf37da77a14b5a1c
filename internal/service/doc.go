// Package service is the single entry point for every socialcore operation.
// Transports decode input, open a session scope and call a Service method;
// the returned error is one of the sentinel errors of the owning package or
// a *validate.Error.
package service
