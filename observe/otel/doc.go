// Package otel provides an OpenTelemetry-backed scope.Observer.
package otel
