// Package otel bridges the engine's in-process counters into an OpenTelemetry
// meter through observable instruments, so the host's existing pipeline
// scrapes them without the engine linking an exporter itself.
package otel

import (
	"context"
	"errors"
	"fmt"

	greenauth "github.com/mimigigabyte/greenauth"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is an exported constant or variable used by the authentication engine.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is an exported constant or variable used by the authentication engine.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() greenauth.MetricsSnapshot
	AuditDropped() uint64
}

type counterDef struct {
	id   greenauth.MetricID
	name string
	help string
}

var counterDefs = []counterDef{
	{greenauth.MetricLoginSuccess, "greenauth_login_success_total", "Successful logins across all channels."},
	{greenauth.MetricLoginFailure, "greenauth_login_failure_total", "Failed login attempts."},
	{greenauth.MetricLoginLocked, "greenauth_login_locked_total", "Logins rejected by an active lockout."},
	{greenauth.MetricLockoutTriggered, "greenauth_lockout_triggered_total", "Lockouts persisted after the failure threshold."},
	{greenauth.MetricCodeIssued, "greenauth_code_issued_total", "Verification codes issued."},
	{greenauth.MetricCodeRateLimited, "greenauth_code_rate_limited_total", "Code requests rejected by the cooldown."},
	{greenauth.MetricCodeVerifySuccess, "greenauth_code_verify_success_total", "Verification codes consumed successfully."},
	{greenauth.MetricCodeVerifyFailure, "greenauth_code_verify_failure_total", "Failed code verification attempts."},
	{greenauth.MetricCodeExhausted, "greenauth_code_exhausted_total", "Codes permanently dead after too many attempts."},
	{greenauth.MetricDeliveryFailure, "greenauth_code_delivery_failure_total", "Out-of-band deliveries that failed."},
	{greenauth.MetricRegisterSuccess, "greenauth_register_success_total", "Successful registrations."},
	{greenauth.MetricRegisterDuplicate, "greenauth_register_duplicate_total", "Registrations rejected as duplicates."},
	{greenauth.MetricRefreshSuccess, "greenauth_refresh_success_total", "Successful token refreshes."},
	{greenauth.MetricRefreshFailure, "greenauth_refresh_failure_total", "Rejected token refreshes."},
	{greenauth.MetricOAuthSuccess, "greenauth_oauth_success_total", "Successful federated logins."},
	{greenauth.MetricOAuthStateRejected, "greenauth_oauth_state_rejected_total", "Callbacks rejected for bad anti-forgery state."},
	{greenauth.MetricOAuthProviderError, "greenauth_oauth_provider_error_total", "Provider exchange or profile failures."},
	{greenauth.MetricPasswordResetSuccess, "greenauth_password_reset_success_total", "Successful password resets."},
	{greenauth.MetricPasswordResetFailure, "greenauth_password_reset_failure_total", "Failed password reset attempts."},
	{greenauth.MetricAccountDeactivated, "greenauth_account_deactivated_total", "Accounts deactivated."},
}

type observedCounter struct {
	id         greenauth.MetricID
	instrument metric.Int64ObservableCounter
}

// Exporter defines a public type used by greenauth APIs.
//
// Exporter instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	auditDropped metric.Int64ObservableCounter
}

// NewExporter describes the newexporter operation and its observable behavior.
//
// NewExporter may return an error when input validation, dependency calls, or security checks fail.
// NewExporter does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewExporter(meter metric.Meter, engine *greenauth.Engine) (*Exporter, error) {
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource describes the newexporterfromsource operation and its observable behavior.
//
// NewExporterFromSource may return an error when input validation, dependency calls, or security checks fail.
// NewExporterFromSource does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exporter := &Exporter{
		source:   source,
		counters: make([]observedCounter, 0, len(counterDefs)),
	}

	observables := make([]metric.Observable, 0, len(counterDefs)+1)

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.name, err)
		}
		exporter.counters = append(exporter.counters, observedCounter{id: def.id, instrument: ins})
		observables = append(observables, ins)
	}

	auditDropped, err := meter.Int64ObservableCounter(
		"greenauth_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	exporter.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	registration, err := meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		snapshot := exporter.source.MetricsSnapshot()
		for _, c := range exporter.counters {
			observer.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
		}
		observer.ObserveInt64(exporter.auditDropped, int64(exporter.source.AuditDropped()))
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}

	exporter.registration = registration
	return exporter, nil
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
