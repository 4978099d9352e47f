// Package telemetry provides privacy-compliant error tracking through Sentry.
// It is opt-in: nothing is sent unless sentry.enabled is set with a DSN.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gpacalc/gpacalc/internal/buildinfo"
	"github.com/gpacalc/gpacalc/internal/conf"
	"github.com/gpacalc/gpacalc/internal/errors"
	"github.com/gpacalc/gpacalc/internal/logger"
)

var sentryInitialized atomic.Bool

// InitSentry initializes the Sentry SDK and installs the errors package
// reporter. It is a no-op when telemetry is disabled.
func InitSentry(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		log().Debug("Sentry telemetry is disabled (opt-in required)")
		return nil
	}

	return initSentry(settings, sentry.ClientOptions{Dsn: settings.Sentry.DSN})
}

// initSentry finishes the client options and starts the SDK. Tests pass a
// custom transport through opts.
func initSentry(settings *conf.Settings, opts sentry.ClientOptions) error {
	opts.SampleRate = 1.0
	opts.AttachStacktrace = false
	opts.Environment = settings.Sentry.Environment
	opts.ServerName = ""
	opts.Release = fmt.Sprintf("gpacalc@%s", buildinfo.Current().GetVersion())
	opts.BeforeSend = func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		return applyPrivacyFilters(event)
	}

	if err := sentry.Init(opts); err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry-init").
			Build()
	}

	configureSentryScope()
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	log().Info("Sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", opts.Release))
	return nil
}

// applyPrivacyFilters strips identifying data from a Sentry event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureSentryScope sets the platform tags attached to every event.
func configureSentryScope() {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":       "gpacalc",
			"version":    buildinfo.Current().GetVersion(),
			"go_version": runtime.Version(),
		})
	})
}

// Enabled reports whether InitSentry started the SDK.
func Enabled() bool {
	return sentryInitialized.Load()
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	if !Enabled() {
		return
	}
	if !sentry.Flush(timeout) {
		log().Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
}

// Shutdown flushes pending events and detaches the errors reporter.
func Shutdown(timeout time.Duration) {
	if !sentryInitialized.CompareAndSwap(true, false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	sentry.Flush(timeout)
}

func log() logger.Logger {
	return logger.Global().Module("telemetry")
}
