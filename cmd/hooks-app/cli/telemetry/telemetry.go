// Package telemetry sends anonymous, opt-in usage events: which command
// ran and, for hook dispatches, the event name, gate count and outcome.
// No paths, prompts, context text or gate output ever leave the machine.
package telemetry

import (
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/turboshovel/hooks/cmd/hooks-app/cli/settings"
)

var (
	// PostHogAPIKey is set at build time for production
	PostHogAPIKey = "phc_development_key"
	// PostHogEndpoint is set at build time for production
	PostHogEndpoint = "https://eu.i.posthog.com"
)

// machineIDSalt scopes the hashed machine id to this application.
const machineIDSalt = "turboshovel-hooks"

// Event names.
const (
	EventCommandExecuted = "cli_command_executed"
	EventHookDispatched  = "hook_dispatched"
)

// Dispatch outcomes.
const (
	OutcomeContinue = "continue"
	OutcomeBlock    = "block"
	OutcomeStop     = "stop"
	OutcomeError    = "error"
)

// Client defines the telemetry interface
type Client interface {
	TrackCommand(cmd *cobra.Command)
	TrackDispatch(hookEvent string, gatesExecuted int, outcome string)
	Close()
}

// NoOpClient is a no-op implementation for when telemetry is disabled
type NoOpClient struct{}

func (n *NoOpClient) TrackCommand(_ *cobra.Command)          {}
func (n *NoOpClient) TrackDispatch(_ string, _ int, _ string) {}
func (n *NoOpClient) Close()                                 {}

// silentLogger suppresses PostHog log output - expected for CLI best-effort telemetry
type silentLogger struct{}

func (silentLogger) Logf(_ string, _ ...interface{})   {}
func (silentLogger) Debugf(_ string, _ ...interface{}) {}
func (silentLogger) Warnf(_ string, _ ...interface{})  {}
func (silentLogger) Errorf(_ string, _ ...interface{}) {}

// PostHogClient is the real telemetry client
type PostHogClient struct {
	client     posthog.Client
	machineID  string
	cliVersion string
	mu         sync.RWMutex
}

// NewClient returns a PostHog client when s.Telemetry is set, otherwise a
// NoOpClient. Telemetry is off unless the user opted in.
//
//nolint:ireturn // Factory function - returns NoOpClient or PostHogClient based on settings
func NewClient(version string, s settings.Settings) Client {
	if !s.Telemetry {
		return &NoOpClient{}
	}

	id, err := machineid.ProtectedID(machineIDSalt)
	if err != nil {
		return &NoOpClient{}
	}

	// Hooks block the agent, so never wait long on the network
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 100 * time.Millisecond,
		}).DialContext,
		TLSHandshakeTimeout:   100 * time.Millisecond,
		ResponseHeaderTimeout: 100 * time.Millisecond,
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:           PostHogEndpoint,
		ShutdownTimeout:    100 * time.Millisecond,
		BatchUploadTimeout: 200 * time.Millisecond,
		Transport:          transport,
		Logger:             silentLogger{},
		DisableGeoIP:       posthog.Ptr(true),
		DefaultEventProperties: posthog.NewProperties().
			Set("cli_version", version).
			Set("os", runtime.GOOS).
			Set("arch", runtime.GOARCH),
	})
	if err != nil {
		return &NoOpClient{}
	}

	return &PostHogClient{
		client:     client,
		machineID:  id,
		cliVersion: version,
	}
}

// CommandProperties describes cmd for an EventCommandExecuted event: its
// path and the names (never values) of flags the user set. It returns nil
// for commands that are not tracked.
func CommandProperties(cmd *cobra.Command) posthog.Properties {
	if cmd == nil || cmd.Hidden {
		return nil
	}
	switch cmd.Name() {
	case "help", "completion":
		return nil
	}

	var flags []string
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flags = append(flags, flag.Name)
	})

	props := posthog.NewProperties().Set("command", cmd.CommandPath())
	if len(flags) > 0 {
		props.Set("flags", strings.Join(flags, ","))
	}
	return props
}

// DispatchProperties describes one hook dispatch.
func DispatchProperties(hookEvent string, gatesExecuted int, outcome string) posthog.Properties {
	return posthog.NewProperties().
		Set("hook_event", hookEvent).
		Set("gates_executed", gatesExecuted).
		Set("outcome", outcome)
}

// TrackCommand records the command execution
func (p *PostHogClient) TrackCommand(cmd *cobra.Command) {
	props := CommandProperties(cmd)
	if props == nil {
		return
	}
	p.enqueue(EventCommandExecuted, props)
}

// TrackDispatch records a hook dispatch outcome.
func (p *PostHogClient) TrackDispatch(hookEvent string, gatesExecuted int, outcome string) {
	p.enqueue(EventHookDispatched, DispatchProperties(hookEvent, gatesExecuted, outcome))
}

func (p *PostHogClient) enqueue(name string, props posthog.Properties) {
	p.mu.RLock()
	id := p.machineID
	c := p.client
	p.mu.RUnlock()

	if c == nil {
		return
	}

	//nolint:errcheck // Best-effort telemetry, failures should not affect CLI
	_ = c.Enqueue(posthog.Capture{
		DistinctId: id,
		Event:      name,
		Properties: props,
	})
}

// Close flushes pending events
func (p *PostHogClient) Close() {
	p.mu.RLock()
	c := p.client
	p.mu.RUnlock()

	if c != nil {
		_ = c.Close()
	}
}
