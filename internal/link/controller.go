// Package link owns the IPTV network interface: it brings the link up or
// down through the `ip` binary and reports the currently observed state.
//
// The controller holds no in-process state of its own; the kernel is the
// source of truth and serializes concurrent set calls.
package link

import (
	"context"
	"fmt"
	"strings"

	"iptvctl/internal/eventbus"
	logx "iptvctl/pkg/logx"
)

// State is the observed operational state of the link.
type State int

const (
	StateDown State = iota
	StateUp
)

func (s State) String() string {
	if s == StateUp {
		return "up"
	}
	return "down"
}

// Config controls the link controller. The command timeout lives on the
// Runner, not here.
type Config struct {
	// Interface is the network interface carrying the IPTV connection.
	Interface string
	// UseSudo prefixes set commands with sudo (needed when not running as root).
	UseSudo bool
}

// ChangeEvent describes the outcome of a set call. Published on the bus for
// the audit trail.
type ChangeEvent struct {
	Interface string
	Action    string // "up" | "down"
	Outcome   string // "accepted" | "skipped" | "failed"
	Source    string // "manual" | "timer" | "schedule"
	Err       string
}

// Controller issues link commands through an injectable Runner.
type Controller struct {
	cfg    Config
	runner Runner
	bus    eventbus.Bus
	log    logx.Logger
}

func NewController(cfg Config, runner Runner, bus eventbus.Bus, log logx.Logger) *Controller {
	if strings.TrimSpace(cfg.Interface) == "" {
		cfg.Interface = "ens1"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Controller{cfg: cfg, runner: runner, bus: bus, log: log}
}

func (c *Controller) Interface() string { return c.cfg.Interface }

// State inspects the interface and reports up/down.
func (c *Controller) State(ctx context.Context) (State, error) {
	out, err := c.runner.Run(ctx, "ip", "link", "show", "dev", c.cfg.Interface)
	if err != nil {
		return StateDown, fmt.Errorf("inspect link %s: %w", c.cfg.Interface, err)
	}
	return parseLinkState(out, c.cfg.Interface)
}

// Show returns the raw `ip link show` output for the status surface.
func (c *Controller) Show(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, "ip", "link", "show", "dev", c.cfg.Interface)
	if err != nil {
		return "", fmt.Errorf("inspect link %s: %w", c.cfg.Interface, err)
	}
	return strings.TrimSpace(out), nil
}

// Up brings the link up. Idempotent: an already-up link is a no-op success,
// audited as skipped. source tags who asked ("manual", "timer", "schedule").
func (c *Controller) Up(ctx context.Context, source string) error {
	return c.set(ctx, StateUp, source)
}

// Down brings the link down. Same idempotence contract as Up.
func (c *Controller) Down(ctx context.Context, source string) error {
	return c.set(ctx, StateDown, source)
}

func (c *Controller) set(ctx context.Context, want State, source string) error {
	cur, err := c.State(ctx)
	if err != nil {
		c.publish(want, "failed", source, err)
		c.log.Error("link state probe failed", logx.String("iface", c.cfg.Interface), logx.Err(err))
		return err
	}
	if cur == want {
		c.publish(want, "skipped", source, nil)
		c.log.Info("link already in requested state",
			logx.String("iface", c.cfg.Interface),
			logx.String("state", want.String()),
			logx.String("source", source))
		return nil
	}

	name, args := c.setCommand(want)
	if _, err := c.runner.Run(ctx, name, args...); err != nil {
		c.publish(want, "failed", source, err)
		c.log.Error("link set failed",
			logx.String("iface", c.cfg.Interface),
			logx.String("state", want.String()),
			logx.String("source", source),
			logx.Err(err))
		return fmt.Errorf("set link %s %s: %w", c.cfg.Interface, want, err)
	}

	c.publish(want, "accepted", source, nil)
	c.log.Info("link state changed",
		logx.String("iface", c.cfg.Interface),
		logx.String("state", want.String()),
		logx.String("source", source))
	return nil
}

func (c *Controller) setCommand(want State) (string, []string) {
	args := []string{"link", "set", c.cfg.Interface, want.String()}
	if c.cfg.UseSudo {
		return "sudo", append([]string{"ip"}, args...)
	}
	return "ip", args
}

func (c *Controller) publish(want State, outcome, source string, err error) {
	if c.bus == nil {
		return
	}
	typ := eventbus.TypeLinkChanged
	if outcome == "skipped" {
		typ = eventbus.TypeLinkSkipped
	}
	ev := ChangeEvent{
		Interface: c.cfg.Interface,
		Action:    want.String(),
		Outcome:   outcome,
		Source:    source,
	}
	if err != nil {
		ev.Err = err.Error()
	}
	c.bus.Publish(eventbus.Event{Type: typ, Data: ev})
}

// parseLinkState reads the flag list of the interface line, e.g.
//
//	2: ens1: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 ...
//
// The administrative UP flag must match exactly; substring matching would
// confuse LOWER_UP with UP.
func parseLinkState(output, iface string) (State, error) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, iface+":") {
			continue
		}
		start := strings.IndexByte(line, '<')
		end := strings.IndexByte(line, '>')
		if start < 0 || end < start {
			continue
		}
		for _, flag := range strings.Split(line[start+1:end], ",") {
			if flag == "UP" {
				return StateUp, nil
			}
		}
		return StateDown, nil
	}
	return StateDown, fmt.Errorf("interface %s not found in ip output", iface)
}
