package provider

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/OpenTouch/night-watch/internal/nwerrors"
)

// PingDescriptor lists the Ping provider's parameters, grounded on
// original_source's Ping.py.
var PingDescriptor = Descriptor{
	Mandatory: []string{"ping_addr"},
	Optional:  []string{"requested_data", "count", "timeout"},
}

var pingAllowedData = map[string]bool{
	"status": true, "ping_response": true, "pkt_transmitted": true,
	"pkt_received": true, "pkt_loss": true, "ping_avg": true,
	"ping_min": true, "ping_max": true,
}

var pingStatsPattern = regexp.MustCompile(`(\d+) packets transmitted, (\d+)[^,]* received, ([\d.]+)% packet loss`)
var pingTimingPattern = regexp.MustCompile(`= ([\d.]+)/([\d.]+)/([\d.]+)/[\d.]+`)

// PingChecker runs the system ping command against an address, grounded
// on original_source's Ping provider, which shells out the same way.
type PingChecker struct {
	addr          string
	count         int
	timeout       int
	requestedData string
}

func NewPingChecker(cfg map[string]any) (Checker, error) {
	addr, _ := cfg["ping_addr"].(string)
	if addr == "" {
		return nil, fmt.Errorf("ping_addr must be a non-empty string")
	}

	count := 1
	if v, ok := toInt(cfg["count"]); ok {
		count = v
	}
	timeout, _ := toInt(cfg["timeout"])

	requested, _ := cfg["requested_data"].(string)
	if requested == "" {
		requested = "status"
	}
	if !pingAllowedData[requested] {
		return nil, fmt.Errorf("requested_data %q is not supported", requested)
	}

	return &PingChecker{addr: addr, count: count, timeout: timeout, requestedData: requested}, nil
}

func (p *PingChecker) Type() string { return "Ping" }

func (p *PingChecker) args() []string {
	args := []string{"-c", strconv.Itoa(p.count)}
	if p.timeout > 0 {
		args = append(args, "-W", strconv.Itoa(p.timeout))
	}
	return append(args, p.addr)
}

func (p *PingChecker) Process(ctx context.Context) (any, error) {
	cmd := exec.CommandContext(ctx, "ping", p.args()...)
	output, runErr := cmd.Output()

	if p.requestedData == "status" {
		if runErr == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, runErr, "running ping against %s", p.addr)
	}

	if runErr != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, runErr, "running ping against %s", p.addr)
	}

	stats, err := parsePingOutput(string(output))
	if err != nil {
		return nil, nwerrors.Wrap(nwerrors.KindProviderRuntimeError, err, "parsing ping output for %s", p.addr)
	}

	switch p.requestedData {
	case "ping_response":
		return string(output), nil
	case "pkt_transmitted":
		return stats.transmitted, nil
	case "pkt_received":
		return stats.received, nil
	case "pkt_loss":
		return stats.loss, nil
	case "ping_avg":
		return stats.avg, nil
	case "ping_min":
		return stats.min, nil
	case "ping_max":
		return stats.max, nil
	default:
		return nil, fmt.Errorf("unreachable requested_data %q", p.requestedData)
	}
}

type pingStats struct {
	transmitted, received int
	loss, min, avg, max   float64
}

func parsePingOutput(output string) (pingStats, error) {
	var s pingStats
	m := pingStatsPattern.FindStringSubmatch(output)
	if m == nil {
		return s, fmt.Errorf("could not find packet statistics in ping output")
	}
	s.transmitted, _ = strconv.Atoi(m[1])
	s.received, _ = strconv.Atoi(m[2])
	s.loss, _ = strconv.ParseFloat(m[3], 64)

	if t := pingTimingPattern.FindStringSubmatch(output); t != nil {
		s.min, _ = strconv.ParseFloat(t[1], 64)
		s.avg, _ = strconv.ParseFloat(t[2], 64)
		s.max, _ = strconv.ParseFloat(t[3], 64)
	}
	return s, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
