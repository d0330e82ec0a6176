// Package vendortool is the boundary to the external synthesis/placement
// tool. The search loop never touches it: the oracle is consulted, if at
// all, once at the end of a run to validate the chosen candidate against
// real tool numbers.
package vendortool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/vk/nocforge/internal/candidate"
	"github.com/vk/nocforge/internal/ctxlog"
	"github.com/vk/nocforge/internal/floorplan"
)

// Report is the tool's verdict on a finalized candidate.
type Report struct {
	OK          bool    `json:"ok"`
	AchievedMHz float64 `json:"achieved_mhz"`
	AreaUsed    float64 `json:"area_used"`
}

// Oracle validates a finalized candidate with the vendor flow.
type Oracle interface {
	Validate(ctx context.Context, tree *floorplan.Tree, cand *candidate.Candidate) (Report, error)
}

// request is the plan handed to the tool wrapper on stdin.
type request struct {
	Assignment map[string]string `json:"assignment"` // module -> region name
	Stages     map[string]int    `json:"stages"`     // connection -> pipeline depth
}

// ExecOracle shells out to a wrapper script around the vendor flow. The
// wrapper receives the candidate plan as JSON on stdin and must print a
// JSON Report on stdout.
type ExecOracle struct {
	Command []string
}

// NewExecOracle builds an oracle around the given command line.
func NewExecOracle(command []string) *ExecOracle {
	return &ExecOracle{Command: command}
}

// Validate implements Oracle.
func (o *ExecOracle) Validate(ctx context.Context, tree *floorplan.Tree, cand *candidate.Candidate) (Report, error) {
	logger := ctxlog.FromContext(ctx)
	if len(o.Command) == 0 {
		return Report{}, fmt.Errorf("vendor tool command not configured")
	}

	req := request{
		Assignment: make(map[string]string, len(cand.Assignment)),
		Stages:     cand.Stages,
	}
	for _, id := range cand.Assignment.ModuleIDs() {
		req.Assignment[id] = tree.Region(cand.Assignment[id]).Name
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return Report{}, fmt.Errorf("failed to marshal candidate plan: %w", err)
	}

	logger.Info("Invoking vendor tool for post-hoc validation.", "command", o.Command[0])
	cmd := exec.CommandContext(ctx, o.Command[0], o.Command[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Report{}, fmt.Errorf("vendor tool failed: %w (stderr: %s)", err, stderr.String())
	}

	var report Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		return Report{}, fmt.Errorf("failed to parse vendor tool report: %w", err)
	}
	logger.Info("Vendor tool report received.", "ok", report.OK, "achieved_mhz", report.AchievedMHz)
	return report, nil
}
