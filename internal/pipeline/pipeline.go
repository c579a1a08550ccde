// Package pipeline runs the fixed six-stage case analysis chain triggered
// by batch ingestion. The policy is best-effort completion: a failed stage
// is recorded and the next stage still runs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/ahouse2/co-counsel-nexus-sub001/internal/bus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/consensus"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/core"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/logging"
	"github.com/ahouse2/co-counsel-nexus-sub001/internal/swarm"
)

// Stage names, in execution order.
const (
	StageNarrativeAnalysis = "narrative_analysis"
	StageLegalResearch     = "legal_research"
	StageTrialPreparation  = "trial_preparation"
	StageForensicScan      = "forensic_scan"
	StageDrafting          = "drafting"
	StageOutcomeSimulation = "outcome_simulation"
)

// StageSpec binds a stage to the swarm it invokes and how that swarm's
// outputs are combined.
type StageSpec struct {
	Name      string
	Swarm     string
	Consensus core.ConsensusConfig
}

// DefaultStages returns the fixed master sequence.
func DefaultStages() []StageSpec {
	majority := core.DefaultConsensusConfig()

	weighted := core.DefaultConsensusConfig()
	weighted.Method = core.MethodWeightedAverage

	debate := core.DefaultConsensusConfig()
	debate.Method = core.MethodDebateAndRefine

	return []StageSpec{
		{Name: StageNarrativeAnalysis, Swarm: "narrative", Consensus: debate},
		{Name: StageLegalResearch, Swarm: "research", Consensus: majority},
		{Name: StageTrialPreparation, Swarm: "trial_prep", Consensus: majority},
		{Name: StageForensicScan, Swarm: "forensic", Consensus: majority},
		{Name: StageDrafting, Swarm: "drafting", Consensus: debate},
		{Name: StageOutcomeSimulation, Swarm: "simulation", Consensus: weighted},
	}
}

// StageResult records one stage's outcome in a run.
type StageResult struct {
	Stage      string  `json:"stage"`
	Swarm      string  `json:"swarm"`
	Completed  bool    `json:"completed"`
	Confidence float64 `json:"confidence,omitempty"`
	Agents     int     `json:"agents,omitempty"`
	Written    bool    `json:"written,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// Report is the partial-completion record of one pipeline run. There is no
// single pass/fail flag on purpose.
type Report struct {
	CaseID     string        `json:"case_id"`
	TriggerID  string        `json:"trigger_event_id,omitempty"`
	Stages     []StageResult `json:"stages"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// CompletedStages lists the stages that succeeded.
func (r *Report) CompletedStages() []string {
	var names []string
	for _, s := range r.Stages {
		if s.Completed {
			names = append(names, s.Stage)
		}
	}
	return names
}

// Pipeline chains the six stage swarms together.
type Pipeline struct {
	stages    []StageSpec
	registry  *swarm.Registry
	gateways  map[string]*swarm.Gateway
	self      *swarm.Gateway
	mechanism *consensus.Mechanism
	orch      *bus.Bus
	logger    *logging.Logger
	reportDir string
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithStages overrides the stage sequence.
func WithStages(stages []StageSpec) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

// WithReportDir enables writing a JSON run report under dir.
func WithReportDir(dir string) Option {
	return func(p *Pipeline) {
		p.reportDir = dir
	}
}

// New creates a pipeline. gateways maps swarm name to that swarm's gateway;
// self is the pipeline's own gateway, used for coordinator notifications.
func New(registry *swarm.Registry, gateways map[string]*swarm.Gateway, self *swarm.Gateway, mechanism *consensus.Mechanism, orch *bus.Bus, logger *logging.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		stages:    DefaultStages(),
		registry:  registry,
		gateways:  gateways,
		self:      self,
		mechanism: mechanism,
		orch:      orch,
		logger:    logger.With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Bind subscribes the pipeline to the batch-ingestion-complete event.
func (p *Pipeline) Bind(b *bus.Bus) {
	b.Subscribe(core.EventBatchIngestionComplete, func(ctx context.Context, ev core.SystemEvent) error {
		p.Run(ctx, ev.CaseID, ev.ID, ev.Payload)
		return nil
	})
}

// Run executes every stage in order, each inside its own failure boundary,
// and reports partial completion. It always finishes: the activity entry,
// the coordinator notification, and the completion event are emitted no
// matter how many stages succeeded.
func (p *Pipeline) Run(ctx context.Context, caseID, triggerID string, payload map[string]any) *Report {
	report := &Report{
		CaseID:    caseID,
		TriggerID: triggerID,
		StartedAt: time.Now(),
	}

	p.logger.Info("pipeline started", "case_id", caseID, "stages", len(p.stages))

	for _, spec := range p.stages {
		report.Stages = append(report.Stages, p.runStage(ctx, spec, caseID, payload))
	}
	report.FinishedAt = time.Now()

	completed := report.CompletedStages()
	p.logger.Info("pipeline finished",
		"case_id", caseID,
		"completed", len(completed),
		"total", len(p.stages),
	)

	if p.orch != nil {
		p.orch.RecordActivity(core.NewActivityEntry("pipeline", core.ActivityPipeline, "pipeline complete", caseID).
			WithDetail("completed_stages", completed).
			WithDetail("total_stages", len(p.stages)))
	}
	if p.self != nil {
		p.self.ReportToCoordinator("pipeline complete", map[string]any{
			"completed_stages": completed,
			"total_stages":     len(p.stages),
		}, caseID)
	}
	if p.orch != nil {
		p.orch.Publish(core.NewSystemEvent(core.EventPipelineCompleted, caseID, "pipeline", map[string]any{
			"completed_stages": completed,
			"total_stages":     len(p.stages),
			"trigger_event_id": triggerID,
		}))
	}

	if err := p.writeReport(report); err != nil {
		p.logger.Warn("report write failed", "case_id", caseID, "error", err)
	}

	return report
}

// runStage is the per-stage failure boundary.
func (p *Pipeline) runStage(ctx context.Context, spec StageSpec, caseID string, payload map[string]any) (result StageResult) {
	result = StageResult{Stage: spec.Name, Swarm: spec.Swarm}
	logger := p.logger.WithStage(spec.Name).WithCase(caseID)

	defer func() {
		if r := recover(); r != nil {
			result.Completed = false
			result.Err = fmt.Sprintf("stage panicked: %v", r)
			p.recordStageError(spec, caseID, result.Err)
		}
	}()

	invoker, err := p.registry.Get(spec.Swarm)
	if err != nil {
		result.Err = err.Error()
		p.recordStageError(spec, caseID, result.Err)
		return result
	}
	gateway, ok := p.gateways[spec.Swarm]
	if !ok {
		result.Err = "no gateway for swarm " + spec.Swarm
		p.recordStageError(spec, caseID, result.Err)
		return result
	}

	bag := gateway.QueryContext(ctx, caseID, swarm.FullContext)
	for k, v := range payload {
		bag["batch_"+k] = v
	}

	outputs, err := invoker.Invoke(ctx, stageTarget(spec, caseID, payload), bag)
	if err != nil {
		result.Err = core.ErrStage(spec.Name, err.Error()).Error()
		p.recordStageError(spec, caseID, result.Err)
		return result
	}

	consensusResult := p.mechanism.Reach(ctx, spec.Swarm, caseID, outputs, spec.Consensus)
	result.Agents = len(outputs)
	result.Confidence = consensusResult.Confidence
	result.Written = gateway.WriteConsensus(ctx, consensusResult)
	result.Completed = true

	gateway.SendMessage(core.BroadcastName, core.MessageConsensus, map[string]any{
		"stage":          spec.Name,
		"consensus_type": consensusResult.ConsensusType,
		"confidence":     consensusResult.Confidence,
		"result_id":      consensusResult.ID,
	}, caseID)

	logger.Info("stage completed",
		"agents", len(outputs),
		"confidence", consensusResult.Confidence,
		"written", result.Written,
	)
	return result
}

func (p *Pipeline) recordStageError(spec StageSpec, caseID, msg string) {
	p.logger.Error("stage failed", "stage", spec.Name, "case_id", caseID, "error", msg)
	if p.orch != nil {
		p.orch.RecordActivity(core.NewActivityEntry("pipeline", core.ActivityStageError, msg, caseID).
			WithDetail("stage", spec.Name).
			WithDetail("swarm", spec.Swarm))
	}
}

func stageTarget(spec StageSpec, caseID string, payload map[string]any) string {
	if t, ok := payload["target"].(string); ok && t != "" {
		return t
	}
	return caseID
}

// writeReport persists the run report atomically under the report dir.
func (p *Pipeline) writeReport(report *Report) error {
	if p.reportDir == "" {
		return nil
	}
	if err := os.MkdirAll(p.reportDir, 0o750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("pipeline-%s-%s.json", report.CaseID, report.StartedAt.Format("20060102-150405"))
	return renameio.WriteFile(filepath.Join(p.reportDir, name), data, 0o640)
}
