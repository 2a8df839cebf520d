package engine

import (
	"context"

	"go.uber.org/zap"
)

// Oracle is the reasoning client consulted for an advisory judgment. A nil
// Oracle, or any error it returns, routes the run to the fallback rules.
type Oracle interface {
	Consult(ctx context.Context, evidence EvidencePayload) (string, error)
}

// Renderer persists the final verdict. Its error is the run's only fatal
// failure.
type Renderer interface {
	Render(v Verdict, rep *AggregatedReport, meta RunMetadata) (string, error)
}

// Run states, in pipeline order. Purely diagnostic.
type runState string

const (
	stateCollected       runState = "collected"
	stateAggregated      runState = "aggregated"
	stateOracleAttempted runState = "oracle_attempted"
	stateOracleSucceeded runState = "oracle_succeeded"
	stateOracleFailed    runState = "oracle_failed"
	stateFallbackApplied runState = "fallback_applied"
	stateDecided         runState = "decided"
	stateReported        runState = "reported"
)

// PipelineOptions is the immutable per-run configuration of the engine.
type PipelineOptions struct {
	PerTierCap    int
	MessageLimit  int
	EvidenceLimit int
	HighThreshold int
}

// Pipeline executes one complete decision run: ingest, aggregate, compose
// evidence, consult the oracle, parse or fall back, render. Holds no state
// across runs.
type Pipeline struct {
	classifier *Classifier
	oracle     Oracle
	renderer   Renderer
	opts       PipelineOptions
	log        *zap.SugaredLogger
}

func NewPipeline(classifier *Classifier, oracle Oracle, renderer Renderer, opts PipelineOptions, log *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		oracle:     oracle,
		renderer:   renderer,
		opts:       opts,
		log:        log,
	}
}

// Outcome is everything a caller needs after a run.
type Outcome struct {
	Verdict    Verdict
	Report     *AggregatedReport
	ReportPath string
}

// Run executes the pipeline over one results directory. The returned error
// is non-nil only for a RenderError; every failure on the oracle path
// degrades to the fallback rules instead.
func (p *Pipeline) Run(ctx context.Context, resultsDir string, meta RunMetadata) (*Outcome, error) {
	ingestor := NewIngestor(p.log)
	ingested := ingestor.Ingest(resultsDir)
	p.transition(stateCollected, "findings", len(ingested.Findings), "warnings", len(ingested.Warnings))

	rep := Aggregate(ingested, p.classifier, p.opts.PerTierCap)
	p.transition(stateAggregated, "total", rep.TotalFindings)

	verdict := p.decide(ctx, rep, meta)
	p.transition(stateDecided, "decision", verdict.Decision, "risk", verdict.RiskLevel, "source", verdict.Source)

	path, err := p.renderer.Render(verdict, rep, meta)
	if err != nil {
		return nil, err
	}
	p.transition(stateReported, "path", path)

	return &Outcome{Verdict: verdict, Report: rep, ReportPath: path}, nil
}

// decide runs the oracle path and falls back to the rules on any failure.
func (p *Pipeline) decide(ctx context.Context, rep *AggregatedReport, meta RunMetadata) Verdict {
	if p.oracle == nil {
		p.log.Infow("no oracle configured, using fallback rules")
		p.transition(stateFallbackApplied)
		return FallbackVerdict(rep, p.opts.HighThreshold)
	}

	evidence := ComposeEvidence(rep, meta, EvidenceOptions{
		MessageLimit:  p.opts.MessageLimit,
		EvidenceLimit: p.opts.EvidenceLimit,
	})

	p.transition(stateOracleAttempted, "evidence_bytes", len(evidence.Text))
	answer, err := p.oracle.Consult(ctx, evidence)
	if err != nil {
		p.transition(stateOracleFailed, "error", err)
		p.transition(stateFallbackApplied)
		return FallbackVerdict(rep, p.opts.HighThreshold)
	}
	p.transition(stateOracleSucceeded, "answer_bytes", len(answer))

	verdict, err := ParseVerdict(answer, p.log)
	if err != nil {
		p.transition(stateOracleFailed, "error", err)
		p.transition(stateFallbackApplied)
		return FallbackVerdict(rep, p.opts.HighThreshold)
	}

	// The oracle may grade risk inconsistently with its own decision. That
	// ambiguity is upstream of this engine: log it, never reconcile it.
	if inconsistent(verdict) {
		p.log.Warnw("oracle decision and risk level disagree",
			"decision", verdict.Decision, "risk", verdict.RiskLevel)
	}
	return verdict
}

func inconsistent(v Verdict) bool {
	blockish := v.RiskLevel == RiskHigh || v.RiskLevel == RiskCritical
	if v.Decision == BlockDeployment {
		return !blockish
	}
	return blockish
}

func (p *Pipeline) transition(s runState, kv ...interface{}) {
	p.log.Debugw("state "+string(s), kv...)
}
