package extract

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"
)

// Orchestrator runs full extraction passes: gatekeeper first, then the
// selected layer extractors concurrently, aggregating their tagged
// outcomes into one Result.
type Orchestrator struct {
	gatekeeper *Gatekeeper
	layers     map[Layer]*Extractor
	persona    *PersonaExtractor
	logger     *log.Logger
	node       *snowflake.Node
}

// NewOrchestrator builds an orchestrator with one extractor per layer,
// all sharing the given dependencies.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	deps = deps.withDefaults()

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, newError("orchestrator.new", err)
	}

	layers := make(map[Layer]*Extractor, len(AllLayers()))
	for _, layer := range AllLayers() {
		extractor, err := NewLayerExtractor(layer, deps)
		if err != nil {
			return nil, newError("orchestrator.new", err)
		}
		layers[layer] = extractor
	}

	return &Orchestrator{
		gatekeeper: NewGatekeeper(deps),
		layers:     layers,
		persona:    NewPersonaExtractor(deps),
		logger:     deps.Logger,
		node:       node,
	}, nil
}

// selectLayers decides which layers to invoke. An explicit job subset
// wins; force runs all layers; otherwise the gatekeeper decision rules.
func (o *Orchestrator) selectLayers(job Job, decision *GatekeeperDecision) []Layer {
	if len(job.Layers) > 0 {
		return job.Layers
	}
	if job.Force {
		return AllLayers()
	}
	var selected []Layer
	for _, layer := range AllLayers() {
		if decision.Decision(layer).ShouldExtract {
			selected = append(selected, layer)
		}
	}
	return selected
}

// Run executes one extraction pass for the job. The gatekeeper runs
// first; a gatekeeper failure fails the whole run. Selected layers run
// concurrently and independently: one layer's failure is recorded in
// its output slot without affecting the others.
func (o *Orchestrator) Run(ctx context.Context, job Job, opts *Options) (*Result, error) {
	const op = "orchestrator.run"

	opts = opts.normalized()
	if opts.SourceID == "" {
		opts.SourceID = job.SourceID
	}
	if opts.UserID == "" {
		opts.UserID = job.UserID
	}

	result := &Result{
		RunID:   o.node.Generate().Int64(),
		Job:     job,
		Outputs: make(map[Layer]LayerOutput),
	}

	decision, err := o.gatekeeper.Check(ctx, opts)
	if err != nil {
		return nil, newError(op, fmt.Errorf("gatekeeper: %w", err))
	}
	result.Decision = decision

	selected := o.selectLayers(job, decision)
	result.Processed = len(selected)
	if len(selected) == 0 {
		o.logger.Info("no layers selected", "run_id", result.RunID, "source_id", job.SourceID)
		return result, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, layer := range selected {
		extractor, ok := o.layers[layer]
		if !ok {
			mu.Lock()
			result.Outputs[layer] = LayerOutput{Err: fmt.Errorf("%w: %q", ErrUnknownLayer, layer)}
			result.Failed++
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(layer Layer, extractor *Extractor) {
			defer wg.Done()
			data, err := extractor.StructuredCall(ctx, opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				o.logger.Error("layer extraction failed",
					"run_id", result.RunID, "layer", layer, "error", err)
				result.Outputs[layer] = LayerOutput{Err: err}
				result.Failed++
				return
			}
			result.Outputs[layer] = LayerOutput{Data: data}
			result.Succeeded++
		}(layer, extractor)
	}
	wg.Wait()

	o.logger.Info("extraction run complete",
		"run_id", result.RunID,
		"source_id", job.SourceID,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}

// ExtractPersona runs the persona extractor.
func (o *Orchestrator) ExtractPersona(ctx context.Context, opts *PersonaOptions) (*PersonaResult, error) {
	return o.persona.ToolCall(ctx, opts)
}

// Layer returns the extractor for one layer, for callers that invoke a
// single layer directly.
func (o *Orchestrator) Layer(layer Layer) (*Extractor, error) {
	extractor, ok := o.layers[layer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, layer)
	}
	return extractor, nil
}

// Gatekeeper exposes the decision stage for callers that only need the
// verdicts.
func (o *Orchestrator) Gatekeeper() *Gatekeeper {
	return o.gatekeeper
}
