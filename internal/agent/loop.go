package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// Loop runs the reasoning iteration for one task at a time. It holds no
// state between runs; everything a run produces is in its Result.
type Loop struct {
	generator Generator
	scorer    Scorer
	config    LoopConfig
	logger    *slog.Logger
}

// NewLoop creates a Loop with the given generator, scorer, and config.
func NewLoop(g Generator, s Scorer, cfg LoopConfig, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		generator: g,
		scorer:    s,
		config:    cfg.withDefaults(),
		logger:    logger.With("component", "agent"),
	}
}

// Run executes the reasoning loop for a task. Each iteration calls the
// generator synchronously, scores the response, and either returns
// (threshold reached, confidence below the floor, budget exhausted) or
// refines the prompt and continues. A generator failure is scored as a
// zero-confidence response rather than aborting the run; context
// cancellation aborts immediately.
func (l *Loop) Run(ctx context.Context, task, contextText string) (Result, error) {
	prompt := initialPrompt(task, contextText)

	var trace []Step

	for iteration := 1; iteration <= l.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return Result{Trace: trace, Iterations: iteration - 1}, err
		}

		response, err := l.generator.Generate(ctx, prompt)
		confidence := 0.0
		if err != nil {
			if ctx.Err() != nil {
				return Result{Trace: trace, Iterations: iteration - 1}, ctx.Err()
			}
			l.logger.Warn("generator failed, scoring as zero confidence",
				"iteration", iteration, "error", err)
			response = fmt.Sprintf("[generation error] %v", err)
		} else {
			confidence = l.scorer.Score(response)
		}

		trace = append(trace, Step{
			Iteration:  iteration,
			Response:   response,
			Confidence: confidence,
		})

		l.logger.Info("reasoning iteration",
			"iteration", iteration, "confidence", confidence)

		if confidence >= l.config.ConfidenceThreshold {
			return Result{
				Result:     response,
				Iterations: iteration,
				Confidence: confidence,
				Trace:      trace,
				Status:     StatusSuccess,
			}, nil
		}

		if confidence < l.config.MinConfidence && *l.config.EscalateOnLowConfidence {
			l.logger.Warn("low confidence, escalating", "confidence", confidence)
			return Result{
				Result:     response,
				Iterations: iteration,
				Confidence: confidence,
				Trace:      trace,
				Status:     StatusEscalate,
				Reason:     "confidence_too_low",
			}, nil
		}

		prompt = refinedPrompt(task, response, confidence)
	}

	last := trace[len(trace)-1]
	return Result{
		Result:     last.Response,
		Iterations: l.config.MaxIterations,
		Confidence: last.Confidence,
		Trace:      trace,
		Status:     StatusMaxIterations,
	}, nil
}

// initialPrompt builds the first prompt, prefixing prior context when
// available.
func initialPrompt(task, contextText string) string {
	if contextText != "" {
		return fmt.Sprintf("Context: %s\n\nTask: %s\n\nProvide a detailed, step-by-step answer.", contextText, task)
	}
	return fmt.Sprintf("Task: %s\n\nProvide a detailed, step-by-step answer.", task)
}

// refinedPrompt embeds the previous attempt and its score, asking the
// model to address weak points.
func refinedPrompt(task, previousResponse string, confidence float64) string {
	return fmt.Sprintf(`Original task: %s

Previous attempt: %s

This response had confidence of %.2f. Please refine your answer:
- Address any unclear points
- Add more specific details
- Verify logical consistency
`, task, previousResponse, confidence)
}
