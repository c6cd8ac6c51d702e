package ai

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/job-alert/internal/jobs"
	"github.com/spigell/job-alert/internal/logger"
	"github.com/spigell/job-alert/internal/utils"
)

const defaultMaxLogLength = 200

// Shortlister asks the model to pick jobs from a batch.
type Shortlister struct {
	generator Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewShortlister(generator Generator, log *zap.Logger, maxLogLength int) *Shortlister {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &Shortlister{
		generator: generator,
		logger:    logger.WithCommonFields(log, "", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

// Shortlist sends the batch to the model. When the provider rejects the payload size the batch is
// halved and retried. It returns the raw model text and the jobs actually sent.
func (s *Shortlister) Shortlist(ctx context.Context, in PromptInput, batch jobs.List) (string, jobs.List, error) {
	if len(batch) == 0 {
		return "", nil, errors.New("no jobs to send to the model")
	}

	for {
		prompt, err := BuildPrompt(in, Payload(batch, 0))
		if err != nil {
			return "", nil, err
		}

		s.logger.Debug("generate content request",
			zap.Int("jobs", len(batch)),
			zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
			zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
		)

		raw, err := s.generator.GenerateContent(ctx, SystemInstruction, prompt)
		if err == nil {
			s.logger.Debug("generate content response",
				zap.Int("response_length", utf8.RuneCountInString(raw)),
				zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
			)
			return raw, batch, nil
		}

		if !errors.Is(err, ErrPayloadTooLarge) || len(batch) <= 1 {
			return "", batch, fmt.Errorf("generate content: %w", err)
		}

		next := NextBatchSize(len(batch))
		s.logger.Warn("payload too large, retrying with fewer jobs",
			zap.Int("jobs", len(batch)),
			zap.Int("next", next),
		)
		batch = batch[:next]
	}
}

// NextBatchSize halves n, staying at least 1 and strictly below n.
func NextBatchSize(n int) int {
	next := n / 2
	if next < 1 {
		next = 1
	}
	if next == n {
		next--
	}
	return next
}
