package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/MarkkuSeppala/asuntoanalyysi-2-sub000/utils"
)

// jsonInstruction is appended to the system prompt of CallJSON.
const jsonInstruction = "\n\nVastaa pelkällä JSON-objektilla ilman muuta tekstiä."

// ServiceConfig holds the model and retry settings of a Service.
type ServiceConfig struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	MaxAttempts int
	BaseDelay   time.Duration
}

// Service calls the model with retry and error classification.
type Service struct {
	client Client
	cfg    ServiceConfig
	logger *utils.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewService creates a Service. Zero values fall back to three attempts, a
// 2 s base delay and 2048 output tokens.
func NewService(client Client, cfg ServiceConfig, logger *utils.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	return &Service{client: client, cfg: cfg, logger: logger, sleep: utils.SleepContext}
}

// Call returns the model's text reply to user under the system prompt.
func (s *Service) Call(ctx context.Context, system, user string) (string, error) {
	req := Request{
		Model:       s.cfg.Model,
		MaxTokens:   s.cfg.MaxTokens,
		System:      system,
		User:        user,
		Temperature: s.cfg.Temperature,
	}

	// Rate limits get twice the normal backoff.
	var lastCategory Category
	retry := &utils.RetryConfig{
		MaxAttempts: s.cfg.MaxAttempts,
		BaseDelay:   s.cfg.BaseDelay,
		ShouldRetry: func(err error) bool { return Classify(err).Retryable() },
		Sleep: func(ctx context.Context, d time.Duration) error {
			if lastCategory == CategoryRateLimited {
				d *= 2
			}
			return s.sleep(ctx, d)
		},
		Logger: s.logger,
	}

	var reply string
	start := time.Now()
	err := retry.Do(ctx, "llm call", func(ctx context.Context) error {
		text, err := s.client.Complete(ctx, req)
		if err != nil {
			lastCategory = Classify(err)
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		s.logger.Error("[llm] Call failed (%s): %v", Classify(err), err)
		return "", err
	}
	s.logger.Info("[llm] %s replied in %v", s.cfg.Model, time.Since(start).Round(time.Millisecond))
	return reply, nil
}

// CallJSON asks for a JSON object and returns it without surrounding prose
// or code fences.
func (s *Service) CallJSON(ctx context.Context, system, user string) (string, error) {
	reply, err := s.Call(ctx, system+jsonInstruction, user)
	if err != nil {
		return "", err
	}
	obj := ExtractJSON(reply)
	if !json.Valid([]byte(obj)) {
		return "", eris.Errorf("llm reply is not a json object: %.80q", reply)
	}
	return obj, nil
}
