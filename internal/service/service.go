// Package service runs chat turns: interpret, dispatch, chain and summarize.
package service

import (
	"context"
	"fmt"
	"os"

	"github.com/xiaot623/librarydesk/internal/adapter/llm"
	"github.com/xiaot623/librarydesk/internal/config"
	"github.com/xiaot623/librarydesk/internal/domain"
	"github.com/xiaot623/librarydesk/internal/policy"
	"github.com/xiaot623/librarydesk/internal/repository"
	"github.com/xiaot623/librarydesk/internal/tools"
)

// Publisher receives session events for live subscribers.
type Publisher interface {
	Publish(event domain.SessionEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.SessionEvent) {}

type Service struct {
	store        repository.Store
	llmClient    llm.LLMClient
	dispatcher   *tools.Dispatcher
	policyEngine *policy.Engine
	publisher    Publisher
	config       *config.Config
	systemPrompt string
}

// New creates the chat service. A nil publisher discards events.
func New(store repository.Store, llmClient llm.LLMClient, dispatcher *tools.Dispatcher, cfg *config.Config, policyEngine *policy.Engine, publisher Publisher) (*Service, error) {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	s := &Service{
		store:        store,
		llmClient:    llmClient,
		dispatcher:   dispatcher,
		policyEngine: policyEngine,
		publisher:    publisher,
		config:       cfg,
	}

	if cfg.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.SystemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read system prompt: %w", err)
		}
		s.systemPrompt = string(data)
	} else {
		s.systemPrompt = buildSystemPrompt(dispatcher.Registry().Definitions())
	}
	return s, nil
}

// Tools returns the tool definitions offered to the model.
func (s *Service) Tools() []tools.Definition {
	return s.dispatcher.Registry().Definitions()
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping()
}
