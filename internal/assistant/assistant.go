// Package assistant answers portfolio chat messages with rule-based replies and
// classifies messages by type, intent and mentioned technologies. No model is
// called; configured providers are reported for informational purposes only.
package assistant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// MaxMessageLength caps the size of an incoming message.
const MaxMessageLength = 4000

const (
	chatConfidence     = 0.85
	classifyConfidence = 0.78
)

// Request is a chat or classification request.
type Request struct {
	Message   string         `json:"message" validate:"required,max=4000"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ProviderInfo describes the provider a reply is attributed to.
type ProviderInfo struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Endpoint     *string `json:"endpoint"`
	Latency      float64 `json:"latency"`
	TokensUsed   int     `json:"tokens_used"`
	CostEstimate float64 `json:"cost_estimate"`
}

// ChatResponse is the reply to a chat request.
type ChatResponse struct {
	ContentType    string       `json:"content_type"`
	Content        string       `json:"content"`
	Confidence     float64      `json:"confidence"`
	ProviderInfo   ProviderInfo `json:"provider_info"`
	Suggestions    []string     `json:"suggestions,omitempty"`
	ProcessingTime float64      `json:"processing_time"`
}

// MessageType is the coarse kind of a message.
type MessageType string

const (
	TypeQuestion     MessageType = "question"
	TypeCommand      MessageType = "command"
	TypeSearch       MessageType = "search"
	TypeConversation MessageType = "conversation"
)

// Classification is the result of classifying a message.
type Classification struct {
	Type       MessageType    `json:"type"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Entities   map[string]any `json:"entities"`
}

// Status reports assistant availability.
type Status struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Providers  map[string]bool   `json:"providers"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Provider is a configured LLM provider.
type Provider struct {
	Name  string
	Model string
}

// Config configures a Service.
type Config struct {
	// Providers lists configured providers, primary first.
	Providers []Provider
	// Primary names the provider replies are attributed to.
	Primary      string
	CacheEnabled bool
}

// Service answers and classifies messages.
type Service struct {
	providers    map[string]Provider
	primary      string
	cacheEnabled bool
	logger       *zap.Logger
	validate     *validator.Validate
	now          func() time.Time
}

// New creates a Service. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	providers := make(map[string]Provider, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers[p.Name] = p
	}
	return &Service{
		providers:    providers,
		primary:      cfg.Primary,
		cacheEnabled: cfg.CacheEnabled,
		logger:       logger,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// Validate checks a request against the message constraints.
func (s *Service) Validate(req Request) error {
	if err := s.validate.Struct(req); err != nil {
		return &RequestError{Cause: err}
	}
	return nil
}

// Chat returns the canned reply matching the message's first keyword rule.
func (s *Service) Chat(req Request) (*ChatResponse, error) {
	start := s.now()
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Processing AI chat request", zap.String("user_id", req.UserID))

	reply := chatReply(req.Message)
	return &ChatResponse{
		ContentType:    "text",
		Content:        reply,
		Confidence:     chatConfidence,
		ProviderInfo:   s.providerInfo(s.primary),
		ProcessingTime: s.now().Sub(start).Seconds(),
	}, nil
}

// Classify determines message type, intent and mentioned technologies.
func (s *Service) Classify(req Request) (*Classification, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Classifying message", zap.String("preview", preview(req.Message, 50)))

	return &Classification{
		Type:       messageType(req.Message),
		Intent:     intent(req.Message),
		Confidence: classifyConfidence,
		Entities:   entities(req.Message),
	}, nil
}

// Status is operational when at least one provider is configured, otherwise degraded.
func (s *Service) Status() Status {
	providers := make(map[string]bool, len(s.providers))
	for name := range s.providers {
		providers[name] = true
	}

	cache := "disabled"
	if s.cacheEnabled {
		cache = "operational"
	}

	status := "degraded"
	if len(providers) > 0 {
		status = "operational"
	}

	return Status{
		Status: status,
		Components: map[string]string{
			"llm_service": "operational",
			"cache":       cache,
		},
		Providers: providers,
		Timestamp: s.now().UTC(),
	}
}

// ProviderCount returns the number of configured providers.
func (s *Service) ProviderCount() int {
	return len(s.providers)
}

func (s *Service) providerInfo(name string) ProviderInfo {
	p, ok := s.providers[name]
	if !ok {
		return ProviderInfo{Provider: name, Model: "unknown"}
	}
	return ProviderInfo{
		Provider:     p.Name,
		Model:        p.Model,
		Latency:      0.1,
		TokensUsed:   150,
		CostEstimate: 0.002,
	}
}

func preview(msg string, n int) string {
	r := []rune(msg)
	if len(r) <= n {
		return msg
	}
	return string(r[:n]) + "..."
}

// RequestError reports an invalid assistant request.
type RequestError struct {
	Cause error
}

func (e *RequestError) Error() string {
	var errs validator.ValidationErrors
	errors.As(e.Cause, &errs)
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			return "message is required"
		case "max":
			return fmt.Sprintf("message exceeds %d characters", MaxMessageLength)
		}
	}
	return "invalid request: " + e.Cause.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
