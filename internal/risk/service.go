package risk

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mindlyhq/mindly/internal/models"
)

const defaultTimeout = 20 * time.Second

const (
	fallbackSupport = "I'm here for you and I want to help. Would you like to tell me a little more about what's on your mind?"
	fallbackUrgent  = "I'm really glad you told me. You don't have to carry this alone. Please reach out to a campus counsellor, someone you trust, or your local emergency services right now. You can also type MENU to book a session with a counsellor."
)

var tierToken = regexp.MustCompile(`\b(LOW|MODERATE|HIGH|CRITICAL)\b`)

// Service classifies and answers emotional-support messages. None of its methods fail:
// backend errors, timeouts and panics degrade to safe defaults.
type Service struct {
	gen     Generator
	timeout time.Duration
	log     *zap.Logger
}

func NewService(gen Generator, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gen: gen, timeout: timeout, log: log}
}

// Classify returns the risk tier of text, or Low when the backend cannot answer.
func (s *Service) Classify(ctx context.Context, text string) models.Tier {
	out, err := s.generate(ctx, classifierPrompt, text)
	if err != nil {
		s.log.Warn("risk.Service.Classify falling back to LOW",
			zap.String("failure", string(ClassifyFailure(err))),
			zap.Error(err),
		)
		return models.TierLow
	}
	tier := models.ParseTier(out)
	s.log.Debug("risk.Service.Classify", zap.String("tier", string(tier)))
	return tier
}

// Respond returns a supportive reply whose urgency follows tier.
func (s *Service) Respond(ctx context.Context, text string, tier models.Tier) string {
	out, err := s.generate(ctx, responderPrompt(tier), text)
	if err != nil {
		s.log.Warn("risk.Service.Respond using fallback reply",
			zap.String("tier", string(tier)),
			zap.String("failure", string(ClassifyFailure(err))),
			zap.Error(err),
		)
		return Fallback(tier)
	}
	reply := scrubTier(out)
	if reply == "" {
		return Fallback(tier)
	}
	return reply
}

// Fallback is the canned reply used when generation is unavailable.
func Fallback(tier models.Tier) string {
	if tier == models.TierHigh || tier == models.TierCritical {
		return fallbackUrgent
	}
	return fallbackSupport
}

func (s *Service) generate(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		out, err := s.gen.Generate(ctx, system, user)
		done <- result{out: out, err: err}
	}()

	// A backend that ignores ctx still cannot hold the turn past the deadline.
	select {
	case r := <-done:
		if r.err == nil && strings.TrimSpace(r.out) == "" {
			r.err = fmt.Errorf("generator returned no candidates")
		}
		return r.out, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// scrubTier removes upper-case tier labels that leak into generated text.
func scrubTier(s string) string {
	s = tierToken.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
