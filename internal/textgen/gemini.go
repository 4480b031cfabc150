package textgen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// ModelConfig is one Gemini model with its free-tier request budget.
type ModelConfig struct {
	Name string
	RPM  int // requests per minute
	RPD  int // requests per day
}

// DefaultModels is the fallback chain used when none is configured: the
// stronger model first, the cheaper one as overflow.
var DefaultModels = []ModelConfig{
	{Name: "gemini-2.5-flash", RPM: 10, RPD: 250},
	{Name: "gemini-2.5-flash-lite", RPM: 15, RPD: 1000},
}

// Gemini is a Backend over the google.golang.org/genai client. It walks a
// model fallback chain, skipping models whose per-minute or per-day budget is
// spent and falling through on quota errors.
type Gemini struct {
	client *genai.Client
	models []ModelConfig

	mu           sync.Mutex
	dailyCount   map[string]int
	minuteCount  map[string]int
	lastResetDay time.Time
	lastResetMin time.Time
}

// NewGemini builds a Gemini backend. models may be nil to use DefaultModels.
func NewGemini(ctx context.Context, apiKey string, models []ModelConfig) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("textgen: gemini api key is required")
	}
	if len(models) == 0 {
		models = DefaultModels
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("textgen: create gemini client: %w", err)
	}
	now := time.Now()
	return &Gemini{
		client:       client,
		models:       models,
		dailyCount:   make(map[string]int),
		minuteCount:  make(map[string]int),
		lastResetDay: now,
		lastResetMin: now,
	}, nil
}

var _ Backend = (*Gemini)(nil)

// Name implements Backend.
func (g *Gemini) Name() string { return "gemini" }

// Generate implements Backend. Quota and availability errors on one model
// fall through to the next; when every model is exhausted the combined
// failure is reported as transient.
func (g *Gemini) Generate(ctx context.Context, instruction string) (string, error) {
	var lastErr error
	for _, m := range g.models {
		if !g.withinBudget(m) {
			continue
		}
		result, err := g.client.Models.GenerateContent(ctx, m.Name, genai.Text(instruction), nil)
		if err != nil {
			if isQuotaErr(err) {
				lastErr = err
				continue
			}
			return "", fmt.Errorf("textgen: gemini %s: %w", m.Name, err)
		}
		if result == nil || len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("textgen: gemini %s returned no candidates", m.Name)
			continue
		}
		g.recordUsage(m)
		return strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text), nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("textgen: all gemini models over budget")
	}
	return "", Transient(lastErr)
}

func isQuotaErr(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "429") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "exhausted") ||
		strings.Contains(s, "unavailable")
}

func (g *Gemini) withinBudget(m ModelConfig) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if now.YearDay() != g.lastResetDay.YearDay() || now.Year() != g.lastResetDay.Year() {
		g.dailyCount = make(map[string]int)
		g.lastResetDay = now
	}
	if now.Sub(g.lastResetMin) >= time.Minute {
		g.minuteCount = make(map[string]int)
		g.lastResetMin = now
	}
	return g.dailyCount[m.Name] < m.RPD && g.minuteCount[m.Name] < m.RPM
}

func (g *Gemini) recordUsage(m ModelConfig) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dailyCount[m.Name]++
	g.minuteCount[m.Name]++
}
