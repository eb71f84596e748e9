package alerts

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ratewatch/ratewatch/internal/config"
	"github.com/ratewatch/ratewatch/internal/panel"
)

// defaultCooldown applies when a rule does not set one.
const defaultCooldown = 15 * time.Minute

// Alert is one fired rule instance, as listed on the API.
type Alert struct {
	Rule      string    `json:"rule"`
	Channel   string    `json:"channel"`
	Severity  string    `json:"severity"`
	Condition string    `json:"condition"`
	Value     float64   `json:"value"`
	FiredAt   time.Time `json:"fired_at"`
}

// Source yields the summaries to evaluate. *panel.Panel satisfies it.
type Source interface {
	Summaries() []panel.ChannelSummary
}

// Engine evaluates alert rules against channel summaries on every tick.
// All exported methods are safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	rules     []config.AlertRule
	webhooks  []config.WebhookConfig
	lastFired map[string]time.Time // key: rule "\x00" channel
	active    map[string]Alert

	deliver func(Alert) // swapped in tests
	now     func() time.Time
}

// New creates an Engine from the alerts section of the config.
func New(cfg config.AlertsConfig) *Engine {
	e := &Engine{
		rules:     cfg.Rules,
		webhooks:  cfg.Webhooks,
		lastFired: make(map[string]time.Time),
		active:    make(map[string]Alert),
		now:       time.Now,
	}
	e.deliver = e.deliverWebhooks
	return e
}

// SetRules replaces the rule set (config hot reload). Cooldown state for
// rules that survived is kept.
func (e *Engine) SetRules(rules []config.AlertRule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	keep := make(map[string]bool, len(rules))
	for _, r := range rules {
		keep[r.Name] = true
	}
	for key := range e.lastFired {
		if name, _, _ := strings.Cut(key, "\x00"); !keep[name] {
			delete(e.lastFired, key)
		}
	}
	for key := range e.active {
		if name, _, _ := strings.Cut(key, "\x00"); !keep[name] {
			delete(e.active, key)
		}
	}
	e.rules = rules
}

// Evaluate runs every rule against every summary. A rule fires for a channel
// when its condition holds and the (rule, channel) pair is outside its
// cooldown window; fired alerts are delivered asynchronously and recorded as
// active. A rule whose condition no longer holds clears the pair.
func (e *Engine) Evaluate(summaries []panel.ChannelSummary) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for _, rule := range e.rules {
		cooldown := rule.Cooldown
		if cooldown <= 0 {
			cooldown = defaultCooldown
		}
		for _, cs := range summaries {
			key := rule.Name + "\x00" + cs.Channel
			fires, value := evalCondition(rule.Condition, cs)
			if !fires {
				delete(e.active, key)
				continue
			}
			if last, ok := e.lastFired[key]; ok && now.Sub(last) < cooldown {
				continue
			}
			e.lastFired[key] = now

			a := Alert{
				Rule:      rule.Name,
				Channel:   cs.Channel,
				Severity:  rule.Severity,
				Condition: rule.Condition,
				Value:     value,
				FiredAt:   now,
			}
			e.active[key] = a
			slog.Warn("alerts: rule fired",
				"rule", a.Rule, "channel", a.Channel,
				"severity", a.Severity, "value", a.Value)
			go e.deliver(a)
		}
	}
}

// Active returns the currently firing alerts, ordered by rule then channel.
func (e *Engine) Active() []Alert {
	e.mu.Lock()
	out := make([]Alert, 0, len(e.active))
	for _, a := range e.active {
		out = append(out, a)
	}
	e.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Rule != out[j].Rule {
			return out[i].Rule < out[j].Rule
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}

// Run evaluates src every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration, src Source) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			e.Evaluate(src.Summaries())
		}
	}
}
