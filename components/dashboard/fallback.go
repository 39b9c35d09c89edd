package dashboard

import (
	"context"
	"fmt"
	"strconv"
)

// FallbackPolicy supplies the payload a slice shows when its fetch fails.
// Returning nil keeps whatever the slice already holds, or leaves it empty
// on first load.
type FallbackPolicy interface {
	Fallback(ctx context.Context, domain DomainDefinition, slice SliceDefinition, cause error) any
}

// FallbackFunc adapts a function to FallbackPolicy.
type FallbackFunc func(ctx context.Context, domain DomainDefinition, slice SliceDefinition, cause error) any

// Fallback calls f.
func (f FallbackFunc) Fallback(ctx context.Context, domain DomainDefinition, slice SliceDefinition, cause error) any {
	return f(ctx, domain, slice, cause)
}

// EmptyFallback never substitutes data.
type EmptyFallback struct{}

// Fallback returns nil.
func (EmptyFallback) Fallback(context.Context, DomainDefinition, SliceDefinition, error) any {
	return nil
}

// DemoFallback serves sample payloads so an offline dashboard still renders.
type DemoFallback struct {
	// Payloads is keyed by domain code, then slice name.
	Payloads map[string]map[string]any
}

// NewDemoFallback returns a fallback backed by DemoPayloads.
func NewDemoFallback() DemoFallback {
	return DemoFallback{Payloads: DemoPayloads()}
}

// Fallback returns the sample payload for the slice, if any.
func (f DemoFallback) Fallback(_ context.Context, domain DomainDefinition, slice SliceDefinition, _ error) any {
	if f.Payloads == nil {
		return nil
	}
	return f.Payloads[domain.Code][slice.Name]
}

func normalizeFallback(f FallbackPolicy) FallbackPolicy {
	if f == nil {
		return EmptyFallback{}
	}
	return f
}

// DemoEndpointPayloads flattens DemoPayloads for the given definitions into
// endpoint responses, ready to seed an analytics mock client.
func DemoEndpointPayloads(defs []DomainDefinition) map[string]any {
	payloads := DemoPayloads()
	out := map[string]any{}
	for _, def := range defs {
		for _, slice := range def.Slices {
			if payload, ok := payloads[def.Code][slice.Name]; ok {
				out[slice.Endpoint] = payload
			}
		}
	}
	return out
}

func demoDays(values ...float64) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = map[string]any{"date": fmt.Sprintf("2024-03-%02d", i+1), "value": v}
	}
	return out
}

// DemoPayloads returns sample backend payloads for the default domains, keyed
// by domain code then slice name. Payloads use the envelopes real engines use.
func DemoPayloads() map[string]map[string]any {
	return map[string]map[string]any{
		DomainCodeQuality: {
			"priorities": map[string]any{"priorities": []any{
				map[string]any{"id": "cq-1", "path": "internal/auth/session.go", "severity": "critical", "category": "security", "message": "token compared without constant time", "score": 9.4, "issue_count": 3},
				map[string]any{"id": "cq-2", "path": "internal/billing/invoice.go", "severity": "high", "category": "complexity", "message": "cyclomatic complexity 41", "score": 8.1, "issue_count": 5},
				map[string]any{"id": "cq-3", "path": "pkg/cache/lru.go", "severity": "medium", "category": "duplication", "message": "duplicated eviction logic", "score": 5.2, "issue_count": 2},
				map[string]any{"id": "cq-4", "path": "cmd/server/main.go", "severity": "low", "category": "style", "message": "exported function lacks doc comment", "score": 2.3, "issue_count": 1},
				map[string]any{"id": "cq-5", "path": "internal/api/router.go", "severity": "high", "category": "complexity", "message": "function exceeds 120 lines", "score": 7.6, "issue_count": 2},
			}},
			"summary":    map[string]any{"summary": map[string]any{"total_issues": 13, "quality_score": 72.5, "files_analyzed": 184}},
			"trends":     map[string]any{"data_points": demoDays(21, 19, 18, 16, 15, 13)},
			"categories": map[string]any{"by_category": map[string]any{"critical": 3, "high": 7, "medium": 2, "low": 1}},
			"rules": map[string]any{"rules": []any{
				map[string]any{"id": "rule-complexity", "name": "Cyclomatic complexity", "severity": "high", "enabled": true},
				map[string]any{"id": "rule-docs", "name": "Exported docs", "severity": "low", "enabled": false},
			}},
		},
		DomainBugPrediction: {
			"predictions": map[string]any{"predictions": []any{
				map[string]any{"id": "bp-1", "path": "internal/auth/session.go", "risk_level": "critical", "bug_probability": 0.91, "churn": 42, "complexity": 31, "recent_bugs": 4},
				map[string]any{"id": "bp-2", "path": "internal/billing/invoice.go", "risk_level": "high", "bug_probability": 0.74, "churn": 28, "complexity": 41, "recent_bugs": 2},
				map[string]any{"id": "bp-3", "path": "pkg/cache/lru.go", "risk_level": "medium", "bug_probability": 0.46, "churn": 11, "complexity": 18, "recent_bugs": 1},
				map[string]any{"id": "bp-4", "path": "internal/api/router.go", "risk_level": "low", "bug_probability": 0.12, "churn": 4, "complexity": 9, "recent_bugs": 0},
			}},
			"summary": map[string]any{"summary": map[string]any{"total_files": 4, "high_risk": 2, "model_accuracy": 0.87}},
			"trends":  map[string]any{"data_points": demoDays(0.52, 0.55, 0.49, 0.47, 0.44)},
		},
		DomainTechDebt: {
			"items": map[string]any{"debt_items": []any{
				map[string]any{"id": "td-1", "title": "Legacy XML importer", "type": "architecture", "severity": "high", "estimated_hours": 40, "interest": 3.5, "path": "internal/importer"},
				map[string]any{"id": "td-2", "title": "Missing integration tests", "type": "testing", "severity": "medium", "estimated_hours": 16, "interest": 1.2, "path": "internal/billing"},
				map[string]any{"id": "td-3", "title": "Outdated TLS config", "type": "security", "severity": "critical", "estimated_hours": 6, "interest": 4.0, "path": "cmd/server"},
				map[string]any{"id": "td-4", "title": "Copy-pasted validators", "type": "code", "severity": "low", "estimated_hours": 4, "interest": 0.3, "path": "pkg/forms"},
			}},
			"summary":    map[string]any{"summary": map[string]any{"total_items": 4, "total_hours": 66, "debt_ratio": 0.08}},
			"trends":     map[string]any{"data_points": demoDays(58, 61, 63, 66)},
			"categories": map[string]any{"by_category": []any{map[string]any{"category": "architecture", "count": 1}, map[string]any{"category": "testing", "count": 1}, map[string]any{"category": "security", "count": 1}, map[string]any{"category": "code", "count": 1}}},
		},
		DomainLogPatterns: {
			"patterns": map[string]any{"patterns": []any{
				map[string]any{"id": "lp-1", "template": "connection reset by peer <*>", "severity": "high", "count": 1284, "service": "gateway", "last_seen": "2024-03-06T10:42:00Z"},
				map[string]any{"id": "lp-2", "template": "slow query took <*> ms", "severity": "medium", "count": 532, "service": "orders", "last_seen": "2024-03-06T10:40:12Z"},
				map[string]any{"id": "lp-3", "template": "user <*> logged in", "severity": "info", "count": 9921, "service": "auth", "last_seen": "2024-03-06T10:43:55Z"},
				map[string]any{"id": "lp-4", "template": "panic: nil map write in <*>", "severity": "critical", "count": 7, "service": "billing", "last_seen": "2024-03-06T09:12:31Z"},
			}},
			"summary":    map[string]any{"summary": map[string]any{"total_logs": 11744, "unique_patterns": 4, "anomalies": 1}},
			"volume":     map[string]any{"data_points": demoDays(10400, 11020, 9870, 11744)},
			"severities": map[string]any{"by_category": map[string]any{"critical": 7, "high": 1284, "medium": 532, "info": 9921}},
		},
		DomainConversationFlow: {
			"intents": map[string]any{"intents": []any{
				map[string]any{"id": "cf-1", "intent": "reset_password", "outcome": "completed", "count": 840, "success_rate": 0.93, "avg_turns": 3.1, "drop_off": 0.04},
				map[string]any{"id": "cf-2", "intent": "billing_dispute", "outcome": "escalated", "count": 212, "success_rate": 0.41, "avg_turns": 7.8, "drop_off": 0.22},
				map[string]any{"id": "cf-3", "intent": "cancel_subscription", "outcome": "abandoned", "count": 96, "success_rate": 0.18, "avg_turns": 5.4, "drop_off": 0.57},
				map[string]any{"id": "cf-4", "intent": "order_status", "outcome": "completed", "count": 1530, "success_rate": 0.97, "avg_turns": 2.2, "drop_off": 0.02},
			}},
			"transitions": map[string]any{"transitions": []any{
				map[string]any{"id": "t-1", "from": "greeting", "to": "order_status", "count": 1530},
				map[string]any{"id": "t-2", "from": "greeting", "to": "reset_password", "count": 840},
			}},
			"summary": map[string]any{"summary": map[string]any{"total_conversations": 2678, "completion_rate": 0.88, "avg_turns": 3.4}},
			"trends":  map[string]any{"data_points": demoDays(2210, 2390, 2501, 2678)},
		},
		DomainPerformance: {
			"endpoints": map[string]any{"endpoints": []any{
				map[string]any{"id": "pf-1", "endpoint": "/api/orders", "method": "GET", "status": "healthy", "p50": 42, "p95": 180, "p99": 390, "error_rate": 0.002, "throughput": 310},
				map[string]any{"id": "pf-2", "endpoint": "/api/checkout", "method": "POST", "status": "degraded", "p50": 220, "p95": 940, "p99": 2100, "error_rate": 0.031, "throughput": 45},
				map[string]any{"id": "pf-3", "endpoint": "/api/search", "method": "GET", "status": "critical", "p50": 610, "p95": 3200, "p99": 5400, "error_rate": 0.12, "throughput": 88},
			}},
			"summary": map[string]any{"summary": map[string]any{"avg_latency": 290.7, "error_rate": 0.051, "uptime": 99.2, "total_endpoints": 3}},
			"latency": map[string]any{"data_points": demoLatency()},
		},
	}
}

func demoLatency() []any {
	values := []float64{260, 275, 301, 288, 290}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = map[string]any{"timestamp": "2024-03-06T0" + strconv.Itoa(i) + ":00:00Z", "value": v}
	}
	return out
}
