package dashboard

import (
	"github.com/goliatone/go-insights/pkg/export"
	"github.com/goliatone/go-insights/pkg/normalize"
	"github.com/goliatone/go-insights/pkg/records"
	"github.com/goliatone/go-insights/pkg/viewstate"
)

const defaultPageSize = 20

// Domain codes shipped with the package.
const (
	DomainCodeQuality      = "insights.code_quality"
	DomainBugPrediction    = "insights.bug_prediction"
	DomainTechDebt         = "insights.tech_debt"
	DomainLogPatterns      = "insights.log_patterns"
	DomainConversationFlow = "insights.conversation_flow"
	DomainPerformance      = "insights.performance"
)

var severityOrder = []string{"critical", "high", "medium", "low", "info"}

// debtTypeOrder ranks tech-debt categories, which are keyed by debt type.
var debtTypeOrder = []string{"security", "architecture", "code", "testing", "documentation", "other"}

var defaultPeriods = []string{"24h", "7d", "30d", "90d"}

// MountSchema is the mount configuration schema used by the built-in domains.
func MountSchema(periods []string) map[string]any {
	return mountSchema(periods)
}

func mountSchema(periods []string) map[string]any {
	enum := make([]any, 0, len(periods))
	for _, p := range periods {
		enum = append(enum, p)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"period":    map[string]any{"type": "string", "enum": enum},
			"page_size": map[string]any{"type": "integer", "minimum": 1, "maximum": 200},
			"group_by":  map[string]any{"type": "string"},
			"search":    map[string]any{"type": "string"},
			"live":      map[string]any{"type": "boolean"},
			"filters": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"additionalProperties": false,
	}
}

func summarySlice(endpoint string, defaults map[string]any) SliceDefinition {
	return SliceDefinition{
		Name:     "summary",
		Kind:     viewstate.KindSummary,
		Endpoint: endpoint,
		Shape:    normalize.ShapeHint{Key: "summary", Defaults: defaults},
	}
}

func trendSlice(name, endpoint string) SliceDefinition {
	return SliceDefinition{
		Name:     name,
		Kind:     viewstate.KindSeries,
		Endpoint: endpoint,
		Shape:    normalize.ShapeHint{Key: "data_points"},
		Entities: []string{"trend", "data_point"},
		Optional: true,
	}
}

var defaultDomainDefinitions = []DomainDefinition{
	{
		Code:        DomainCodeQuality,
		Name:        "Code Quality",
		Description: "Static analysis findings ranked by remediation priority",
		Category:    "quality",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "priorities",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/code-quality/priorities",
				Shape: normalize.ShapeHint{
					Key: "priorities",
					Defaults: map[string]any{
						"path": "", "severity": "info", "category": "", "message": "",
						"score": 0.0, "issue_count": 0,
					},
					Aliases: map[string][]string{"path": {"file", "file_path"}, "score": {"priority_score"}},
				},
				KeyFields: []string{"id", "path"},
				Entities:  []string{"priority", "issue"},
			},
			summarySlice("/api/code-quality/summary", map[string]any{
				"total_issues": 0.0, "quality_score": 0.0, "files_analyzed": 0.0,
			}),
			trendSlice("trends", "/api/code-quality/trends"),
			{
				Name:          "categories",
				Kind:          viewstate.KindCategories,
				Endpoint:      "/api/code-quality/categories",
				Shape:         normalize.ShapeHint{Key: "by_category"},
				CategoryOrder: severityOrder,
			},
			{
				Name:      "rules",
				Kind:      viewstate.KindRecords,
				Endpoint:  "/api/code-quality/rules",
				Shape:     normalize.ShapeHint{Key: "rules", Defaults: map[string]any{"name": "", "severity": "info", "enabled": true}},
				KeyFields: []string{"id", "name"},
				Entities:  []string{"rule"},
				Optional:  true,
			},
		},
		Primary: "priorities",
		Actions: []ActionDefinition{
			{Name: "toggle_rule", Endpoint: "/api/code-quality/rules/{id}/toggle", Verb: "insights.rule.toggle", ObjectType: "quality_rule", Refetch: []string{"rules", "priorities", "summary"}},
			{Name: "install_check", Endpoint: "/api/code-quality/checks/{id}/install", Verb: "insights.check.install", ObjectType: "quality_check"},
			{Name: "uninstall_check", Endpoint: "/api/code-quality/checks/{id}/uninstall", Verb: "insights.check.uninstall", ObjectType: "quality_check"},
			{Name: "analyze", Endpoint: "/api/code-quality/analyze", Verb: "insights.analysis.trigger", ObjectType: "code_quality"},
		},
		Stream:         "/ws/code-quality",
		SeverityField:  "severity",
		PriorityOrder:  severityOrder,
		GroupField:     "severity",
		SearchFields:   []string{"path", "message", "category"},
		DefaultSort:    records.SortState{Field: "score", Direction: records.Desc},
		Columns:        export.Columns("path", "severity", "score", "category", "issue_count"),
		CategorySource: CategoriesFromEndpoint,
		CategorySlice:  "categories",
		TrendSlice:     "trends",
		TotalField:     "total_issues",
		DetailEndpoint: "/api/code-quality/files/{id}",
		Periods:        defaultPeriods,
	},
	{
		Code:        DomainBugPrediction,
		Name:        "Bug Prediction",
		Description: "Files most likely to introduce defects, from churn and complexity signals",
		Category:    "risk",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "predictions",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/bug-prediction/predictions",
				Shape: normalize.ShapeHint{
					Key: "predictions",
					Defaults: map[string]any{
						"path": "", "risk_level": "low", "bug_probability": 0.0,
						"churn": 0.0, "complexity": 0.0, "recent_bugs": 0,
					},
					Aliases: map[string][]string{"bug_probability": {"probability", "risk_score"}},
				},
				KeyFields: []string{"id", "path"},
				Entities:  []string{"prediction", "file"},
			},
			summarySlice("/api/bug-prediction/summary", map[string]any{
				"total_files": 0.0, "high_risk": 0.0, "model_accuracy": 0.0,
			}),
			trendSlice("trends", "/api/bug-prediction/trends"),
		},
		Primary: "predictions",
		Actions: []ActionDefinition{
			{Name: "feedback", Endpoint: "/api/bug-prediction/feedback", Verb: "insights.feedback.record", ObjectType: "bug_prediction", Refetch: []string{"summary"}},
			{Name: "analyze", Endpoint: "/api/bug-prediction/analyze", Verb: "insights.analysis.trigger", ObjectType: "bug_prediction"},
		},
		Stream:         "/ws/bug-prediction",
		SeverityField:  "risk_level",
		PriorityOrder:  []string{"critical", "high", "medium", "low"},
		GroupField:     "risk_level",
		SearchFields:   []string{"path"},
		DefaultSort:    records.SortState{Field: "bug_probability", Direction: records.Desc},
		Columns:        export.Columns("path", "risk_level", "bug_probability", "churn", "complexity", "recent_bugs"),
		CategorySource: CategoriesFromRecords,
		CategorySlice:  "risk_levels",
		TrendSlice:     "trends",
		TotalField:     "total_files",
		DetailEndpoint: "/api/bug-prediction/files/{id}",
		Periods:        defaultPeriods,
	},
	{
		Code:        DomainTechDebt,
		Name:        "Technical Debt",
		Description: "Debt items with remediation estimates and accrued interest",
		Category:    "quality",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "items",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/tech-debt/items",
				Shape: normalize.ShapeHint{
					Key: "debt_items",
					Defaults: map[string]any{
						"title": "", "type": "other", "severity": "low", "path": "",
						"estimated_hours": 0.0, "interest": 0.0,
					},
				},
				KeyFields: []string{"id"},
				Entities:  []string{"debt_item", "item"},
			},
			summarySlice("/api/tech-debt/summary", map[string]any{
				"total_items": 0.0, "total_hours": 0.0, "debt_ratio": 0.0,
			}),
			trendSlice("trends", "/api/tech-debt/trends"),
			{
				Name:          "categories",
				Kind:          viewstate.KindCategories,
				Endpoint:      "/api/tech-debt/categories",
				Shape:         normalize.ShapeHint{Key: "by_category"},
				CategoryOrder: debtTypeOrder,
			},
		},
		Primary: "items",
		Actions: []ActionDefinition{
			{Name: "resolve", Endpoint: "/api/tech-debt/items/{id}/resolve", Verb: "insights.debt.resolve", ObjectType: "debt_item"},
			{Name: "analyze", Endpoint: "/api/tech-debt/analyze", Verb: "insights.analysis.trigger", ObjectType: "tech_debt"},
		},
		SeverityField:  "severity",
		PriorityOrder:  severityOrder,
		GroupField:     "type",
		SearchFields:   []string{"title", "path", "type"},
		DefaultSort:    records.SortState{Field: "estimated_hours", Direction: records.Desc},
		Columns:        export.Columns("title", "type", "severity", "estimated_hours", "interest", "path"),
		CategorySource: CategoriesFromEndpoint,
		CategorySlice:  "categories",
		TrendSlice:     "trends",
		TotalField:     "total_items",
		Periods:        defaultPeriods,
	},
	{
		Code:        DomainLogPatterns,
		Name:        "Log Patterns",
		Description: "Recurring log templates mined from application logs",
		Category:    "operations",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "patterns",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/log-patterns/patterns",
				Shape: normalize.ShapeHint{
					Key: "patterns",
					Defaults: map[string]any{
						"template": "", "severity": "info", "count": 0, "service": "",
						"first_seen": "", "last_seen": "", "sample": "",
					},
					Aliases: map[string][]string{"template": {"pattern"}, "count": {"occurrences"}},
				},
				KeyFields: []string{"id", "template"},
				Entities:  []string{"pattern"},
			},
			summarySlice("/api/log-patterns/summary", map[string]any{
				"total_logs": 0.0, "unique_patterns": 0.0, "anomalies": 0.0,
			}),
			trendSlice("volume", "/api/log-patterns/volume"),
			{
				Name:          "severities",
				Kind:          viewstate.KindCategories,
				Endpoint:      "/api/log-patterns/severities",
				Shape:         normalize.ShapeHint{Key: "by_category"},
				Entities:      []string{"severity"},
				CategoryOrder: severityOrder,
			},
		},
		Primary: "patterns",
		Actions: []ActionDefinition{
			{Name: "feedback", Endpoint: "/api/log-patterns/feedback", Verb: "insights.feedback.record", ObjectType: "log_pattern", Refetch: []string{"patterns"}},
			{Name: "analyze", Endpoint: "/api/log-patterns/mine", Verb: "insights.analysis.trigger", ObjectType: "log_patterns"},
		},
		Stream:         "/ws/log-patterns",
		SeverityField:  "severity",
		PriorityOrder:  severityOrder,
		GroupField:     "severity",
		SearchFields:   []string{"template", "service", "sample"},
		DefaultSort:    records.SortState{Field: "count", Direction: records.Desc},
		Columns:        export.Columns("template", "severity", "count", "service", "last_seen"),
		CategorySource: CategoriesFromEndpoint,
		CategorySlice:  "severities",
		TrendSlice:     "volume",
		TotalField:     "total_logs",
		DetailEndpoint: "/api/log-patterns/patterns/{id}",
		Periods:        defaultPeriods,
	},
	{
		Code:        DomainConversationFlow,
		Name:        "Conversation Flow",
		Description: "Intent volumes, completion and drop-off across conversations",
		Category:    "product",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "intents",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/conversations/intents",
				Shape: normalize.ShapeHint{
					Key: "intents",
					Defaults: map[string]any{
						"intent": "", "outcome": "unknown", "count": 0,
						"success_rate": 0.0, "avg_turns": 0.0, "drop_off": 0.0,
					},
					Aliases: map[string][]string{"intent": {"name"}},
				},
				KeyFields: []string{"id", "intent"},
				Entities:  []string{"intent"},
			},
			{
				Name:      "transitions",
				Kind:      viewstate.KindRecords,
				Endpoint:  "/api/conversations/transitions",
				Shape:     normalize.ShapeHint{Key: "transitions", Defaults: map[string]any{"from": "", "to": "", "count": 0}},
				KeyFields: []string{"id"},
				Entities:  []string{"transition"},
				Optional:  true,
			},
			summarySlice("/api/conversations/summary", map[string]any{
				"total_conversations": 0.0, "completion_rate": 0.0, "avg_turns": 0.0,
			}),
			trendSlice("trends", "/api/conversations/trends"),
		},
		Primary: "intents",
		Actions: []ActionDefinition{
			{Name: "feedback", Endpoint: "/api/conversations/intents/{id}/feedback", Verb: "insights.feedback.record", ObjectType: "conversation_intent", Refetch: []string{"intents"}},
		},
		Stream:         "/ws/conversations",
		GroupField:     "outcome",
		PriorityOrder:  []string{"completed", "escalated", "abandoned", "unknown"},
		SearchFields:   []string{"intent"},
		DefaultSort:    records.SortState{Field: "count", Direction: records.Desc},
		Columns:        export.Columns("intent", "outcome", "count", "success_rate", "avg_turns", "drop_off"),
		CategorySource: CategoriesFromRecords,
		CategorySlice:  "outcomes",
		CategoryField:  "outcome",
		TrendSlice:     "trends",
		Periods:        defaultPeriods,
	},
	{
		Code:        DomainPerformance,
		Name:        "Performance",
		Description: "Endpoint latency percentiles, error rates and throughput",
		Category:    "operations",
		Schema:      mountSchema(defaultPeriods),
		Slices: []SliceDefinition{
			{
				Name:     "endpoints",
				Kind:     viewstate.KindRecords,
				Endpoint: "/api/performance/endpoints",
				Shape: normalize.ShapeHint{
					Key: "endpoints",
					Defaults: map[string]any{
						"endpoint": "", "method": "GET", "status": "healthy",
						"p50": 0.0, "p95": 0.0, "p99": 0.0, "error_rate": 0.0, "throughput": 0.0,
					},
					Aliases: map[string][]string{"endpoint": {"route", "path"}},
				},
				KeyFields: []string{"id", "endpoint"},
				Entities:  []string{"endpoint", "metric"},
			},
			summarySlice("/api/performance/summary", map[string]any{
				"avg_latency": 0.0, "error_rate": 0.0, "uptime": 0.0, "total_endpoints": 0.0,
			}),
			trendSlice("latency", "/api/performance/latency"),
		},
		Primary: "endpoints",
		Actions: []ActionDefinition{
			{Name: "analyze", Endpoint: "/api/performance/profile", Verb: "insights.analysis.trigger", ObjectType: "performance"},
		},
		Stream:         "/ws/performance",
		SeverityField:  "status",
		PriorityOrder:  []string{"critical", "degraded", "healthy"},
		GroupField:     "status",
		SearchFields:   []string{"endpoint", "method"},
		DefaultSort:    records.SortState{Field: "p95", Direction: records.Desc},
		Columns:        export.Columns("endpoint", "method", "status", "p50", "p95", "p99", "error_rate", "throughput"),
		CategorySource: CategoriesFromRecords,
		CategorySlice:  "statuses",
		TrendSlice:     "latency",
		TotalField:     "total_endpoints",
		Periods:        defaultPeriods,
	},
}

// DefaultDomainDefinitions returns the insight domains shipped with the package.
func DefaultDomainDefinitions() []DomainDefinition {
	out := make([]DomainDefinition, len(defaultDomainDefinitions))
	copy(out, defaultDomainDefinitions)
	return out
}
