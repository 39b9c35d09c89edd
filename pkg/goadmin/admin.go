package goadmin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dashboardpkg "github.com/goliatone/go-insights/pkg/dashboard"
)

// MenuBuilder ensures insights entries exist within the admin navigation.
type MenuBuilder interface {
	EnsureMenuItem(ctx context.Context, menuCode string, item MenuItem) error
}

// MenuItem captures insights link metadata.
type MenuItem struct {
	Code     string
	Parent   string
	Label    string
	Route    string
	Icon     string
	Position int
}

// Config wires the insights service + feature flags into an admin shell.
type Config struct {
	EnableInsights bool
	MenuCode       string
	MenuBuilder    MenuBuilder
	Service        *dashboardpkg.Service
	// ParentItem groups one child entry per registered domain.
	ParentItem MenuItem
	// CategoryIcons maps domain categories to menu icons.
	CategoryIcons map[string]string
}

// Admin exposes helpers for go-admin style applications.
type Admin struct {
	cfg Config
}

var defaultCategoryIcons = map[string]string{
	"quality":    "check-circle",
	"risk":       "alert-triangle",
	"operations": "activity",
	"product":    "message-circle",
}

// New creates an Admin helper that can seed insights menus.
func New(cfg Config) (*Admin, error) {
	if cfg.EnableInsights && cfg.Service == nil {
		return nil, errors.New("goadmin: insights service is required when enabled")
	}
	if cfg.MenuCode == "" {
		cfg.MenuCode = "admin.main"
	}
	if cfg.ParentItem.Code == "" {
		cfg.ParentItem.Code = "admin.insights"
	}
	if cfg.ParentItem.Label == "" {
		cfg.ParentItem.Label = "Insights"
	}
	if cfg.ParentItem.Route == "" {
		cfg.ParentItem.Route = "admin.insights"
	}
	if cfg.ParentItem.Icon == "" {
		cfg.ParentItem.Icon = "bar-chart"
	}
	if cfg.CategoryIcons == nil {
		cfg.CategoryIcons = defaultCategoryIcons
	}
	return &Admin{cfg: cfg}, nil
}

// Insights exposes the configured service when enabled.
func (a *Admin) Insights() *dashboardpkg.Service {
	if !a.cfg.EnableInsights {
		return nil
	}
	return a.cfg.Service
}

// Bootstrap seeds the parent entry and one child per registered domain.
func (a *Admin) Bootstrap(ctx context.Context) error {
	if !a.cfg.EnableInsights || a.cfg.MenuBuilder == nil {
		return nil
	}
	parent := a.cfg.ParentItem
	if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, parent); err != nil {
		return fmt.Errorf("goadmin: ensure %s: %w", parent.Code, err)
	}
	for i, def := range a.cfg.Service.Registry().Domains() {
		item := MenuItem{
			Code:     parent.Code + "." + menuSuffix(def.Code),
			Parent:   parent.Code,
			Label:    def.Name,
			Route:    parent.Route + "." + menuSuffix(def.Code),
			Icon:     a.icon(def.Category),
			Position: i + 1,
		}
		if err := a.cfg.MenuBuilder.EnsureMenuItem(ctx, a.cfg.MenuCode, item); err != nil {
			return fmt.Errorf("goadmin: ensure %s: %w", item.Code, err)
		}
	}
	return nil
}

func (a *Admin) icon(category string) string {
	if icon, ok := a.cfg.CategoryIcons[category]; ok {
		return icon
	}
	return a.cfg.ParentItem.Icon
}

// menuSuffix keeps the last segment of a dotted domain code.
func menuSuffix(code string) string {
	if idx := strings.LastIndex(code, "."); idx >= 0 {
		return code[idx+1:]
	}
	return code
}
