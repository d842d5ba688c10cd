package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jask/wipchat/internal/database/repository"
	"github.com/jask/wipchat/internal/llm"
)

// ToolFunc executes one tool call with already-decoded arguments.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool pairs the schema offered to the model with the Go function behind
// it.
type Tool struct {
	Def llm.ToolDef
	Run ToolFunc
}

// ToolSet is the registry of callable tools.
type ToolSet struct {
	tools map[string]Tool
	order []string
}

func NewToolSet(tools ...Tool) *ToolSet {
	s := &ToolSet{tools: map[string]Tool{}}
	for _, t := range tools {
		if _, exists := s.tools[t.Def.Name]; !exists {
			s.order = append(s.order, t.Def.Name)
		}
		s.tools[t.Def.Name] = t
	}
	return s
}

// Defs lists the tool schemas in registration order.
func (s *ToolSet) Defs() []llm.ToolDef {
	out := make([]llm.ToolDef, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].Def)
	}
	return out
}

// Call decodes argsJSON, runs the named tool and returns its result as a
// JSON string. Unknown tools and run failures come back as errors; the
// caller decides how to surface them.
func (s *ToolSet) Call(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := s.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("tool %s: decode arguments: %w", name, err)
		}
	}
	result, err := t.Run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tool %s: encode result: %w", name, err)
	}
	return string(data), nil
}

// demo product catalog, keyed by SKU
var catalog = map[string]struct {
	Name    string
	Sizes   []map[string]any
	Similar []string
}{
	"SKU-TRAIL-01": {
		Name: "Trail Runner",
		Sizes: []map[string]any{
			{"size": "40", "stock": 3}, {"size": "41", "stock": 0},
			{"size": "42", "stock": 7}, {"size": "43", "stock": 1},
		},
		Similar: []string{"SKU-ROAD-02", "SKU-HIKE-03"},
	},
	"SKU-ROAD-02": {
		Name: "Road Racer",
		Sizes: []map[string]any{
			{"size": "41", "stock": 5}, {"size": "42", "stock": 2}, {"size": "44", "stock": 0},
		},
		Similar: []string{"SKU-TRAIL-01"},
	},
	"SKU-HIKE-03": {
		Name: "Ridge Hiker",
		Sizes: []map[string]any{
			{"size": "42", "stock": 9}, {"size": "43", "stock": 4},
		},
		Similar: []string{"SKU-TRAIL-01"},
	},
}

// DemoTools builds the built-in tool set: stock lookups against the demo
// catalog, appointments against the events store.
func DemoTools(events *repository.EventRepo) *ToolSet {
	return NewToolSet(
		Tool{
			Def: llm.ToolDef{
				Name:        "get_stock_for_sku",
				Description: "Return per-size stock levels for a product SKU.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sku": map[string]any{"type": "string"},
					},
					"required": []string{"sku"},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				sku, _ := args["sku"].(string)
				p, ok := catalog[sku]
				if !ok {
					return nil, fmt.Errorf("unknown sku %q", sku)
				}
				return map[string]any{"sku": sku, "name": p.Name, "sizes": p.Sizes}, nil
			},
		},
		Tool{
			Def: llm.ToolDef{
				Name:        "get_similar_products",
				Description: "Return products similar to the given SKU.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"sku": map[string]any{"type": "string"},
					},
					"required": []string{"sku"},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				sku, _ := args["sku"].(string)
				p, ok := catalog[sku]
				if !ok {
					return nil, fmt.Errorf("unknown sku %q", sku)
				}
				products := make([]map[string]any, 0, len(p.Similar))
				for _, s := range p.Similar {
					if sp, ok := catalog[s]; ok {
						products = append(products, map[string]any{"sku": s, "name": sp.Name})
					}
				}
				return map[string]any{"products": products}, nil
			},
		},
		Tool{
			Def: llm.ToolDef{
				Name:        "create_appointment",
				Description: "Create a one hour appointment at the given date and start time.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title":      map[string]any{"type": "string"},
						"date":       map[string]any{"type": "string", "description": "YYYY-MM-DD"},
						"start_time": map[string]any{"type": "string", "description": "HH:MM"},
					},
					"required": []string{"title", "date", "start_time"},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				if events == nil {
					return nil, fmt.Errorf("calendar store not configured")
				}
				title, _ := args["title"].(string)
				date, _ := args["date"].(string)
				start, _ := args["start_time"].(string)
				if title == "" || date == "" || start == "" {
					return nil, fmt.Errorf("title, date and start_time are required")
				}
				e := repository.Event{
					ID:        uuid.NewString(),
					Title:     title,
					Date:      date,
					StartTime: start,
					EndTime:   plusOneHour(start),
				}
				if err := events.Create(ctx, e); err != nil {
					return nil, err
				}
				return map[string]any{
					"id": e.ID, "title": e.Title, "date": e.Date,
					"start_time": e.StartTime, "end_time": e.EndTime,
				}, nil
			},
		},
		Tool{
			Def: llm.ToolDef{
				Name:        "read_daily_calendar",
				Description: "List the appointments on a given day.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"date": map[string]any{"type": "string", "description": "YYYY-MM-DD"},
					},
					"required": []string{"date"},
				},
			},
			Run: func(ctx context.Context, args map[string]any) (any, error) {
				if events == nil {
					return nil, fmt.Errorf("calendar store not configured")
				}
				date, _ := args["date"].(string)
				if date == "" {
					return nil, fmt.Errorf("date is required")
				}
				list, err := events.ListByDate(ctx, date)
				if err != nil {
					return nil, err
				}
				rows := make([]map[string]any, 0, len(list))
				for _, e := range list {
					rows = append(rows, map[string]any{"time": e.StartTime, "title": e.Title})
				}
				return map[string]any{"date": date, "events": rows}, nil
			},
		},
	)
}

// plusOneHour advances an HH:MM time by one hour; a malformed time is
// returned unchanged.
func plusOneHour(start string) string {
	t, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	return t.Add(time.Hour).Format("15:04")
}
