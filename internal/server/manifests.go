package server

import "github.com/jask/wipchat/internal/wip"

// DefaultManifests describes the built-in widget set to the agent. The
// URIs must match what the client registered; the schemas tell the model
// which parameters each widget accepts.
func DefaultManifests() []wip.Manifest {
	return []wip.Manifest{
		{
			URI:  "wip://calendar",
			Name: "Calendar",
			Description: "Shows the appointments of a single day and lets the user " +
				"browse adjacent days.",
			UseCasesHints: "viewing a daily schedule, reviewing appointments, checking availability",
			Capabilities:  []string{"context-export", "context-import", "action-suggestions"},
			Version:       "1.0",
			InputParametersSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "day to show, YYYY-MM-DD"},
					"events": map[string]any{
						"type":        "array",
						"description": "appointments for the day",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"time":  map[string]any{"type": "string"},
								"title": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
		{
			URI:  "wip://stock-level-inspector",
			Name: "Stock Inspector",
			Description: "Shows per-size stock levels for a product so the user can " +
				"pick an available size.",
			UseCasesHints: "checking availability of a product, size selection, inventory questions",
			Capabilities:  []string{"context-export", "action-suggestions"},
			Version:       "1.0",
			InputParametersSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"sku": map[string]any{"type": "string", "description": "product identifier"},
					"sizes": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"size":  map[string]any{"type": "string"},
								"stock": map[string]any{"type": "integer"},
							},
						},
					},
				},
			},
		},
		{
			URI:           "wip://image-carousel",
			Name:          "Image Carousel",
			Description:   "Flips through a set of product images one at a time.",
			UseCasesHints: "showing product photos, comparing visual options, browsing alternatives",
			Capabilities:  []string{"context-export", "context-import"},
			Version:       "1.0",
			InputParametersSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"images": map[string]any{
						"type":        "array",
						"description": "image URLs or captioned entries",
						"items":       map[string]any{"type": "string"},
					},
				},
			},
		},
		{
			URI:           "wip://qr-code-scanner",
			Name:          "QR Scanner",
			Description:   "Scans a code and hands its payload back to the agent.",
			UseCasesHints: "redeeming a ticket, pairing a device, reading a code",
			Capabilities:  []string{"context-export"},
			Version:       "1.0",
			InputParametersSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"payload": map[string]any{"type": "string", "description": "expected code payload"},
				},
			},
		},
	}
}
