package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/siraa-ai/siraa-backend/internal/models"
)

// Tool names exposed to the model.
const (
	toolSearchProperties = "search_properties"
	toolSearchFAQs       = "search_faqs"
	toolFindImage        = "find_property_image"
	toolFindBrochure     = "find_property_brochure"
	toolFindFloorPlan    = "find_property_floor_plan"
)

const (
	searchCandidates = 50
	searchResults    = 5
	overBudgetSample = 3
	faqResults       = 3
)

type toolDefinition struct {
	name        string
	description string
	schema      anthropic.ToolInputSchemaParam
}

func stringProperty(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func querySchema(description string) anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
		Properties: map[string]any{
			"query": stringProperty(description),
		},
		Required: []string{"query"},
	}
}

func propertyNameSchema() anthropic.ToolInputSchemaParam {
	return anthropic.ToolInputSchemaParam{
		Type: constant.Object("object"),
		Properties: map[string]any{
			"property_name": stringProperty("Exact or approximate name of the property"),
		},
		Required: []string{"property_name"},
	}
}

func toolDefinitions() []toolDefinition {
	return []toolDefinition{
		{
			name:        toolSearchProperties,
			description: "Search for real estate properties. Returns a formatted string of results. Output this string to the user exactly as it is given to you.",
			schema:      querySchema("The user's property search request, including any budget, location or bedroom requirements"),
		},
		{
			name:        toolSearchFAQs,
			description: "Answer general questions about Siraa or the property buying process.",
			schema:      querySchema("The user's question"),
		},
		{
			name:        toolFindImage,
			description: "Get the image URL for a specific property by name.",
			schema:      propertyNameSchema(),
		},
		{
			name:        toolFindBrochure,
			description: "Get the brochure PDF URL for a specific property by name.",
			schema:      propertyNameSchema(),
		},
		{
			name:        toolFindFloorPlan,
			description: "Get the floor plan PDF URL for a specific property by name.",
			schema:      propertyNameSchema(),
		},
	}
}

// apiTools converts the definitions to the Anthropic wire format.
func apiTools() []anthropic.ToolUnionParam {
	defs := toolDefinitions()
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		tool := anthropic.ToolParam{
			Name:        d.name,
			Description: anthropic.String(d.description),
			InputSchema: d.schema,
		}
		tools = append(tools, anthropic.ToolUnionParam{OfTool: &tool})
	}
	return tools
}

// Executor runs tool calls against the knowledge facade. Tool failures are
// reported as friendly text back to the model, never as request errors.
type Executor struct {
	knowledge Knowledge
}

// NewExecutor creates a tool executor over the given knowledge source.
func NewExecutor(knowledge Knowledge) *Executor {
	return &Executor{knowledge: knowledge}
}

type toolInput struct {
	Query        string `json:"query"`
	PropertyName string `json:"property_name"`
}

// Execute dispatches a single tool call. The bool return marks the result
// as an error block for the model.
func (e *Executor) Execute(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	var args toolInput
	if err := json.Unmarshal(input, &args); err != nil {
		return fmt.Sprintf("invalid tool input: %v", err), true
	}

	switch name {
	case toolSearchProperties:
		return e.searchProperties(ctx, args.Query), false
	case toolSearchFAQs:
		return e.searchFAQs(ctx, args.Query), false
	case toolFindImage:
		return e.lookupMedia(ctx, args.PropertyName, models.MediaImage), false
	case toolFindBrochure:
		return e.lookupMedia(ctx, args.PropertyName, models.MediaBrochure), false
	case toolFindFloorPlan:
		return e.lookupMedia(ctx, args.PropertyName, models.MediaFloorPlan), false
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

func (e *Executor) searchProperties(ctx context.Context, query string) string {
	candidates, err := e.countryShortcut(ctx, query)
	if err == nil && candidates == nil {
		candidates, err = e.knowledge.SearchProperties(ctx, query, searchCandidates)
	}
	if err != nil {
		log.Printf("❌ Property search failed: %v", err)
		return "Something went wrong during the property search."
	}
	if len(candidates) == 0 {
		return "No properties found matching your criteria."
	}

	budget := ParseBudget(query)
	if budget <= 0 {
		return FormatProperties(top(candidates, searchResults), query)
	}

	var withinBudget []*models.Property
	for _, p := range candidates {
		// Unparseable prices stay in the result set, like the catalog UI
		if price := p.PriceValue(); price == 0 || price <= budget {
			withinBudget = append(withinBudget, p)
		}
	}
	if len(withinBudget) == 0 {
		return fmt.Sprintf(
			"I couldn't find properties within your budget of %s AED. Here are some slightly higher-priced options:\n\n%s",
			formatAmount(budget), FormatProperties(top(candidates, overBudgetSample), query))
	}
	return FormatProperties(top(withinBudget, searchResults), query)
}

// countryShortcut returns catalog results directly when the query names a
// supported market, matching how users ask for "properties in Dubai". It
// pulls the full candidate pool so the budget filter runs before the top-N
// cut, same as the semantic path.
func (e *Executor) countryShortcut(ctx context.Context, query string) ([]*models.Property, error) {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "georgia", "batumi", "tbilisi"):
		return e.knowledge.PropertiesByCountry(ctx, "Georgia", searchCandidates)
	case containsAny(q, "uae", "dubai", "abu dhabi", "sharjah", "ras al khaimah"):
		return e.knowledge.PropertiesByCountry(ctx, "United Arab Emirates", searchCandidates)
	}
	return nil, nil
}

func (e *Executor) searchFAQs(ctx context.Context, query string) string {
	passages, err := e.knowledge.LookupFAQ(ctx, query, faqResults)
	if err != nil {
		log.Printf("❌ FAQ search failed: %v", err)
		return "I'm having trouble searching our knowledge base right now. Please try again in a moment."
	}
	if len(passages) == 0 {
		return "I couldn't find specific information about that. Please try rephrasing your question or ask about our properties."
	}

	var b strings.Builder
	b.WriteString("📚 Here's what I found:\n\n")
	for i, passage := range passages {
		fmt.Fprintf(&b, "%d. %s\n\n", i+1, passage)
	}
	return strings.TrimSpace(b.String())
}

func (e *Executor) lookupMedia(ctx context.Context, propertyName, kind string) string {
	url, err := e.knowledge.LookupMedia(ctx, propertyName, kind)
	switch {
	case err == nil:
		return url
	case errors.Is(err, ErrPropertyNotFound):
		msg := fmt.Sprintf("I couldn't find a property called %q.", propertyName)
		if names, namesErr := e.knowledge.PropertyNames(ctx); namesErr == nil && len(names) > 0 {
			return msg + " Available properties: " + strings.Join(names, ", ")
		}
		return msg + " Ask me to list our properties if you'd like to see what's available."
	case errors.Is(err, ErrMediaUnavailable):
		return fmt.Sprintf("Sorry, no %s is available for %s at the moment.", mediaKindLabel(kind), propertyName)
	default:
		log.Printf("❌ Media lookup failed for %s (%s): %v", propertyName, kind, err)
		return fmt.Sprintf("Unable to find the %s at the moment. Please try again.", mediaKindLabel(kind))
	}
}

// FormatProperties renders search hits as the user-facing list. Brochure and
// floor plan lines only appear when the query asked for them.
func FormatProperties(properties []*models.Property, query string) string {
	if len(properties) == 0 {
		return "Unfortunately, I couldn't find any properties matching your exact criteria right now."
	}

	q := strings.ToLower(query)
	showBrochures := containsAny(q, "brochure", "pdf")
	showFloorPlans := containsAny(q, "floor", "plan", "layout")

	var b strings.Builder
	b.WriteString("🏠 Here are some properties that match your search:\n")
	for i, p := range properties {
		fmt.Fprintf(&b, "\n%d. *%s*\n", i+1, p.Name)
		fmt.Fprintf(&b, "   📍 Location: %s\n", orNA(p.Location))
		fmt.Fprintf(&b, "   🏘️ Type: %s\n", orNA(p.PropertyType))
		fmt.Fprintf(&b, "   🛏️ Bedrooms: %s\n", orNA(p.Bedrooms))
		fmt.Fprintf(&b, "   💰 Price: %s\n", orNA(p.Price))
		if p.Amenities != "" {
			fmt.Fprintf(&b, "   🎯 Amenities: %s\n", p.Amenities)
		}
		if showBrochures {
			fmt.Fprintf(&b, "   📄 Brochure: %s\n", orUnavailable(p, models.MediaBrochure))
		}
		if showFloorPlans {
			fmt.Fprintf(&b, "   🏗️ Floor Plans: %s\n", orUnavailable(p, models.MediaFloorPlan))
		}
	}

	if !showBrochures && !showFloorPlans {
		b.WriteString("\nℹ️ You can ask for 'brochures' or 'floor plans' for details.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func orUnavailable(p *models.Property, kind string) string {
	if url, ok := p.MediaURL(kind); ok {
		return url
	}
	return "Not available"
}

func mediaKindLabel(kind string) string {
	if kind == models.MediaFloorPlan {
		return "floor plan"
	}
	return kind
}

func top(properties []*models.Property, n int) []*models.Property {
	if len(properties) > n {
		return properties[:n]
	}
	return properties
}

// Budget parsing supports "1 million", "1m", "1.5m", "500k" and raw numbers
// like 750000.
var (
	budgetMillionRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*m(?:illion)?\b`)
	budgetThousandRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*k\b`)
	budgetRawRe      = regexp.MustCompile(`\b(\d{6,})\b`)
)

// ParseBudget extracts a numeric budget ceiling from free text. Returns 0
// when no budget is present.
func ParseBudget(query string) float64 {
	q := strings.ReplaceAll(strings.ToLower(query), ",", "")

	patterns := []struct {
		re         *regexp.Regexp
		multiplier float64
	}{
		{budgetMillionRe, 1_000_000},
		{budgetThousandRe, 1_000},
		{budgetRawRe, 1},
	}

	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(q); m != nil {
			n, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return n * p.multiplier
		}
	}
	return 0
}

// formatAmount renders 1500000 as "1,500,000".
func formatAmount(v float64) string {
	s := strconv.FormatInt(int64(v), 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
