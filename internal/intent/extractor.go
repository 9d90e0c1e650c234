package intent

import (
	"context"
	"encoding/json"
	"strings"

	"stephly/internal/llm"
	"stephly/internal/log"
)

const extractionPrompt = `Extract structured data from this natural language message:

"%MESSAGE%"

Extract:
- amount (number) - If multiple amounts mentioned, use the FIRST one only
- category (IMPORTANT: Use the EXACT category the user mentions! Can be ANYTHING: Gym, Haircut, Netflix, Gifts, Uber, etc. If no specific category mentioned, use a general one like Food, Transport, Shopping, Bills, Entertainment, Healthcare, Education, Salary, Freelance, Investment, Gift, or Other)
- type (income or expense)
- title/description

IMPORTANT: Return a SINGLE JSON object, NOT an array!

Return JSON:
{
  "amount": 100,
  "category": "Lunch",
  "type": "expense",
  "title": "Lunch at restaurant"
}

Examples:
"50 for gym membership" → category: "Gym"
"paid 200 for haircut" → category: "Haircut"
"bought netflix 15" → category: "Netflix"
"uber ride 30" → category: "Uber"
"spent 100 on gifts" → category: "Gifts"
"bought light 20" → category: "Light"`

// Extractor asks the model to pull amount, category, type and title out of
// a message.
type Extractor struct {
	gen    llm.Generator
	logger *log.Logger
}

func NewExtractor(gen llm.Generator, logger *log.Logger) *Extractor {
	if gen == nil {
		gen = llm.Disabled{}
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Extractor{gen: gen, logger: logger.WithComponent(log.ComponentIntent)}
}

// Extract never fails: a model error or an unreadable reply yields empty
// Data. When the model returns an array only the first element is used.
func (e *Extractor) Extract(ctx context.Context, message string) Data {
	prompt := strings.Replace(extractionPrompt, "%MESSAGE%", message, 1)
	reply, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		e.logger.WarnContext(ctx, "Extraction call failed", log.FieldError, err)
		return Data{}
	}

	raw, ok := llm.ExtractJSON(reply)
	if !ok {
		return Data{}
	}

	if strings.HasPrefix(raw, "[") {
		var many []Data
		if err := json.Unmarshal([]byte(raw), &many); err != nil || len(many) == 0 {
			e.logger.WarnContext(ctx, "Unreadable extraction reply", log.FieldOperation, log.OpParse)
			return Data{}
		}
		return many[0]
	}

	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		e.logger.WarnContext(ctx, "Unreadable extraction reply", log.FieldOperation, log.OpParse, log.FieldError, err)
		return Data{}
	}
	return d
}
