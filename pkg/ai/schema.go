package ai

import "github.com/santhosh-tekuri/jsonschema/v5"

// evaluationSchema guards the shape of model output at the boundary. Status
// values are deliberately left as free strings since models vary their
// capitalisation; only structural violations trigger the fallback.
var evaluationSchema = jsonschema.MustCompileString("evaluation.json", `{
  "type": "object",
  "required": ["role", "action", "context", "format", "tone", "techniques", "mismatches", "suggestions", "score"],
  "properties": {
    "role": {"$ref": "#/$defs/dimension"},
    "action": {"$ref": "#/$defs/dimension"},
    "context": {"$ref": "#/$defs/dimension"},
    "format": {"$ref": "#/$defs/dimension"},
    "tone": {"$ref": "#/$defs/dimension"},
    "techniques": {"type": "array", "items": {"type": "string"}},
    "mismatches": {"type": "array", "items": {"type": "string"}},
    "suggestions": {"type": "array", "items": {"type": "string"}},
    "score": {"type": "number"}
  },
  "$defs": {
    "dimension": {
      "type": "object",
      "required": ["status", "explanation"],
      "properties": {
        "status": {"type": "string"},
        "explanation": {"type": "string"}
      }
    }
  }
}`)
