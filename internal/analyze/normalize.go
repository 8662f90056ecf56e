package analyze

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

// TargetEmotions is the fixed vocabulary the model is asked to score.
var TargetEmotions = []string{
	"alegria", "tristeza", "enojo", "miedo", "sorpresa",
	"disgusto", "estres", "calma", "aversion", "anticipacion",
}

var jsonObjectRegex = regexp.MustCompile(`(?s)\{.*\}`)

// DecodePayload recovers the normalized emotion mapping from the raw
// model output. It first tries the whole payload as JSON, then falls
// back to the outermost brace-delimited object. Coercion is
// deterministic: the same payload always normalizes identically.
func DecodePayload(raw string) (model.EmotionMap, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		match := jsonObjectRegex.FindString(raw)
		if match == "" {
			return nil, errs.ErrUnparsableResponse
		}
		if err := json.Unmarshal([]byte(match), &parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrUnparsableResponse, err)
		}
	}
	return Normalize(parsed), nil
}

// Normalize coerces a loosely-shaped emotion object into the canonical
// mapping. Non-object values are dropped; a non-numeric percentage
// coerces to 0.0; non-list entities coerce to a one-element list holding
// the stringified value. Percentages clamp to [0, 100].
func Normalize(data map[string]interface{}) model.EmotionMap {
	out := model.EmotionMap{}
	for emotion, value := range data {
		fields, ok := value.(map[string]interface{})
		if !ok {
			continue
		}
		score := model.EmotionScore{
			Percentage: coercePercentage(pick(fields, "percentage", "porcentaje")),
			Entities:   coerceEntities(pick(fields, "entities", "entidades")),
		}
		out[emotion] = score
	}
	return out
}

func pick(fields map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := fields[key]; ok {
			return v
		}
	}
	return nil
}

func coercePercentage(value interface{}) float64 {
	var pct float64
	switch v := value.(type) {
	case float64:
		pct = v
	case json.Number:
		pct, _ = v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0.0
		}
		pct = parsed
	case int:
		pct = float64(v)
	default:
		return 0.0
	}
	if pct < 0 {
		return 0.0
	}
	if pct > 100 {
		return 100.0
	}
	return pct
}

func coerceEntities(value interface{}) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringify(item))
		}
		return out
	case []string:
		return v
	default:
		return []string{stringify(v)}
	}
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
