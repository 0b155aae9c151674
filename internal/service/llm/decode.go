package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"TradePilot/internal/domain/models"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// extractJSON returns the outermost JSON object in a model reply, ignoring code fences
// and any prose around it.
func extractJSON(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeReply parses a model reply into T, applies struct defaults and validates it.
// Every failure is a *models.SchemaValidationError.
func decodeReply[T any](schemaName, reply string) (*T, error) {
	raw, ok := extractJSON(reply)
	if !ok {
		return nil, &models.SchemaValidationError{Schema: schemaName, Reason: "reply contains no JSON object"}
	}

	var out T
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return nil, &models.SchemaValidationError{Schema: schemaName, Reason: "malformed JSON", Err: err}
	}
	if err := defaults.Set(&out); err != nil {
		return nil, &models.SchemaValidationError{Schema: schemaName, Reason: "apply defaults", Err: err}
	}
	if err := validate.Struct(&out); err != nil {
		return nil, &models.SchemaValidationError{Schema: schemaName, Reason: describe(err), Err: err}
	}
	return &out, nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
