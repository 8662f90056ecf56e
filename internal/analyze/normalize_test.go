package analyze

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evonota/evonota/internal/model"
	errs "github.com/evonota/evonota/internal/pkg/errors"
)

func TestDecodePayload_PlainJSON(t *testing.T) {
	raw := `{"estres": {"percentage": 80, "entities": ["trabajo", "insomnio"]}, "alegria": {"percentage": 10, "entities": []}}`
	emotions, err := DecodePayload(raw)
	require.NoError(t, err)
	require.Len(t, emotions, 2)
	require.Equal(t, 80.0, emotions["estres"].Percentage)
	require.Equal(t, []string{"trabajo", "insomnio"}, emotions["estres"].Entities)
	require.Equal(t, 10.0, emotions["alegria"].Percentage)
	require.Empty(t, emotions["alegria"].Entities)
}

func TestDecodePayload_FencedJSONFallback(t *testing.T) {
	raw := "```json\n{\"miedo\": {\"porcentaje\": 42.5, \"entidades\": [\"diagnostico\"]}}\n```"
	emotions, err := DecodePayload(raw)
	require.NoError(t, err)
	require.Equal(t, 42.5, emotions["miedo"].Percentage)
	require.Equal(t, []string{"diagnostico"}, emotions["miedo"].Entities)
}

func TestDecodePayload_NoObject(t *testing.T) {
	_, err := DecodePayload("the patient seems calm")
	require.ErrorIs(t, err, errs.ErrUnparsableResponse)
}

func TestDecodePayload_BrokenObject(t *testing.T) {
	_, err := DecodePayload("prefix {\"estres\": } suffix")
	require.ErrorIs(t, err, errs.ErrUnparsableResponse)
}

func TestNormalize_Coercion(t *testing.T) {
	data := map[string]interface{}{
		"estres": map[string]interface{}{
			"percentage": "85.5",
			"entities":   []interface{}{"trabajo", 3.0, true},
		},
		"calma": map[string]interface{}{
			"percentage": "not-a-number",
			"entities":   "familia",
		},
		"enojo": map[string]interface{}{
			"percentage": 250.0,
		},
		"tristeza": map[string]interface{}{
			"percentage": -5.0,
		},
		"ignored": "not an object",
	}
	emotions := Normalize(data)
	require.Len(t, emotions, 4)
	require.NotContains(t, emotions, "ignored")

	require.Equal(t, 85.5, emotions["estres"].Percentage)
	require.Equal(t, []string{"trabajo", "3", "true"}, emotions["estres"].Entities)

	require.Equal(t, 0.0, emotions["calma"].Percentage)
	require.Equal(t, []string{"familia"}, emotions["calma"].Entities)

	require.Equal(t, 100.0, emotions["enojo"].Percentage)
	require.Equal(t, []string{}, emotions["enojo"].Entities)

	require.Equal(t, 0.0, emotions["tristeza"].Percentage)
}

func TestNormalize_Deterministic(t *testing.T) {
	data := map[string]interface{}{
		"sorpresa": map[string]interface{}{"porcentaje": 33.0, "entidades": []interface{}{"resultado"}},
	}
	first := Normalize(data)
	second := Normalize(data)
	require.Equal(t, first, second)
}

func TestNormalize_EmptyObjectIsValid(t *testing.T) {
	emotions := Normalize(map[string]interface{}{})
	require.NotNil(t, emotions)
	require.Empty(t, emotions)
	require.IsType(t, model.EmotionMap{}, emotions)
}
