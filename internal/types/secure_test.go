package types

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "sunlight-api-key-12345"

func TestSecretString_FmtVerbs(t *testing.T) {
	s := SecretString(testSecret)

	for _, verb := range []string{"%s", "%v", "%+v"} {
		out := fmt.Sprintf(verb, s)
		assert.NotContains(t, out, testSecret, "verb %s leaked the secret", verb)
		assert.Equal(t, redactedPlaceholder, out, "verb %s", verb)
	}
}

func TestSecretString_MarshalJSON_InStruct(t *testing.T) {
	type sunlightConfig struct {
		APIKey SecretString `json:"api_key"`
		URL    string       `json:"url"`
	}

	data, err := json.Marshal(sunlightConfig{APIKey: SecretString(testSecret), URL: "https://sun.example"})
	require.NoError(t, err)

	assert.NotContains(t, string(data), testSecret)
	assert.Contains(t, string(data), redactedPlaceholder)
}

func TestSecretString_SlogAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("configured", "api_key", SecretString(testSecret))

	assert.NotContains(t, buf.String(), testSecret)
}

func TestSecretString_UnmaskAndIsSet(t *testing.T) {
	assert.Equal(t, testSecret, SecretString(testSecret).Unmask())
	assert.True(t, SecretString(testSecret).IsSet())

	empty := SecretString("")
	assert.False(t, empty.IsSet())
	assert.Equal(t, "", empty.Unmask())
	assert.True(t, strings.Contains(empty.String(), "REDACTED"))
}
