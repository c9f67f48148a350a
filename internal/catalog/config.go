package catalog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type rawPublicConfig struct {
	BaseURI      *string `json:"baseUri"`
	BaseURISnake string  `json:"base_uri"`
	Password     string  `json:"password"`
}

// ParsePublicConfig decodes the mirror configuration document.
// Either baseUri or base_uri is accepted; the password is base64 encoded.
func ParsePublicConfig(data []byte) (PublicConfig, error) {
	var raw rawPublicConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return PublicConfig{}, fmt.Errorf("failed to parse public config: %w", err)
	}

	baseURI := raw.BaseURISnake
	if raw.BaseURI != nil {
		baseURI = *raw.BaseURI
	}

	password, err := base64.StdEncoding.DecodeString(raw.Password)
	if err != nil {
		return PublicConfig{}, fmt.Errorf("failed to decode password: %w", err)
	}

	return PublicConfig{BaseURI: baseURI, Password: string(password)}, nil
}
