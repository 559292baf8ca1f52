package chatconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

var ErrUnknownProvider = errors.New("unknown provider")

func ParseProvider(v string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownProvider, v)
	}
}

// DisplayName is the human label used in headers ("Powered by OpenAI - gpt-4").
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	default:
		return string(p)
	}
}

func (p *Provider) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

const (
	MinTemperature  = 0.0
	MaxTemperature  = 2.0
	TemperatureStep = 0.1

	MinMaxTokens  = 100
	MaxMaxTokens  = 4000
	MaxTokensStep = 100
)

// SnapTemperature rounds t to the nearest TemperatureStep.
func SnapTemperature(t float64) float64 {
	scale := math.Round(1 / TemperatureStep)
	return math.Round(t*scale) / scale
}

// SnapMaxTokens rounds n to the nearest MaxTokensStep.
func SnapMaxTokens(n int) int {
	return int(math.Round(float64(n)/MaxTokensStep)) * MaxTokensStep
}

// Config is the user's provider selection, credential and generation parameters.
// Values are immutable; the With* methods return modified copies.
type Config struct {
	APIKey      string   `json:"apiKey"`
	Provider    Provider `json:"provider"`
	Model       string   `json:"model"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"maxTokens"`
}

func Default() Config {
	return Config{
		APIKey:      "",
		Provider:    ProviderOpenAI,
		Model:       "gpt-4-turbo",
		Temperature: 0.7,
		MaxTokens:   1000,
	}
}

func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}

// WithProvider changes only the provider. The model is left as is even if it
// belongs to the previous provider; use SwitchProvider to reselect it.
func (c Config) WithProvider(p Provider) Config {
	c.Provider = p
	return c
}

func (c Config) WithModel(model string) Config {
	c.Model = model
	return c
}

func (c Config) WithTemperature(t float64) Config {
	c.Temperature = t
	return c
}

func (c Config) WithMaxTokens(n int) Config {
	c.MaxTokens = n
	return c
}

// SwitchProvider sets the provider and, when the current model is not offered by
// it, the provider's first catalog model.
func (c Config) SwitchProvider(p Provider) Config {
	c.Provider = p
	if !c.ModelConsistent() {
		if models := ModelsFor(p); len(models) > 0 {
			c.Model = models[0].Value
		}
	}
	return c
}

func (c Config) HasCredential() bool {
	return c.APIKey != ""
}

// ModelConsistent reports whether Model is a catalog entry of Provider.
func (c Config) ModelConsistent() bool {
	m, ok := LookupModel(c.Model)
	return ok && m.Provider == c.Provider
}

// Validate reports values outside the ranges the presentation layers offer.
// Setters never call it; stored values are kept as given.
func (c Config) Validate() error {
	var errs []error
	if c.Provider != ProviderOpenAI && c.Provider != ProviderAnthropic {
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownProvider, c.Provider))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is empty"))
	}
	// Written so NaN is rejected too.
	if !(c.Temperature >= MinTemperature && c.Temperature <= MaxTemperature) {
		errs = append(errs, fmt.Errorf("temperature %.2f outside [%.0f,%.0f]", c.Temperature, MinTemperature, MaxTemperature))
	}
	if c.MaxTokens < MinMaxTokens || c.MaxTokens > MaxMaxTokens {
		errs = append(errs, fmt.Errorf("max tokens %d outside [%d,%d]", c.MaxTokens, MinMaxTokens, MaxMaxTokens))
	}
	return errors.Join(errs...)
}
