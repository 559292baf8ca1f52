package chatconfig

type ModelOption struct {
	Value       string
	Label       string
	Provider    Provider
	Description string
}

var catalog = []ModelOption{
	{Value: "gpt-4", Label: "GPT-4", Provider: ProviderOpenAI, Description: "Most capable model, best for complex reasoning"},
	{Value: "gpt-4-turbo", Label: "GPT-4 Turbo", Provider: ProviderOpenAI, Description: "Fast and efficient, great for most tasks"},
	{Value: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Provider: ProviderOpenAI, Description: "Fast and cost-effective for simple tasks"},
	{Value: "claude-3-opus-20240229", Label: "Claude 3 Opus", Provider: ProviderAnthropic, Description: "Most capable Claude model"},
	{Value: "claude-3-sonnet-20240229", Label: "Claude 3 Sonnet", Provider: ProviderAnthropic, Description: "Balanced performance and speed"},
	{Value: "claude-3-haiku-20240307", Label: "Claude 3 Haiku", Provider: ProviderAnthropic, Description: "Fastest and most cost-effective"},
}

func Catalog() []ModelOption {
	out := make([]ModelOption, len(catalog))
	copy(out, catalog)
	return out
}

func ModelsFor(p Provider) []ModelOption {
	out := make([]ModelOption, 0, len(catalog))
	for _, m := range catalog {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

func LookupModel(value string) (ModelOption, bool) {
	for _, m := range catalog {
		if m.Value == value {
			return m, true
		}
	}
	return ModelOption{}, false
}
