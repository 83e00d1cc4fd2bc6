package ai

// ForName builds the configured provider. Unknown names and "mock" fall
// back to an empty scripted provider so a city can run with no backend.
func ForName(name, model string, budget *BudgetGate) Provider {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(model, budget)
	case "openai":
		return NewOpenAIProvider(model, "", budget)
	default:
		return NewScriptedProvider()
	}
}
