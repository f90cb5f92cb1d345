package ai

// ProviderName represents an AI provider identifier
type ProviderName string

// Provider name constants
const (
	ProviderNameGemini ProviderName = "gemini"
	ProviderNameVertex ProviderName = "vertex"
)

// String returns the string representation of the provider name
func (p ProviderName) String() string {
	return string(p)
}

// IsValid checks if the provider name is supported
func (p ProviderName) IsValid() bool {
	switch p {
	case ProviderNameGemini, ProviderNameVertex:
		return true
	default:
		return false
	}
}

// AllProviderNames returns all supported provider names
func AllProviderNames() []ProviderName {
	return []ProviderName{
		ProviderNameGemini,
		ProviderNameVertex,
	}
}

// Model name constants
const (
	ModelGeminiFlashExp = "gemini-2.0-flash-exp"
	ModelGeminiFlash    = "gemini-1.5-flash"
	ModelGeminiPro      = "gemini-1.5-pro"
)
