// internal/appconfig/parameter_templates.go
package appconfig

import "strings"

// ProfileName identifies a parameter preset/profile.
type ProfileName string

const (
	ProfileGenericChat ProfileName = "generic"
	ProfileFactChecker ProfileName = "fact_checker"
	ProfileAccuracy    ProfileName = "accuracy"
)

// ParamsForProfile selects a parameter profile by name.
// Behavior:
//   - empty string => no preset (zero Parameters)
//   - unknown string => Generic Chat
func ParamsForProfile(name string) Parameters {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.ReplaceAll(n, "-", "_")
	if n == "" {
		return Parameters{}
	}

	switch ProfileName(n) {
	case ProfileAccuracy:
		return DefaultAccuracyParams()
	case ProfileFactChecker:
		return DefaultFactCheckerParams()
	default:
		return DefaultGenericChatParams()
	}
}

// DefaultGenericChatParams suits conversational answers.
func DefaultGenericChatParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(0.8),
		TopP:          ptrFloat(1.0),
		TopK:          ptrInt(0),
		MinP:          ptrFloat(0.08),
		RepeatLastN:   ptrInt(64),
		RepeatPenalty: ptrFloat(1.1),
	}
}

// DefaultAccuracyParams is tuned for precise, reproducible answers.
func DefaultAccuracyParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(0.1),
		TopP:          ptrFloat(0.95),
		MinP:          ptrFloat(0.1),
		RepeatPenalty: ptrFloat(1.0),
		Seed:          ptrInt(42),
	}
}

// DefaultFactCheckerParams is tuned for short yes/no judgements and verbatim quoting.
func DefaultFactCheckerParams() Parameters {
	return Parameters{
		Temperature:   ptrFloat(0.2),
		TopP:          ptrFloat(0.6),
		TopK:          ptrInt(20),
		MinP:          ptrFloat(0.1),
		TypicalP:      ptrFloat(0.8),
		RepeatLastN:   ptrInt(128),
		RepeatPenalty: ptrFloat(1.05),
		Seed:          ptrInt(42),
	}
}

// mergeParams overlays every set field of override onto base.
func mergeParams(base, override Parameters) Parameters {
	if override.TopK != nil {
		base.TopK = override.TopK
	}
	if override.TopP != nil {
		base.TopP = override.TopP
	}
	if override.MinP != nil {
		base.MinP = override.MinP
	}
	if override.TypicalP != nil {
		base.TypicalP = override.TypicalP
	}
	if override.RepeatLastN != nil {
		base.RepeatLastN = override.RepeatLastN
	}
	if override.Temperature != nil {
		base.Temperature = override.Temperature
	}
	if override.RepeatPenalty != nil {
		base.RepeatPenalty = override.RepeatPenalty
	}
	if override.PresencePenalty != nil {
		base.PresencePenalty = override.PresencePenalty
	}
	if override.FrequencyPenalty != nil {
		base.FrequencyPenalty = override.FrequencyPenalty
	}
	if override.NumCtx != nil {
		base.NumCtx = override.NumCtx
	}
	if override.Seed != nil {
		base.Seed = override.Seed
	}
	return base
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }
