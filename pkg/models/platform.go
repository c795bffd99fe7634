package models

import "strings"

// Platform identifies the AI platform a process capture came from.
type Platform string

// Known platforms. Unrecognized input maps to PlatformUnknown rather than
// failing — the ingestion path never rejects a submission over an
// unfamiliar platform string.
const (
	PlatformMidjourney      Platform = "midjourney"
	PlatformSuno            Platform = "suno"
	PlatformUdio            Platform = "udio"
	PlatformRunway          Platform = "runway"
	PlatformPika            Platform = "pika"
	PlatformDalle           Platform = "dalle"
	PlatformFlux            Platform = "flux"
	PlatformLeonardo        Platform = "leonardo"
	PlatformStableDiffusion Platform = "stable-diffusion"
	PlatformHiggsfield      Platform = "higgsfield"
	PlatformChatGPT         Platform = "chatgpt"
	PlatformClaude          Platform = "claude"
	PlatformUnknown         Platform = "unknown"
)

// rarityMultipliers rewards contributions from less common platforms.
// Unlisted platforms (including unknown) score at 1.0.
var rarityMultipliers = map[Platform]float64{
	PlatformMidjourney:      0.8,
	PlatformChatGPT:         0.8,
	PlatformDalle:           0.9,
	PlatformClaude:          0.9,
	PlatformStableDiffusion: 1.0,
	PlatformSuno:            1.1,
	PlatformFlux:            1.2,
	PlatformRunway:          1.2,
	PlatformLeonardo:        1.3,
	PlatformPika:            1.4,
	PlatformUdio:            1.5,
	PlatformHiggsfield:      1.8,
	PlatformUnknown:         1.0,
}

// ParsePlatform maps a raw platform string onto the closed enumeration.
// Matching is case-insensitive and ignores surrounding whitespace. This is
// a total function: unrecognized input maps to PlatformUnknown.
func ParsePlatform(raw string) Platform {
	p := Platform(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := rarityMultipliers[p]; ok {
		return p
	}
	return PlatformUnknown
}

// RarityMultiplier returns the fixed per-platform scoring multiplier.
func (p Platform) RarityMultiplier() float64 {
	if m, ok := rarityMultipliers[p]; ok {
		return m
	}
	return 1.0
}
