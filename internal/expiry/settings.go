package expiry

import (
	"strings"

	"github.com/ppiankov/claimexpiry/internal/model"
)

// Logger represents the methods used by the engine to log information.
type Logger interface {
	Debugf(string, ...interface{})
	Infof(string, ...interface{})
	Warningf(string, ...interface{})
}

// Exemption lists the conditions that make an owner immune from expiration
type Exemption struct {
	ClaimBlocks      int // Negative disables
	BonusClaimBlocks int // Negative disables
	Permissions      []string
}

// Settings is the parsed, immutable form of the expiration configuration.
// A reload swaps in a new value; nothing mutates one in place.
type Settings struct {
	Random     bool
	Rate       Rate
	Protection ProtectionPolicy
	Exemption  Exemption

	commands        []string
	worldCommands   map[string][]string
	worldExemptions map[string]Exemption
}

// NewSettings parses cfg, warning once about every unusable entry
func NewSettings(cfg model.ExpirationConfig, logger Logger) *Settings {
	s := &Settings{
		Random: cfg.Evaluation.Random,
		Rate:   NewRate(cfg.Evaluation.Rate.Type, cfg.Evaluation.Rate.Value),
		Protection: ProtectionPolicy{
			Default: ParseDaysPerArea(cfg.DaysPerArea, logger),
			Worlds:  make(map[string]DurationTable),
		},
		Exemption: Exemption{
			ClaimBlocks:      cfg.Bypass.ClaimBlocks,
			BonusClaimBlocks: cfg.Bypass.BonusClaimBlocks,
			Permissions:      append([]string(nil), cfg.Bypass.Permissions...),
		},
		commands:        append([]string(nil), cfg.Claim.Commands...),
		worldCommands:   make(map[string][]string),
		worldExemptions: make(map[string]Exemption),
	}

	for name, world := range cfg.Worlds {
		key := strings.ToLower(name)
		if world.DaysPerArea != nil {
			s.Protection.Worlds[key] = ParseDaysPerArea(world.DaysPerArea, logger)
		}
		if world.Claim != nil {
			s.worldCommands[key] = append([]string(nil), world.Claim.Commands...)
		}
		if world.Bypass != nil {
			s.worldExemptions[key] = s.Exemption.override(world.Bypass)
		}
	}
	return s
}

// override returns ex with the conditions set in b replaced
func (ex Exemption) override(b *model.WorldBypassConfig) Exemption {
	out := ex
	if b.ClaimBlocks != nil {
		out.ClaimBlocks = *b.ClaimBlocks
	}
	if b.BonusClaimBlocks != nil {
		out.BonusClaimBlocks = *b.BonusClaimBlocks
	}
	if b.Permissions != nil {
		out.Permissions = append([]string(nil), b.Permissions...)
	}
	return out
}

// ExemptionFor returns the bypass conditions that apply in world
func (s *Settings) ExemptionFor(world string) Exemption {
	if ex, ok := s.worldExemptions[strings.ToLower(world)]; ok {
		return ex
	}
	return s.Exemption
}

// Commands returns the follow-up command templates for a claim in world
func (s *Settings) Commands(world string) []string {
	if c, ok := s.worldCommands[strings.ToLower(world)]; ok {
		return c
	}
	return s.commands
}
