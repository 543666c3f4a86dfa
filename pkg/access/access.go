// Package access classifies callers into tiers and capability sets based on
// their chat group memberships.
package access

import (
	"fmt"

	"github.com/Koplal/tai-discord-bot/pkg/boterr"
	"github.com/Koplal/tai-discord-bot/pkg/config"
)

// Tier orders caller access levels from least to most privileged.
type Tier int8

const (
	// TierFree is the floor every caller lands on.
	TierFree Tier = iota
	// TierPremium unlocks tracker reads.
	TierPremium
	// TierAdmin unlocks tracker writes and usage reports.
	TierAdmin
)

// String returns the tier name used in config and logs.
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "free"
	case TierPremium:
		return "premium"
	case TierAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

// ParseTier maps a tier name to its value.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "free":
		return TierFree, nil
	case "premium":
		return TierPremium, nil
	case "admin":
		return TierAdmin, nil
	default:
		return TierFree, fmt.Errorf("unknown tier %q", s)
	}
}

// Feature names a capability a tier grants.
type Feature string

// The closed feature set. Config may only grant these.
const (
	FeatureBasicChat    Feature = "basic_chat"
	FeatureTrackerRead  Feature = "tracker_read"
	FeatureTrackerWrite Feature = "tracker_write"
	FeatureUsageReport  Feature = "usage_report"
)

// ParseFeature validates a configured feature name against the closed set.
func ParseFeature(s string) (Feature, error) {
	switch Feature(s) {
	case FeatureBasicChat, FeatureTrackerRead, FeatureTrackerWrite, FeatureUsageReport:
		return Feature(s), nil
	default:
		return "", fmt.Errorf("unknown feature %q", s)
	}
}

// tierSpec is one tier's compiled grant.
type tierSpec struct {
	tier     Tier
	groups   map[string]bool
	features []Feature
}

// Classifier maps chat group memberships to a tier and its features.
// Classification is pure; group match is exact string match on the group
// identifiers the transport reports.
type Classifier struct {
	// Ordered highest to lowest so the first match wins.
	tiers []tierSpec
}

// NewClassifier compiles the configured tiers, validating every feature
// name. Errors here are config errors and should fail startup.
func NewClassifier(cfg config.TiersConfig) (*Classifier, error) {
	ordered := []struct {
		tier Tier
		cfg  config.TierConfig
	}{
		{TierAdmin, cfg.Admin},
		{TierPremium, cfg.Premium},
		{TierFree, cfg.Free},
	}

	specs := make([]tierSpec, 0, len(ordered))
	for _, entry := range ordered {
		features := make([]Feature, 0, len(entry.cfg.Features))
		for _, name := range entry.cfg.Features {
			f, err := ParseFeature(name)
			if err != nil {
				return nil, fmt.Errorf("tier %s: %w", entry.tier, err)
			}
			features = append(features, f)
		}

		groups := make(map[string]bool, len(entry.cfg.Groups))
		for _, g := range entry.cfg.Groups {
			groups[g] = true
		}

		specs = append(specs, tierSpec{tier: entry.tier, groups: groups, features: features})
	}

	return &Classifier{tiers: specs}, nil
}

// Classify returns the highest tier any of the caller's groups grants, with
// that tier's feature set. Callers matching no configured group land on the
// free tier.
func (c *Classifier) Classify(groups []string) (Tier, []Feature) {
	for _, spec := range c.tiers {
		for _, g := range groups {
			if spec.groups[g] {
				return spec.tier, append([]Feature(nil), spec.features...)
			}
		}
	}

	free := c.tiers[len(c.tiers)-1]
	return free.tier, append([]Feature(nil), free.features...)
}

// Has reports whether the feature set includes feature.
func Has(features []Feature, feature Feature) bool {
	for _, f := range features {
		if f == feature {
			return true
		}
	}
	return false
}

// Require returns a permission error naming the missing capability when the
// feature set lacks feature.
func Require(features []Feature, feature Feature) error {
	if Has(features, feature) {
		return nil
	}
	return boterr.NewPermissionDenied(string(feature))
}
