package captcha

import (
	"fmt"
	"strings"
)

// KindSet is a set of challenge kinds.
type KindSet uint64

// KindsOf builds a set from the given kinds.
func KindsOf(kinds ...ChallengeKind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k ChallengeKind) bool {
	return k.Valid() && s&(1<<uint(k)) != 0
}

// Kinds lists the members in declaration order.
func (s KindSet) Kinds() []ChallengeKind {
	var out []ChallengeKind
	for _, k := range AllKinds() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// ImageFeature is a bitset of optional image-captcha features a provider understands.
type ImageFeature uint16

const (
	FeaturePhrase ImageFeature = 1 << iota
	FeatureCaseSensitive
	FeatureCharacterSet
	FeatureMath
	FeatureMinLength
	FeatureMaxLength
	FeatureInstructions
	FeatureLanguage
	FeatureLanguageGroup
)

var featureNames = []struct {
	f    ImageFeature
	name string
}{
	{FeaturePhrase, "phrase"},
	{FeatureCaseSensitive, "case sensitivity"},
	{FeatureCharacterSet, "character set"},
	{FeatureMath, "math"},
	{FeatureMinLength, "min length"},
	{FeatureMaxLength, "max length"},
	{FeatureInstructions, "instructions"},
	{FeatureLanguage, "language"},
	{FeatureLanguageGroup, "language group"},
}

func (f ImageFeature) String() string {
	var parts []string
	for _, fn := range featureNames {
		if f&fn.f != 0 {
			parts = append(parts, fn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// Capabilities is what a provider declares it can do. The engine only consults
// Kinds; the rest lets callers and adapters reject requests before a round trip.
type Capabilities struct {
	Kinds KindSet
	Image ImageFeature
	// Proxy is the set of kinds for which the provider accepts a caller proxy.
	Proxy KindSet
}

// Supports reports whether kind can be solved.
func (c Capabilities) Supports(kind ChallengeKind) bool { return c.Kinds.Has(kind) }

// CheckImageOptions returns an Unsupported error naming every feature opts
// requires that caps does not declare.
func CheckImageOptions(provider string, caps Capabilities, opts ImageOptions) error {
	missing := opts.Features() &^ caps.Image
	if missing == 0 {
		return nil
	}
	return &Error{
		Kind:     ErrorUnsupported,
		Provider: provider,
		Message:  fmt.Sprintf("image options not supported: %s", missing),
	}
}
