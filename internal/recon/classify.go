package recon

import (
	"fmt"

	"github.com/quarterfold/suppliersync/internal/domain"
	"github.com/quarterfold/suppliersync/internal/ingest"
)

// OutcomeKind tags the result of matching one incoming variant against
// canonical state.
type OutcomeKind string

const (
	// OutcomeCreate inserts a brand-new variant (and product if needed). A
	// superseded sibling under the old key retires via the not-seen sweep.
	OutcomeCreate OutcomeKind = "CREATE"
	// OutcomeUnchanged refreshes checkedOn, nothing else.
	OutcomeUnchanged OutcomeKind = "UNCHANGED"
	// OutcomeUpdate overwrites the matched canonical variant in place.
	OutcomeUpdate OutcomeKind = "UPDATE"
	// OutcomeConflict still upserts, but the record is flagged for manual
	// review: the variant landed on an option tuple another variant of the
	// target product already occupies. Never merged automatically.
	OutcomeConflict OutcomeKind = "CONFLICT"
	// OutcomeDuplicate rejects the variant: canonical state already holds
	// more than one record for its key, which should be impossible.
	OutcomeDuplicate OutcomeKind = "DUPLICATE"
)

// MatchInput is everything the classifier looks at. Matches holds the
// supplier's canonical variants whose variantKey equals the incoming one;
// TargetProduct is the supplier's canonical product for the incoming
// productKey, nil if none exists yet.
type MatchInput struct {
	Incoming      domain.SuppliedVariant
	Matches       []domain.SuppliedVariant
	TargetProduct *domain.SuppliedProduct
}

// MatchOutcome carries the classification plus enough context to act on it.
type MatchOutcome struct {
	Kind OutcomeKind

	// MatchedVariantID is the canonical variant id behind UNCHANGED, UPDATE
	// and CONFLICT outcomes.
	MatchedVariantID string

	// Reason explains DUPLICATE rejections and CONFLICT flags.
	Reason string
}

// Classify decides what one incoming variant means for canonical state.
// Pure function: no store access, no side effects, fully table-testable.
func Classify(in MatchInput) MatchOutcome {
	switch len(in.Matches) {
	case 0:
		return MatchOutcome{Kind: OutcomeCreate}
	case 1:
		return classifyMatched(in, in.Matches[0])
	default:
		return MatchOutcome{
			Kind:   OutcomeDuplicate,
			Reason: "found duplicate entries in suppliedProductVariant with this variant key",
		}
	}
}

func classifyMatched(in MatchInput, match domain.SuppliedVariant) MatchOutcome {
	if match.ProductID == in.Incoming.ProductID {
		return classifySameProduct(in, match)
	}
	return classifyCrossProduct(in, match)
}

func classifySameProduct(in MatchInput, match domain.SuppliedVariant) MatchOutcome {
	if ingest.VariantEqual(match, in.Incoming) {
		return MatchOutcome{Kind: OutcomeUnchanged, MatchedVariantID: match.ID}
	}

	if domain.OptionsEqual(match, in.Incoming) {
		// Same options, differing fields: immaterial update.
		return MatchOutcome{Kind: OutcomeUpdate, MatchedVariantID: match.ID}
	}

	// Options moved. Landing on a tuple a sibling variant already holds is a
	// material change: still applied, flagged for review.
	if sib := siblingByOptions(in.TargetProduct, in.Incoming, match.VariantID); sib != nil {
		return MatchOutcome{
			Kind:             OutcomeConflict,
			MatchedVariantID: match.ID,
			Reason: fmt.Sprintf("variant options collide with existing variant with variantKey %s",
				sib.VariantID),
		}
	}
	return MatchOutcome{Kind: OutcomeUpdate, MatchedVariantID: match.ID}
}

func classifyCrossProduct(in MatchInput, match domain.SuppliedVariant) MatchOutcome {
	if domain.OptionsEqual(match, in.Incoming) {
		// Same option tuple under a new product key: in-place move.
		return MatchOutcome{Kind: OutcomeUpdate, MatchedVariantID: match.ID}
	}

	if sib := siblingByOptions(in.TargetProduct, in.Incoming, match.VariantID); sib != nil {
		return MatchOutcome{
			Kind:             OutcomeConflict,
			MatchedVariantID: match.ID,
			Reason: fmt.Sprintf("variant moved from product %s onto options held by variant with variantKey %s",
				match.ProductID, sib.VariantID),
		}
	}
	return MatchOutcome{Kind: OutcomeUpdate, MatchedVariantID: match.ID}
}

// siblingByOptions finds a variant of product (other than skipVariantKey)
// whose declared options are compatible with the incoming option tuple.
func siblingByOptions(product *domain.SuppliedProduct, incoming domain.SuppliedVariant, skipVariantKey string) *domain.SuppliedVariant {
	if product == nil {
		return nil
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		if v.VariantID == incoming.VariantID || (skipVariantKey != "" && v.VariantID == skipVariantKey) {
			continue
		}
		if domain.OptionsCompatible(*v, incoming) {
			return v
		}
	}
	return nil
}
