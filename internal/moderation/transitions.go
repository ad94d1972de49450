package moderation

import "github.com/shopgrid/catalog-engine/pkg/enums"

// allowedTransitions encodes the moderation state machine. A flagged record
// only leaves that state through an explicit admin action; nothing here
// clears it automatically. Promoted originals are frozen.
var allowedTransitions = map[enums.ProductStatus][]enums.ProductStatus{
	enums.ProductStatusAdminCreated: {enums.ProductStatusFlagged},
	enums.ProductStatusPending:      {enums.ProductStatusVerified, enums.ProductStatusFlagged},
	enums.ProductStatusCommunity:    {enums.ProductStatusVerified, enums.ProductStatusFlagged},
	enums.ProductStatusMigrated:     {enums.ProductStatusVerified, enums.ProductStatusFlagged},
	enums.ProductStatusFlagged:      {enums.ProductStatusVerified, enums.ProductStatusPending},
	enums.ProductStatusVerified:     {enums.ProductStatusFlagged},
	enums.ProductStatusPromoted:     {},
}

// transitionAllowed reports whether from may move to to.
func transitionAllowed(from, to enums.ProductStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
