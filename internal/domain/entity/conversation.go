package entity

import "time"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Conversation pairs one buyer and one seller around one ad. The
// (AdID, BuyerID, SellerID) triple is unique.
type Conversation struct {
	ID                string     `json:"id" firestore:"id"`
	AdID              string     `json:"adId" firestore:"adId"`
	BuyerID           string     `json:"buyerId" firestore:"buyerId"`
	SellerID          string     `json:"sellerId" firestore:"sellerId"`
	Participants      []string   `json:"-" firestore:"participants"`
	LastMessageID     string     `json:"lastMessageId,omitempty" firestore:"lastMessageId,omitempty"`
	LastMessageAt     *time.Time `json:"lastMessageAt,omitempty" firestore:"lastMessageAt,omitempty"`
	UnreadCountBuyer  int        `json:"unreadCountBuyer" firestore:"unreadCountBuyer"`
	UnreadCountSeller int        `json:"unreadCountSeller" firestore:"unreadCountSeller"`
	IsBlockedByBuyer  bool       `json:"isBlockedByBuyer" firestore:"isBlockedByBuyer"`
	IsBlockedBySeller bool       `json:"isBlockedBySeller" firestore:"isBlockedBySeller"`
	CreatedAt         time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt" firestore:"updatedAt"`
	// ActivityAt orders conversation lists: creation time until the first
	// message, then the last message time.
	ActivityAt time.Time `json:"-" firestore:"activityAt"`
}

// RoleOf reports which side of the conversation userID is on.
func (c *Conversation) RoleOf(userID string) (Role, bool) {
	switch {
	case userID == "":
		return "", false
	case userID == c.BuyerID:
		return RoleBuyer, true
	case userID == c.SellerID:
		return RoleSeller, true
	}
	return "", false
}

func (c *Conversation) IsParticipant(userID string) bool {
	_, ok := c.RoleOf(userID)
	return ok
}

// Counterpart returns the user ID on the other side of role.
func (c *Conversation) Counterpart(role Role) string {
	if role == RoleBuyer {
		return c.SellerID
	}
	return c.BuyerID
}

// IsBlockedFor reports whether a participant in senderRole may not send:
// the receiver's own block flag is what counts.
func (c *Conversation) IsBlockedFor(senderRole Role) bool {
	if senderRole == RoleBuyer {
		return c.IsBlockedBySeller
	}
	return c.IsBlockedByBuyer
}

func (c *Conversation) UnreadFor(role Role) int {
	if role == RoleBuyer {
		return c.UnreadCountBuyer
	}
	return c.UnreadCountSeller
}

func UnreadField(role Role) string {
	if role == RoleBuyer {
		return "unreadCountBuyer"
	}
	return "unreadCountSeller"
}

func BlockField(role Role) string {
	if role == RoleBuyer {
		return "isBlockedByBuyer"
	}
	return "isBlockedBySeller"
}
