package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationRoles(t *testing.T) {
	c := &Conversation{BuyerID: "buyer", SellerID: "seller"}

	role, ok := c.RoleOf("buyer")
	assert.True(t, ok)
	assert.Equal(t, RoleBuyer, role)
	assert.Equal(t, "seller", c.Counterpart(role))

	role, ok = c.RoleOf("seller")
	assert.True(t, ok)
	assert.Equal(t, RoleSeller, role)
	assert.Equal(t, "buyer", c.Counterpart(role))

	_, ok = c.RoleOf("stranger")
	assert.False(t, ok)
	_, ok = c.RoleOf("")
	assert.False(t, ok)
}

func TestBlockIsDirectional(t *testing.T) {
	c := &Conversation{BuyerID: "buyer", SellerID: "seller", IsBlockedBySeller: true}

	assert.True(t, c.IsBlockedFor(RoleBuyer), "seller's flag stops the buyer")
	assert.False(t, c.IsBlockedFor(RoleSeller), "seller can still write")

	c.IsBlockedByBuyer = true
	assert.True(t, c.IsBlockedFor(RoleSeller))
}

func TestMessageTypeValid(t *testing.T) {
	assert.True(t, MessageTypeText.Valid())
	assert.True(t, MessageTypeContact.Valid())
	assert.False(t, MessageType("VIDEO").Valid())
}
