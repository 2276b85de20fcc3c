package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sportsfest/registration/internal/domain/product"
)

func TestCart(t *testing.T) {
	c := New(Key{OrganizationID: 1, EventYearID: 2026}, []Line{
		{ProductID: 9, ProductType: product.TypeTentRental, Quantity: 2},
		{ProductID: 3, ProductType: product.TypeTeamRegistration, Quantity: 1},
		{ProductID: 4, ProductType: product.TypeTeamRegistration, Quantity: 2},
	})

	assert.Equal(t, uint(3), c.Lines[0].ProductID)
	assert.Equal(t, 2, c.QuantityOf(9))
	assert.Equal(t, 0, c.QuantityOf(100))
	assert.Equal(t, 3, c.TeamsInCart())
	assert.False(t, c.IsEmpty())
	assert.Equal(t, "1:2026", c.Key.String())
}
