package services

import (
	"strings"
	"testing"

	"sales_sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_KnownIDWinsOverEverything(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t,
		models.Customer{ID: "target", Name: "Nguyen Van A", Phone: "0911111111", UpdatedAt: at(60)},
		models.Customer{ID: "decoy", Name: "Nguyen Van A", Phone: "0922222222", UpdatedAt: at(60)},
	)

	// The phone points at the decoy, but the id is exact.
	c, err := e.identity.Resolve("0922222222", "", "target", "Nguyen Van A")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "target", c.ID)
}

func TestIdentity_SharedPhoneDisambiguatedByName(t *testing.T) {
	// Two real customers legitimately sharing one phone.
	e := newEnv(t)
	e.seedCustomers(t,
		models.Customer{ID: "a", Name: "Nguyen Van A", Phone: "0912345678", OrderCount: 1, UpdatedAt: at(60)},
		models.Customer{ID: "b", Name: "Nguyen Thi A", Phone: "0912345678", OrderCount: 9, UpdatedAt: at(60)},
	)

	c, err := e.identity.Resolve("0912345678", "", "", "Nguyen Van A")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "a", c.ID, "must pick the matching name, not merge or prefer order count")

	c, err = e.identity.Resolve("0912345678", "", "", "Nguyen Thi A")
	require.NoError(t, err)
	assert.Equal(t, "b", c.ID)

	// No name given: order history decides.
	c, err = e.identity.Resolve("0912345678", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "b", c.ID)
}

func TestIdentity_AddressFallback(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t,
		models.Customer{ID: "a", Name: "Nguyen Van A", Phone: "123", Address: "12 Hàng Bạc, Hà Nội", UpdatedAt: at(60)},
	)

	// Phone is trivial, address matches after normalization.
	c, err := e.identity.Resolve("123", "12 hang bac ha noi", "", "Nguyen Van A")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "a", c.ID)
}

func TestIdentity_NoMatchReturnsNil(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t,
		models.Customer{ID: "a", Name: "Nguyen Van A", Phone: "0912345678", UpdatedAt: at(60)},
	)

	c, err := e.identity.Resolve("0999999999", "somewhere else", "", "Tran Thi B")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestIdentity_IndicesInvalidatedOnCustomerWrite(t *testing.T) {
	e := newEnv(t)
	e.seedCustomers(t, models.Customer{ID: "a", Name: "A", Phone: "0911111111", UpdatedAt: at(60)})

	c, err := e.identity.Resolve("0911111111", "", "", "")
	require.NoError(t, err)
	require.NotNil(t, c)

	// New customer lands through the bus (as delta sync would deliver it).
	require.NoError(t, e.customers.UpsertMany([]models.Customer{
		{ID: "b", Name: "B", Phone: "0922222222", UpdatedAt: at(30)},
	}))
	e.events.Customers.Publish(nil) // any customer write invalidates

	c, err = e.identity.Resolve("0922222222", "", "", "")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "b", c.ID)
}

func TestDeriveCustomerID(t *testing.T) {
	// A usable phone is the id.
	assert.Equal(t, "0912345678", DeriveCustomerID("Nguyen Van A", "+84 912 345 678", "Ha Noi"))

	// Otherwise a stable hash of name+address.
	id1 := DeriveCustomerID("Nguyen Van A", "123", "12 Hang Bac")
	id2 := DeriveCustomerID("Nguyễn Văn A", "", "12 hàng bạc")
	id3 := DeriveCustomerID("Tran Thi B", "", "12 Hang Bac")
	assert.True(t, strings.HasPrefix(id1, "cust-"))
	assert.Equal(t, id1, id2, "normalization makes the hash stable across spellings")
	assert.NotEqual(t, id1, id3)
}

func TestDeriveSKU(t *testing.T) {
	assert.Equal(t, DeriveSKU("Cà phê sữa"), DeriveSKU("ca phe sua"))
	assert.NotEqual(t, DeriveSKU("Ca phe sua"), DeriveSKU("Ca phe den"))
	assert.True(t, strings.HasPrefix(DeriveSKU("Banh mi"), "sku-"))
}
