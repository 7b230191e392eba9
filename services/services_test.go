package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"research_portal_api/authz"
	"research_portal_api/memstore"
	"research_portal_api/models"
	"research_portal_api/services"
)

const publicBase = "https://pub.example"

var (
	admin   = authz.Principal{UID: "admin-1", Email: "admin@lab.test", Role: authz.RoleAdmin}
	mentor  = authz.Principal{UID: "mentor-1", Email: "mentor@lab.test", Role: authz.RoleMentor}
	student = authz.Principal{UID: "student-1", Email: "ana@lab.test", Role: authz.RoleStudent}
	other   = authz.Principal{UID: "student-2", Email: "luis@lab.test", Role: authz.RoleStudent}
)

var (
	_ services.ItemStore                               = (*memstore.Inventory)(nil)
	_ services.LoanStore                               = (*memstore.Inventory)(nil)
	_ services.PublicationStore[models.Book]           = (*memstore.Publications[models.Book, *models.Book])(nil)
	_ services.PublicationStore[models.JournalArticle] = (*memstore.Publications[models.JournalArticle, *models.JournalArticle])(nil)
)

type fixture struct {
	inv     *memstore.Inventory
	objects *memstore.Objects
	items   *services.ItemService
	loans   *services.LoanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	inv := memstore.NewInventory()
	objects := memstore.NewObjects(publicBase)
	log := zap.NewNop()
	return &fixture{
		inv:     inv,
		objects: objects,
		items:   services.NewItemService(inv, objects, log),
		loans:   services.NewLoanService(inv, log),
	}
}

// provision creates one item from a JSON template and returns it.
func (f *fixture) provision(t *testing.T, body string) *models.InventoryItem {
	t.Helper()
	items, err := f.items.Provision(context.Background(), admin, []byte(body))
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0]
}
