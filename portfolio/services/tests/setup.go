package tests

import (
	"bytes"
	"fmt"
	"sync/atomic"
	"testing"

	"drug_portfolio/portfolio/auth"
	"drug_portfolio/portfolio/schema"
	"drug_portfolio/portfolio/services"

	"github.com/go-chi/chi/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db  *gorm.DB
	api chi.Router
}

const (
	adminUsername = "admin"
	adminPassword = "admin123"
)

var dbCounter atomic.Int64

func setupTestEnv(t *testing.T) *testEnv {
	// A uniquely named in-memory db per test so tests don't share state.
	// cache=shared so all pooled connections see the same db, _foreign_keys=on
	// so the cascade/set-null actions fire.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=on", dbCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	err = schema.Migrate(db)
	if err != nil {
		t.Fatal(err)
	}

	err = auth.EnsureAdminUser(db, auth.AdminArgs{
		Username: adminUsername,
		Password: adminPassword,
		FullName: "System Admin",
		Email:    "admin@pharma.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	portfolio := services.NewPortfolio(db, []byte("290zcv02ai249"), new(bytes.Buffer))

	return &testEnv{db: db, api: portfolio.Routes()}
}

func (t *testEnv) newClient() client {
	return client{api: t.api}
}

func (t *testEnv) adminClient() (client, error) {
	c := t.newClient()
	err := c.login(adminUsername, adminPassword)
	return c, err
}

// newUser registers a fresh user with the given role through the admin account
// and returns a client logged in as that user.
func (t *testEnv) newUser(username, role string) (client, error) {
	admin, err := t.adminClient()
	if err != nil {
		return client{}, err
	}

	err = admin.Post("/auth/register").Json(map[string]string{
		"username":  username,
		"password":  username + "_password",
		"role":      role,
		"full_name": "Test " + username,
	}).Do(nil)
	if err != nil {
		return client{}, err
	}

	c := t.newClient()
	err = c.login(username, username+"_password")
	return c, err
}
