package tests

import (
	"net/http"
	"testing"
)

func TestLogin(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	if admin.authToken == "" {
		t.Fatal("expected login to return a token")
	}

	c := env.newClient()

	err = c.login(adminUsername, "wrong_password")
	if responseStatus(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %v", err)
	}

	err = c.login("no_such_user", "whatever")
	if responseStatus(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %v", err)
	}

	err = c.Post("/auth/login").Json(map[string]string{"username": adminUsername}).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %v", err)
	}
}

func TestMe(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	var me struct {
		Id       string `json:"id"`
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	err = admin.Get("/auth/me").Do(&me)
	if err != nil {
		t.Fatal(err)
	}

	if me.Username != adminUsername || me.Role != "admin" || me.Id != admin.userId {
		t.Fatalf("unexpected user info: %+v", me)
	}

	anon := env.newClient()
	err = anon.Get("/auth/me").Do(nil)
	if responseStatus(err) != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	newUser := map[string]string{
		"username":  "pm_jones",
		"password":  "pass123",
		"role":      "portfolio_manager",
		"full_name": "Dr. Sarah Jones",
	}

	var created struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	}
	err = admin.Post("/auth/register").Json(newUser).Do(&created)
	if err != nil {
		t.Fatal(err)
	}
	if created.Username != "pm_jones" || created.Role != "portfolio_manager" {
		t.Fatalf("unexpected registered user: %+v", created)
	}

	err = admin.Post("/auth/register").Json(newUser).Do(nil)
	if responseStatus(err) != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %v", err)
	}

	badRole := map[string]string{
		"username": "someone", "password": "pass123", "role": "superuser", "full_name": "Some One",
	}
	err = admin.Post("/auth/register").Json(badRole).Do(nil)
	if responseStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid role, got %v", err)
	}

	pm := env.newClient()
	if err := pm.login("pm_jones", "pass123"); err != nil {
		t.Fatal(err)
	}
	err = pm.Post("/auth/register").Json(map[string]string{
		"username": "intruder", "password": "pass123", "role": "viewer", "full_name": "In Truder",
	}).Do(nil)
	if responseStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin register, got %v", err)
	}
}
