package product

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const (
	idHeadphones = "9b2f6a4e-0c8f-4a47-9d4c-6f3e1f0a1b01"
	idCable      = "9b2f6a4e-0c8f-4a47-9d4c-6f3e1f0a1b02"
	idStand      = "9b2f6a4e-0c8f-4a47-9d4c-6f3e1f0a1b03"
)

func seedProducts() []Product {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Product{
		{ID: idHeadphones, Name: "Wireless Headphones", Price: decimal.RequireFromString("79.99"), Category: "Electronics", Stock: 25, Description: "noise cancellation", CreatedAt: base},
		{ID: idCable, Name: "USB-C Cable", Price: decimal.RequireFromString("9.99"), Category: "Accessories", Stock: 100, Description: "charging cable", CreatedAt: base.Add(time.Hour)},
		{ID: idStand, Name: "Laptop Stand", Price: decimal.RequireFromString("49.99"), Category: "Accessories", Stock: 3, Description: "aluminum", CreatedAt: base.Add(2 * time.Hour)},
	}
}

func setupApp(allowReset bool) (*fiber.App, *InMemoryRepository) {
	repo := NewInMemoryRepository(seedProducts())
	h := NewHandler(NewService(repo, nil), allowReset)
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	h.RegisterAdminRoutes(app.Group("/admin"))
	return app, repo
}

type listBody struct {
	Success    bool      `json:"success"`
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"totalPages"`
}

func getList(t *testing.T, app *fiber.App, url string) listBody {
	t.Helper()
	res, err := app.Test(httptest.NewRequest("GET", url, nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		b, _ := io.ReadAll(res.Body)
		t.Fatalf("expected 200 for %s, got %d: %s", url, res.StatusCode, b)
	}
	var body listBody
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestGetProducts_Filters(t *testing.T) {
	app, _ := setupApp(false)

	all := getList(t, app, "/api/v1/products")
	if all.Total != 3 || len(all.Products) != 3 {
		t.Fatalf("expected 3 products, got %+v", all)
	}
	if all.Products[0].ID != idStand {
		t.Fatalf("expected newest first, got %s", all.Products[0].Name)
	}

	acc := getList(t, app, "/api/v1/products?category=Accessories&maxPrice=20")
	if acc.Total != 1 || acc.Products[0].ID != idCable {
		t.Fatalf("unexpected filtered result %+v", acc)
	}

	search := getList(t, app, "/api/v1/products?search=NOISE&category=all")
	if search.Total != 1 || search.Products[0].ID != idHeadphones {
		t.Fatalf("expected case-insensitive description search, got %+v", search)
	}

	paged := getList(t, app, "/api/v1/products?limit=2&page=2")
	if len(paged.Products) != 1 || paged.TotalPages != 2 {
		t.Fatalf("unexpected paging %+v", paged)
	}
}

func TestGetProducts_BadPrice(t *testing.T) {
	app, _ := setupApp(false)
	res, _ := app.Test(httptest.NewRequest("GET", "/api/v1/products?minPrice=cheap", nil))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
}

func TestGetProduct(t *testing.T) {
	app, _ := setupApp(false)

	res, _ := app.Test(httptest.NewRequest("GET", "/api/v1/products/"+idCable, nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/api/v1/products/9b2f6a4e-0c8f-4a47-9d4c-6f3e1f0a1bff", nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/api/v1/products/not-an-id", nil))
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", res.StatusCode)
	}
}

func TestGetCategories(t *testing.T) {
	app, _ := setupApp(false)
	res, _ := app.Test(httptest.NewRequest("GET", "/api/v1/products/categories", nil))
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), `"categories":["Accessories","Electronics"]`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestAdminCreateProduct_Validation(t *testing.T) {
	app, repo := setupApp(false)

	req := httptest.NewRequest("POST", "/admin/products", strings.NewReader(`{"name":"","price":-1,"stock":-2}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	var body struct {
		Details map[string]string `json:"details"`
	}
	json.NewDecoder(res.Body).Decode(&body)
	for _, field := range []string{"name", "price", "stock", "category"} {
		if body.Details[field] == "" {
			t.Fatalf("expected detail for %s, got %v", field, body.Details)
		}
	}

	req = httptest.NewRequest("POST", "/admin/products", strings.NewReader(`{"name":"Desk Lamp","price":"24.50","category":"Home","stock":4}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	if n, _ := repo.Count(context.Background()); n != 4 {
		t.Fatalf("expected 4 products after create, got %d", n)
	}
}

func TestAdminCreateProduct_StockAboveColumnRange(t *testing.T) {
	app, repo := setupApp(false)

	req := httptest.NewRequest("POST", "/admin/products", strings.NewReader(`{"name":"Crate","price":"5.00","category":"Home","stock":2147483648}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	var body struct {
		Details map[string]string `json:"details"`
	}
	json.NewDecoder(res.Body).Decode(&body)
	if body.Details["stock"] == "" {
		t.Fatalf("expected stock detail, got %v", body.Details)
	}
	if n, _ := repo.Count(context.Background()); n != 3 {
		t.Fatalf("expected nothing stored, got %d products", n)
	}
}

func TestAdminUpdateAndDelete(t *testing.T) {
	app, repo := setupApp(false)

	req := httptest.NewRequest("PUT", "/admin/products/"+idCable, strings.NewReader(`{"name":"USB-C Cable","price":12,"category":"Accessories","stock":90}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	p, _ := repo.GetByID(context.Background(), idCable)
	if !p.Price.Equal(decimal.NewFromInt(12)) || p.Stock != 90 {
		t.Fatalf("update not applied: %+v", p)
	}

	res, _ = app.Test(httptest.NewRequest("DELETE", "/admin/products/"+idCable, nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	res, _ = app.Test(httptest.NewRequest("DELETE", "/admin/products/"+idCable, nil))
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.StatusCode)
	}
}

func TestResetProducts(t *testing.T) {
	app, _ := setupApp(false)
	res, _ := app.Test(httptest.NewRequest("POST", "/dev/reset-products", nil))
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 when reset disabled, got %d", res.StatusCode)
	}

	app, repo := setupApp(true)
	res, _ = app.Test(httptest.NewRequest("POST", "/dev/reset-products", nil))
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if n, _ := repo.Count(context.Background()); n != int64(len(samples)) {
		t.Fatalf("expected sample catalog of %d, got %d", len(samples), n)
	}

	req := httptest.NewRequest("POST", "/dev/reset-products", strings.NewReader(`[]`))
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if n, _ := repo.Count(context.Background()); n != 0 {
		t.Fatalf("expected empty catalog, got %d", n)
	}
}
