package sites

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"sitegrid/pkg/sitegrid/models"
	"sitegrid/pkg/sitegrid/query"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(NewService(db, nil))
	handler.RegisterRoutes(r.Group("/sites"))
	return r
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func createdSiteID(t *testing.T, resp *httptest.ResponseRecorder) uint {
	t.Helper()
	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var site models.Site
	json.Unmarshal(resp.Body.Bytes(), &site)
	return site.ID
}

func TestCreateFrenchSiteDuplicateDate(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site A", "installation_date": "2024-01-01",
	}))

	resp := doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site B", "installation_date": "2024-01-01",
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for duplicate French date, got %d", resp.Code)
	}

	// A different date is fine.
	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site B", "installation_date": "2024-01-03",
	}))
}

func TestCreateItalianSiteWeekendRule(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	// 2024-01-02 is a Tuesday.
	resp := doJSON(router, "POST", "/sites/italy", gin.H{
		"name": "Site IT", "installation_date": "2024-01-02",
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for a Tuesday date, got %d", resp.Code)
	}

	// 2024-01-06 is a Saturday.
	createdSiteID(t, doJSON(router, "POST", "/sites/italy", gin.H{
		"name": "Site IT", "installation_date": "2024-01-06",
	}))
}

func TestReadSiteMergedVariantView(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site FR", "useful_energy_at_1_megawatt": 1.2,
	}))

	resp := doJSON(router, "GET", fmt.Sprintf("/sites/%d", id), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}
	var body map[string]any
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["useful_energy_at_1_megawatt"] != 1.2 {
		t.Errorf("Expected French payload, got %v", body["useful_energy_at_1_megawatt"])
	}
	if body["efficiency"] != nil {
		t.Errorf("Expected null Italian payload, got %v", body["efficiency"])
	}
}

func TestDeleteSiteThenGet(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Site A"}))

	// Associate with a group so delete has join rows to clear.
	group := models.Group{Name: "Solar"}
	db.Create(&group)
	if resp := doJSON(router, "POST", fmt.Sprintf("/sites/%d/groups/%d", id, group.ID), nil); resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 adding to group, got %d", resp.Code)
	}

	if resp := doJSON(router, "DELETE", fmt.Sprintf("/sites/%d", id), nil); resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on delete, got %d", resp.Code)
	}
	if resp := doJSON(router, "GET", fmt.Sprintf("/sites/%d", id), nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.Code)
	}
	if resp := doJSON(router, "DELETE", fmt.Sprintf("/sites/%d", id), nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 deleting twice, got %d", resp.Code)
	}

	var joined int64
	db.Table("site_groups").Where("site_id = ?", id).Count(&joined)
	if joined != 0 {
		t.Errorf("Expected associations to be cleared on delete, found %d", joined)
	}
}

func TestUpdateCountryImmutable(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Site A"}))

	resp := doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", id), gin.H{"country": "ITALY"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 changing country, got %d", resp.Code)
	}

	// Restating the current country is a no-op, not a change.
	resp = doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", id), gin.H{"country": "FRANCE", "name": "Site A2"})
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 restating country, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUpdateReRunsDateRules(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	idA := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site A", "installation_date": "2024-01-01",
	}))
	idB := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site B", "installation_date": "2024-01-03",
	}))

	// Moving B onto A's date violates French date uniqueness.
	resp := doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", idB), gin.H{"installation_date": "2024-01-01"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 moving onto a taken date, got %d", resp.Code)
	}

	// Re-stating a site's own date passes: the check excludes the site itself.
	resp = doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", idA), gin.H{"installation_date": "2024-01-01"})
	if resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 restating own date, got %d: %s", resp.Code, resp.Body.String())
	}

	idIT := createdSiteID(t, doJSON(router, "POST", "/sites/italy", gin.H{"name": "Site IT"}))
	resp = doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", idIT), gin.H{"installation_date": "2024-01-02"})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 moving Italian site to a weekday, got %d", resp.Code)
	}
}

func TestUpdateVariantFieldMismatch(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Site A"}))

	resp := doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", id), gin.H{"efficiency": 0.8})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 setting efficiency on a French site, got %d", resp.Code)
	}
}

func TestPowerBoundsValidated(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site A", "min_power_megawatt": 5.0, "max_power_megawatt": 2.0,
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for min > max, got %d", resp.Code)
	}

	resp = doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site A", "min_power_megawatt": -1.0,
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for negative power, got %d", resp.Code)
	}

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Site A", "min_power_megawatt": 1.0, "max_power_megawatt": 2.0,
	}))
	resp = doJSON(router, "PATCH", fmt.Sprintf("/sites/%d", id), gin.H{"max_power_megawatt": 0.5})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 patching max below min, got %d", resp.Code)
	}
}

func TestAssociationAdmission(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	id := createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Site A"}))

	g3 := models.GroupType3
	closed := models.Group{Name: "Closed", Type: &g3}
	db.Create(&closed)

	resp := doJSON(router, "POST", fmt.Sprintf("/sites/%d/groups/%d", id, closed.ID), nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 joining a GROUP3 group, got %d", resp.Code)
	}

	g1 := models.GroupType1
	open := models.Group{Name: "Open", Type: &g1}
	db.Create(&open)
	untyped := models.Group{Name: "Untyped"}
	db.Create(&untyped)

	for _, gid := range []uint{open.ID, untyped.ID} {
		if resp := doJSON(router, "POST", fmt.Sprintf("/sites/%d/groups/%d", id, gid), nil); resp.Code != http.StatusOK {
			t.Errorf("Expected status 200 joining group %d, got %d", gid, resp.Code)
		}
	}

	// Re-adding an existing association is a no-op.
	if resp := doJSON(router, "POST", fmt.Sprintf("/sites/%d/groups/%d", id, open.ID), nil); resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 re-adding association, got %d", resp.Code)
	}

	resp = doJSON(router, "GET", fmt.Sprintf("/sites/%d/groups", id), nil)
	var groups []models.Group
	json.Unmarshal(resp.Body.Bytes(), &groups)
	if len(groups) != 2 {
		t.Errorf("Expected 2 associated groups, got %d", len(groups))
	}

	if resp := doJSON(router, "DELETE", fmt.Sprintf("/sites/%d/groups/%d", id, open.ID), nil); resp.Code != http.StatusOK {
		t.Errorf("Expected status 200 removing association, got %d", resp.Code)
	}
	resp = doJSON(router, "GET", fmt.Sprintf("/sites/%d/groups", id), nil)
	groups = nil
	json.Unmarshal(resp.Body.Bytes(), &groups)
	if len(groups) != 1 {
		t.Errorf("Expected 1 associated group after removal, got %d", len(groups))
	}

	// Unknown group id is a 404, not a validation failure.
	if resp := doJSON(router, "POST", fmt.Sprintf("/sites/%d/groups/9999", id), nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown group, got %d", resp.Code)
	}
}

func TestListDateRangeSortedByName(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Charlie", "installation_date": "2024-01-01",
	}))
	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Alpha", "installation_date": "2024-01-03",
	}))
	createdSiteID(t, doJSON(router, "POST", "/sites/italy", gin.H{
		"name": "Bravo", "installation_date": "2024-01-06",
	}))

	resp := doJSON(router, "GET", "/sites?installation_date_from=2024-01-01&installation_date_to=2024-01-06&sort_by=name&sort_order=asc", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var page query.Page[models.Site]
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.TotalCount != 3 {
		t.Fatalf("Expected 3 sites in range, got %d", page.TotalCount)
	}
	want := []string{"Alpha", "Bravo", "Charlie"}
	for i, name := range want {
		if page.Data[i].Name != name {
			t.Errorf("Position %d: expected %s, got %s", i, name, page.Data[i].Name)
		}
	}
	if page.HasMore {
		t.Error("Expected HasMore=false on a single full page")
	}

	// A second French site on an occupied date still fails.
	dup := doJSON(router, "POST", "/sites/france", gin.H{
		"name": "Delta", "installation_date": "2024-01-01",
	})
	if dup.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422 for duplicate date, got %d", dup.Code)
	}
}

func TestListNameSubstringFilter(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Site ABC"}))
	createdSiteID(t, doJSON(router, "POST", "/sites/france", gin.H{"name": "Other"}))

	resp := doJSON(router, "GET", "/sites?name=Site+A", nil)
	var page query.Page[models.Site]
	json.Unmarshal(resp.Body.Bytes(), &page)
	if page.TotalCount != 1 || page.Data[0].Name != "Site ABC" {
		t.Errorf("Expected substring match returning 'Site ABC', got %+v", page.Data)
	}
}

func TestSiteNotFound(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	if resp := doJSON(router, "GET", "/sites/42", nil); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
	if resp := doJSON(router, "PATCH", "/sites/42", gin.H{"name": "X"}); resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}
