package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusride/rideshare-backend/internal/models"
	"github.com/campusride/rideshare-backend/internal/stores"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Ride{}, &models.Message{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@campus.edu", name),
		PasswordHash: "x",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return &user
}

func createTestRide(t *testing.T, store *stores.RideStore, ownerID uint) *models.Ride {
	t.Helper()

	ride, err := store.Create(context.Background(), ownerID, stores.RideInput{
		OriginCity:    "Jaipur",
		TravelDate:    time.Now().Add(48 * time.Hour),
		ArrivalTime:   "10:30 AM",
		TransportMode: string(models.TransportTrain),
	})
	if err != nil {
		t.Fatalf("failed to create test ride: %v", err)
	}
	return ride
}

// stubAuth injects the identity the auth middleware would set from the JWT.
func stubAuth(userID uint, name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("userName", name)
		c.Next()
	}
}

type fakeNotifier struct {
	calls chan string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{calls: make(chan string, 1)}
}

func (f *fakeNotifier) NotifyJoin(_ context.Context, _ *models.Ride, joinerName string) {
	f.calls <- joinerName
}

func TestJoinRide(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)

	owner := createTestUser(t, db, "alice")
	joiner := createTestUser(t, db, "bob")
	ride := createTestRide(t, store, owner.ID)

	notifier := newFakeNotifier()
	router := gin.New()
	router.POST("/rides/:rideId/join", stubAuth(joiner.ID, joiner.Name), JoinRide(store, notifier))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rides/%d/join", ride.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var body models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(body.Participants) != 2 {
		t.Errorf("expected 2 participants, got %d", len(body.Participants))
	}

	select {
	case joinerName := <-notifier.calls:
		if joinerName != "bob" {
			t.Errorf("expected notification for %q, got %q", "bob", joinerName)
		}
	case <-time.After(time.Second):
		t.Error("expected the owner to be notified of the join")
	}
}

func TestJoinRide_Duplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)

	owner := createTestUser(t, db, "alice")
	joiner := createTestUser(t, db, "bob")
	ride := createTestRide(t, store, owner.ID)

	if _, err := store.Join(context.Background(), ride.ID, joiner.ID); err != nil {
		t.Fatalf("failed to seed join: %v", err)
	}

	notifier := newFakeNotifier()
	router := gin.New()
	router.POST("/rides/:rideId/join", stubAuth(joiner.ID, joiner.Name), JoinRide(store, notifier))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/rides/%d/join", ride.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", w.Code, w.Body.String())
	}

	select {
	case <-notifier.calls:
		t.Error("expected no notification for a rejected join")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJoinRide_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)

	joiner := createTestUser(t, db, "bob")

	router := gin.New()
	router.POST("/rides/:rideId/join", stubAuth(joiner.ID, joiner.Name), JoinRide(store, newFakeNotifier()))

	req := httptest.NewRequest(http.MethodPost, "/rides/999/join", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetRides_HidesPhoneUnlessVisible(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)

	owner := createTestUser(t, db, "alice")
	viewer := createTestUser(t, db, "bob")

	if _, err := store.Create(context.Background(), owner.ID, stores.RideInput{
		OriginCity:    "Delhi",
		TravelDate:    time.Now().Add(48 * time.Hour),
		TransportMode: string(models.TransportBus),
		Phone:         "9876543210",
		PhoneVisible:  false,
	}); err != nil {
		t.Fatalf("failed to create ride: %v", err)
	}

	router := gin.New()
	router.GET("/rides", stubAuth(viewer.ID, viewer.Name), GetRides(store))

	req := httptest.NewRequest(http.MethodGet, "/rides", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var rides []models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &rides); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rides) != 1 {
		t.Fatalf("expected 1 ride, got %d", len(rides))
	}
	if rides[0].Phone != "" {
		t.Errorf("expected phone to be hidden, got %q", rides[0].Phone)
	}
}

func TestGetRides_HidesAccountPhones(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)

	owner := createTestUser(t, db, "alice")
	joiner := createTestUser(t, db, "bob")
	viewer := createTestUser(t, db, "carol")

	if err := db.Model(owner).Update("phone", "1110001111").Error; err != nil {
		t.Fatalf("failed to set owner phone: %v", err)
	}
	if err := db.Model(joiner).Update("phone", "2220002222").Error; err != nil {
		t.Fatalf("failed to set joiner phone: %v", err)
	}

	ride := createTestRide(t, store, owner.ID)
	if _, err := store.Join(context.Background(), ride.ID, joiner.ID); err != nil {
		t.Fatalf("failed to seed join: %v", err)
	}

	router := gin.New()
	router.GET("/rides", stubAuth(viewer.ID, viewer.Name), GetRides(store))

	req := httptest.NewRequest(http.MethodGet, "/rides", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var rides []models.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &rides); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rides) != 1 {
		t.Fatalf("expected 1 ride, got %d", len(rides))
	}
	if rides[0].User.Phone != "" {
		t.Errorf("expected owner account phone to be hidden, got %q", rides[0].User.Phone)
	}
	for _, p := range rides[0].Participants {
		if p.Phone != "" {
			t.Errorf("expected participant %q phone to be hidden, got %q", p.Name, p.Phone)
		}
	}
}

func TestCreateRide_RejectsUnknownTransportMode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	store := stores.NewRideStore(db)
	owner := createTestUser(t, db, "alice")

	router := gin.New()
	router.POST("/rides", stubAuth(owner.ID, owner.Name), CreateRide(store))

	payload := fmt.Sprintf(`{"originCity":"Jaipur","travelDate":%q,"transportMode":"Rocket"}`,
		time.Now().Add(48*time.Hour).Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/rides", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", w.Code, w.Body.String())
	}
}
