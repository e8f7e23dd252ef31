package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/beacon-health/counseling-api/api/assignment"
	"github.com/beacon-health/counseling-api/api/handlers"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/databases/mocks"
	"github.com/beacon-health/counseling-api/models"
)

func TestSession_SessionByIDHandlerBadID(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions/1234", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "1234"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.SessionByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "session ID is not a valid ObjectID", Error: "the provided hex string is not a valid ObjectID"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestSession_SessionByIDHandlerNotFound(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions/5fc51f58c72ff10004dca382", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(errors.New("mongo: no documents in result"))
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.SessionByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusNotFound)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "failed to get session by ID", Error: "mongo: no documents in result"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestSession_SessionByIDHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions/5fc51f58c72ff10004dca382", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var singleResultHelper databases.SingleResultHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	singleResultHelper = &mocks.SingleResultHelper{}

	singleResultHelper.(*mocks.SingleResultHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusActive
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(singleResultHelper)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.SessionByIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var got models.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "5fc51f58c72ff10004dca382", got.ID)
	assert.Equal(t, models.SessionStatusActive, got.Details.Status)
}

func TestSession_SessionHandlerEmpty(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions?status=waiting", nil)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).On("Decode", mock.Anything).Return(nil)
	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursorHelper, nil)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.SessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	if rr.Body.String() != "[]" {
		t.Errorf("handler returned unexpected body: got %v want []", rr.Body.String())
	}
}

func TestSession_EndSessionHandlerAlreadyCompleted(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/end", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	casResult := &mocks.SingleResultHelper{}
	casResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.(*mocks.CollectionHelper).On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(casResult)

	findResult := &mocks.SingleResultHelper{}
	findResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusCompleted
		(*arg).Details.CompletedAt = "2026-08-01T10:00:00Z"
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(findResult)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.EndSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	// the stored record comes back untouched, first completedAt wins
	var got models.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, models.SessionStatusCompleted, got.Details.Status)
	assert.Equal(t, "2026-08-01T10:00:00Z", got.Details.CompletedAt)
}

func TestSession_EndSessionHandlerConflict(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/end", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	casResult := &mocks.SingleResultHelper{}
	casResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.(*mocks.CollectionHelper).On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(casResult)

	findResult := &mocks.SingleResultHelper{}
	findResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusPending
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(findResult)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.EndSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "session is not active", Error: "mongo: no documents in result"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestSession_CancelSessionHandlerConflict(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/cancel", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}

	casResult := &mocks.SingleResultHelper{}
	casResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	conn.(*mocks.CollectionHelper).On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(casResult)

	findResult := &mocks.SingleResultHelper{}
	findResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusActive
	})
	conn.(*mocks.CollectionHelper).On("FindOne", mock.Anything, mock.Anything).Return(findResult)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.CancelSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}
}

func TestSession_AutoAssignHandlerNoCounselorAvailable(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/auto-assign/5fc51f58c72ff10004dca382", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	sessionConn := &mocks.CollectionHelper{}
	sessionResult := &mocks.SingleResultHelper{}
	sessionResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusPending
	})
	sessionConn.On("FindOne", mock.Anything, mock.Anything).Return(sessionResult)

	counselorConn := &mocks.CollectionHelper{}
	counselorCursor := &mocks.CursorHelper{}
	counselorCursor.On("Decode", mock.Anything).Return(nil)
	counselorConn.On("Find", mock.Anything, mock.Anything).Return(counselorCursor, nil)

	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(sessionConn)
	db.(*MockDatabaseHelper).On("Collection", "counselors").Return(counselorConn)

	sessionDatabase := databases.NewSessionDatabase(db)
	counselorDatabase := databases.NewCounselorDatabase(db)
	engine := assignment.NewEngine(sessionDatabase, counselorDatabase, nil, 3)
	s := handlers.Session{
		DB:     sessionDatabase,
		Engine: engine,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.AutoAssignHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var got models.AssignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	assert.False(t, got.Assigned)
	if assert.NotNil(t, got.Session) {
		assert.Equal(t, models.SessionStatusPending, got.Session.Details.Status)
	}
}

func TestSession_ActivateSessionHandlerConflict(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/activate", jsonBody(`{"counselorID": "5fc51f58c72ff10004dca999"}`))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	sessionConn := &mocks.CollectionHelper{}
	casResult := &mocks.SingleResultHelper{}
	casResult.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)
	sessionConn.On("FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(casResult)

	findResult := &mocks.SingleResultHelper{}
	findResult.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Session)
		(*arg).ID = "5fc51f58c72ff10004dca382"
		(*arg).Details.Status = models.SessionStatusActive
		(*arg).Details.CounselorID = "someone-else"
	})
	sessionConn.On("FindOne", mock.Anything, mock.Anything).Return(findResult)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(sessionConn)

	// booking succeeds, then the session CAS loses and the booking is rolled back
	counselorConn := &mocks.CollectionHelper{}
	counselorConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 1}, nil)
	db.(*MockDatabaseHelper).On("Collection", "counselors").Return(counselorConn)

	sessionDatabase := databases.NewSessionDatabase(db)
	counselorDatabase := databases.NewCounselorDatabase(db)
	engine := assignment.NewEngine(sessionDatabase, counselorDatabase, nil, 3)
	s := handlers.Session{
		DB:     sessionDatabase,
		Engine: engine,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.ActivateSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	// one call books the counselor, the second rolls the booking back
	counselorConn.AssertNumberOfCalls(t, "UpdateOne", 2)
}

func TestSession_ActivateSessionHandlerCounselorAtCapacity(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/activate", jsonBody(`{"counselorID": "5fc51f58c72ff10004dca999"}`))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	// the gated booking matches nothing: counselor full or unavailable
	counselorConn := &mocks.CollectionHelper{}
	counselorConn.On("UpdateOne", mock.Anything, mock.Anything, mock.Anything).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	db.(*MockDatabaseHelper).On("Collection", "counselors").Return(counselorConn)

	sessionConn := &mocks.CollectionHelper{}
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(sessionConn)

	sessionDatabase := databases.NewSessionDatabase(db)
	counselorDatabase := databases.NewCounselorDatabase(db)
	engine := assignment.NewEngine(sessionDatabase, counselorDatabase, nil, 3)
	s := handlers.Session{
		DB:     sessionDatabase,
		Engine: engine,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.ActivateSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "counselor cannot take this session", Error: "counselor is unavailable or at capacity"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}

	// the session is never touched when the counselor cannot be booked
	sessionConn.AssertNotCalled(t, "FindOneAndUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSession_CreateSessionHandlerInvalidPulseLevel(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions", jsonBody(`{"userID": "5fc51f58c72ff10004dca382", "pulseLevel": 7}`))
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.CreateSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "pulseLevel must be between 0 and 5", Error: "pulseLevel out of range"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestSession_CreateSessionHandlerMinimalBody(t *testing.T) {
	// the frontend's smallest create call carries only the user ID; pulseLevel
	// defaults to 0 (unset)
	req, err := http.NewRequest("POST", "/api/v1/sessions", jsonBody(`{"userID": "5fc51f58c72ff10004dca382"}`))
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	conn := &mocks.CollectionHelper{}
	insertResult := &mocks.InsertOneResultHelper{}
	conn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(conn)

	sessionDatabase := databases.NewSessionDatabase(db)
	s := handlers.Session{
		DB: sessionDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(s.CreateSessionHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	var got models.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, models.SessionStatusPending, got.Details.Status)
	assert.Equal(t, 0, got.Details.PulseLevel)
	assert.Equal(t, "5fc51f58c72ff10004dca382", got.Details.UserID)
}
