package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/beacon-health/counseling-api/api/handlers"
	"github.com/beacon-health/counseling-api/databases"
	"github.com/beacon-health/counseling-api/databases/mocks"
	"github.com/beacon-health/counseling-api/models"
)

func TestMessage_MessagesBySessionIDHandlerEmpty(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions/5fc51f58c72ff10004dca382/messages", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	cursorHelper.(*mocks.CursorHelper).On("Decode", mock.Anything).Return(nil)
	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursorHelper, nil)
	db.(*MockDatabaseHelper).On("Collection", "messages").Return(conn)

	messageDatabase := databases.NewMessageDatabase(db)
	m := handlers.Message{
		DB: messageDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(m.MessagesBySessionIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	if rr.Body.String() != "[]" {
		t.Errorf("handler returned unexpected body: got %v want []", rr.Body.String())
	}
}

func TestMessage_MessagesBySessionIDHandlerMarksCounterpartRead(t *testing.T) {
	req, err := http.NewRequest("GET", "/api/v1/sessions/5fc51f58c72ff10004dca382/messages?reader_role=user", nil)
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	var conn databases.CollectionHelper
	var cursorHelper databases.CursorHelper

	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}
	conn = &mocks.CollectionHelper{}
	cursorHelper = &mocks.CursorHelper{}

	conn.(*mocks.CollectionHelper).On("UpdateMany", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	cursorHelper.(*mocks.CursorHelper).On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.Message)
		*arg = []models.Message{
			{ID: "m1", Details: models.MessageDetails{SessionID: "5fc51f58c72ff10004dca382", SenderRole: models.SenderRoleCounselor, Content: "hello", Read: true}},
		}
	})
	conn.(*mocks.CollectionHelper).On("Find", mock.Anything, mock.Anything, mock.Anything).Return(cursorHelper, nil)
	db.(*MockDatabaseHelper).On("Collection", "messages").Return(conn)

	messageDatabase := databases.NewMessageDatabase(db)
	m := handlers.Message{
		DB: messageDatabase,
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(m.MessagesBySessionIDHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	// the reader's own fetch marks counterpart messages read
	conn.(*mocks.CollectionHelper).AssertCalled(t, "UpdateMany", mock.Anything, mock.Anything, mock.Anything)

	var got []models.Message
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if assert.Len(t, got, 1) {
		assert.True(t, got[0].Details.Read)
	}
}

func TestMessage_CreateMessageHandlerInvalidRole(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/messages", jsonBody(`{"senderID": "u1", "senderRole": "admin", "content": "hi"}`))
	if err != nil {
		t.Fatal(err)
	}

	req = mux.SetURLVars(req, map[string]string{"session_id": "5fc51f58c72ff10004dca382"})
	req.Header.Set("Authorization", "Bearer abc123")

	var db databases.DatabaseHelper
	db = &MockDatabaseHelper{} // can be used as db = &mocks.DatabaseHelper{}

	m := handlers.Message{
		DB:  databases.NewMessageDatabase(db),
		SDB: databases.NewSessionDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(m.CreateMessageHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusBadRequest)
	}
}

func TestMessage_CreateMessageHandlerSessionClosed(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/messages", jsonBody(`{"senderID": "u1", "senderRole": "user", "content": "hi"}`))
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
		(*arg).Details.Status = models.SessionStatusCompleted
	})
	sessionConn.On("FindOne", mock.Anything, mock.Anything).Return(sessionResult)
	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(sessionConn)

	m := handlers.Message{
		DB:  databases.NewMessageDatabase(db),
		SDB: databases.NewSessionDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(m.CreateMessageHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusConflict {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusConflict)
	}

	expected := models.ErrorMessageResponse{Response: models.MessageError{Message: "session is completed or cancelled", Error: "session closed"}}
	b, _ := json.Marshal(expected)
	if rr.Body.String() != string(b) {
		t.Errorf("handler returned unexpected body: \ngot: %v \nwant: %v", rr.Body.String(), expected)
	}
}

func TestMessage_CreateMessageHandlerSuccess(t *testing.T) {
	req, err := http.NewRequest("POST", "/api/v1/sessions/5fc51f58c72ff10004dca382/messages", jsonBody(`{"senderID": "u1", "senderRole": "user", "content": "hi there"}`))
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
		(*arg).Details.Status = models.SessionStatusActive
	})
	sessionConn.On("FindOne", mock.Anything, mock.Anything).Return(sessionResult)

	messageConn := &mocks.CollectionHelper{}
	insertResult := &mocks.InsertOneResultHelper{}
	messageConn.On("InsertOne", mock.Anything, mock.Anything).Return(insertResult, nil)

	db.(*MockDatabaseHelper).On("Collection", "sessions").Return(sessionConn)
	db.(*MockDatabaseHelper).On("Collection", "messages").Return(messageConn)

	m := handlers.Message{
		DB:  databases.NewMessageDatabase(db),
		SDB: databases.NewSessionDatabase(db),
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(m.CreateMessageHandler)

	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusCreated {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusCreated)
	}

	var got models.Message
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, "hi there", got.Details.Content)
	assert.Equal(t, models.SenderRoleUser, got.Details.SenderRole)
	assert.False(t, got.Details.Read)
}
