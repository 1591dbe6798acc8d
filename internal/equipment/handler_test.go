package equipment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"labstock/internal/lifecycle"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/metadata"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore holds equipment in a map so the full engine runs under the
// handler without a database.
type memStore struct {
	items  map[int]*models.Equipment
	nextID int
}

func newMemStore(items ...*models.Equipment) *memStore {
	s := &memStore{items: make(map[int]*models.Equipment)}
	for _, item := range items {
		s.items[item.ID] = item
		if item.ID > s.nextID {
			s.nextID = item.ID
		}
	}
	return s
}

func (s *memStore) GetByIDForUpdate(tx *goqu.TxDatabase, id int) (*models.Equipment, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, custom_error.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (s *memStore) InsertTx(tx *goqu.TxDatabase, e *models.Equipment) (int, error) {
	s.nextID++
	e.ID = s.nextID
	copied := *e
	s.items[e.ID] = &copied
	return e.ID, nil
}

func (s *memStore) UpdateTx(tx *goqu.TxDatabase, e *models.Equipment) error {
	copied := *e
	s.items[e.ID] = &copied
	return nil
}

func (s *memStore) DeleteTx(tx *goqu.TxDatabase, id int) error {
	delete(s.items, id)
	return nil
}

type memLedger struct {
	movements []models.MovementLog
	audits    []models.AuditLog
}

func (l *memLedger) AppendMovementTx(tx *goqu.TxDatabase, m *models.MovementLog) error {
	l.movements = append(l.movements, *m)
	return nil
}

func (l *memLedger) AppendAuditTx(tx *goqu.TxDatabase, a *models.AuditLog) error {
	l.audits = append(l.audits, *a)
	return nil
}

type allActors struct{}

func (allActors) Exists(int) (bool, error) { return true, nil }

type passTransactor struct{}

func (passTransactor) WithTx(fn func(tx *goqu.TxDatabase) error) error { return fn(nil) }

func newTestHandler(store *memStore) (*EquipmentHandler, *memLedger) {
	ledger := &memLedger{}
	engine := lifecycle.NewEngine(store, ledger, allActors{}, passTransactor{}, metadata.EquipmentProfile)
	return NewHandler(nil, nil, engine), ledger
}

func doRequest(t *testing.T, handler gin.HandlerFunc, method string, id int, body interface{}, userID, role string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	c.Request = httptest.NewRequest(method, "/equipment", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("userID", userID)
	c.Set("role", role)
	if id != 0 {
		c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(id)}}
	}

	handler(c)
	return w
}

func available(id int) *models.Equipment {
	return &models.Equipment{
		ID:       id,
		AssetTag: "EQ-" + strconv.Itoa(id),
		Name:     "Bench Meter",
		Category: "Test Equipment",
		Status:   metadata.StatusAvailable.String(),
	}
}

func TestCreateEquipment(t *testing.T) {
	store := newMemStore()
	handler, ledger := newTestHandler(store)

	w := doRequest(t, handler.CreateEquipment, http.MethodPost, 0, EquipmentRequest{
		AssetTag: "EQ-900",
		Name:     "Power Supply",
		Category: "Bench Gear",
	}, "1", "lab_staff")

	require.Equal(t, http.StatusCreated, w.Code)
	var item models.Equipment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, metadata.StatusAvailable.String(), item.Status)
	assert.Len(t, ledger.movements, 1)
}

func TestCreateEquipmentMissingTag(t *testing.T) {
	handler, _ := newTestHandler(newMemStore())

	w := doRequest(t, handler.CreateEquipment, http.MethodPost, 0, EquipmentRequest{
		Name:     "Power Supply",
		Category: "Bench Gear",
	}, "1", "lab_staff")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateEquipmentBadDate(t *testing.T) {
	handler, _ := newTestHandler(newMemStore())

	date := "15-06-2023"
	w := doRequest(t, handler.CreateEquipment, http.MethodPost, 0, EquipmentRequest{
		AssetTag:        "EQ-901",
		Name:            "Power Supply",
		Category:        "Bench Gear",
		ProcurementDate: &date,
	}, "1", "lab_staff")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutEquipment(t *testing.T) {
	store := newMemStore(available(4))
	handler, _ := newTestHandler(store)

	w := doRequest(t, handler.CheckoutEquipment, http.MethodPost, 4, nil, "7", "researcher")

	require.Equal(t, http.StatusOK, w.Code)
	item := store.items[4]
	assert.Equal(t, metadata.StatusInUse.String(), item.Status)
	require.NotNil(t, item.AssignedToID)
	assert.Equal(t, 7, *item.AssignedToID)
}

func TestCheckoutUnavailableConflict(t *testing.T) {
	item := available(4)
	item.Status = metadata.StatusUnderMaintenance.String()
	handler, _ := newTestHandler(newMemStore(item))

	w := doRequest(t, handler.CheckoutEquipment, http.MethodPost, 4, nil, "7", "researcher")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckinByNonOwnerForbidden(t *testing.T) {
	item := available(4)
	owner := 3
	item.AssignedToID = &owner
	item.Status = metadata.StatusInUse.String()
	handler, _ := newTestHandler(newMemStore(item))

	w := doRequest(t, handler.CheckinEquipment, http.MethodPost, 4, nil, "7", "read_only")

	assert.Equal(t, http.StatusForbidden, w.Code)
}

// Anyone allowed to edit an item may return it for someone else, the same
// end state an edit clearing the assignee would reach.
func TestCheckinByResearcherNonOwner(t *testing.T) {
	item := available(4)
	owner := 3
	item.AssignedToID = &owner
	item.Status = metadata.StatusInUse.String()
	store := newMemStore(item)
	handler, _ := newTestHandler(store)

	w := doRequest(t, handler.CheckinEquipment, http.MethodPost, 4, nil, "7", "researcher")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.items[4].AssignedToID)
	assert.Equal(t, metadata.StatusAvailable.String(), store.items[4].Status)
}

func TestCheckinByStaffElevated(t *testing.T) {
	item := available(4)
	owner := 3
	item.AssignedToID = &owner
	item.Status = metadata.StatusInUse.String()
	store := newMemStore(item)
	handler, _ := newTestHandler(store)

	w := doRequest(t, handler.CheckinEquipment, http.MethodPost, 4, nil, "7", "lab_staff")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.items[4].AssignedToID)
}

func TestCheckinWithReturnLocation(t *testing.T) {
	item := available(4)
	owner := 3
	item.AssignedToID = &owner
	item.Status = metadata.StatusInUse.String()
	item.Location = "Lab 1"
	store := newMemStore(item)
	handler, ledger := newTestHandler(store)

	w := doRequest(t, handler.CheckinEquipment, http.MethodPost, 4,
		map[string]interface{}{"location": "Storage / Cabinet 3"}, "3", "researcher")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Storage / Cabinet 3", store.items[4].Location)
	require.Len(t, ledger.movements, 1)
	assert.Equal(t, "Lab 1", *ledger.movements[0].FromLocation)
	assert.Equal(t, "Storage / Cabinet 3", *ledger.movements[0].ToLocation)
}

func TestAssignEquipment(t *testing.T) {
	store := newMemStore(available(4))
	handler, ledger := newTestHandler(store)

	w := doRequest(t, handler.AssignEquipment, http.MethodPost, 4,
		map[string]interface{}{"user_id": 12}, "1", "lab_staff")

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, ledger.movements, 1)
	assert.Equal(t, 12, *ledger.movements[0].ToUserID)
}

func TestAssignMissingUserID(t *testing.T) {
	handler, _ := newTestHandler(newMemStore(available(4)))

	w := doRequest(t, handler.AssignEquipment, http.MethodPost, 4,
		map[string]interface{}{}, "1", "lab_staff")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDisposeAssignedConflict(t *testing.T) {
	item := available(4)
	owner := 3
	item.AssignedToID = &owner
	item.Status = metadata.StatusInUse.String()
	handler, _ := newTestHandler(newMemStore(item))

	w := doRequest(t, handler.DisposeEquipment, http.MethodPost, 4,
		map[string]interface{}{"status": "retired"}, "1", "lab_staff")

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestEquipmentNotFound(t *testing.T) {
	handler, _ := newTestHandler(newMemStore())

	w := doRequest(t, handler.CheckoutEquipment, http.MethodPost, 99, nil, "7", "researcher")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMoveEquipment(t *testing.T) {
	store := newMemStore(available(4))
	handler, ledger := newTestHandler(store)

	w := doRequest(t, handler.MoveEquipment, http.MethodPost, 4,
		map[string]interface{}{"location": "Lab C"}, "1", "lab_staff")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lab C", store.items[4].Location)
	require.Len(t, ledger.movements, 1)
	assert.Equal(t, models.MovementMove, ledger.movements[0].Action)
}

func TestDeleteEquipment(t *testing.T) {
	store := newMemStore(available(4))
	handler, ledger := newTestHandler(store)

	w := doRequest(t, handler.DeleteEquipment, http.MethodDelete, 4, nil, "1", "admin")

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, store.items, 4)
	// deletion leaves an audit record but no movement
	assert.Empty(t, ledger.movements)
	assert.Len(t, ledger.audits, 1)
}
