package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/veriport/veriport"
	"github.com/veriport/veriport/internal/domain"
	"github.com/veriport/veriport/internal/usecase"
)

const (
	testOwner     = "0x1111111111111111111111111111111111111111"
	testOrganizer = "0x2222222222222222222222222222222222222222"
)

// --- mocks ---

type mockLedger struct {
	records map[uint64]*veriport.AttestationRequest
	log     []veriport.CreationEvent
	head    uint64
	nextID  uint64
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		records: map[uint64]*veriport.AttestationRequest{},
		nextID:  1,
	}
}

func (m *mockLedger) CreateRequest(ctx context.Context, organizer string, startAt, endAt time.Time, contentHash, contentURI string) (uint64, string, error) {
	id := m.nextID
	m.nextID++
	m.records[id] = &veriport.AttestationRequest{
		ID:          id,
		Owner:       testOwner,
		Organizer:   organizer,
		StartAt:     startAt,
		EndAt:       endAt,
		ContentHash: contentHash,
		ContentURI:  contentURI,
		Status:      veriport.StatusPending,
	}
	m.head++
	m.log = append(m.log, veriport.CreationEvent{ID: id, Owner: testOwner, Organizer: organizer, Height: m.head})
	return id, fmt.Sprintf("0xtx%d", id), nil
}

func (m *mockLedger) Confirm(ctx context.Context, id uint64, resultURI string) (string, error) {
	m.records[id].Status = veriport.StatusConfirmed
	m.records[id].ResultURI = resultURI
	return "0xtxconfirm", nil
}

func (m *mockLedger) Reject(ctx context.Context, id uint64, reasonURI string) (string, error) {
	m.records[id].Status = veriport.StatusRejected
	m.records[id].ReasonURI = reasonURI
	return "0xtxreject", nil
}

func (m *mockLedger) GetRecord(ctx context.Context, id uint64) (*veriport.AttestationRequest, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.NotFoundError{Resource: "record"}
	}
	copied := *rec
	return &copied, nil
}

func (m *mockLedger) ListCreated(ctx context.Context, party domain.Party, address string, fromHeight uint64) ([]veriport.CreationEvent, uint64, error) {
	var events []veriport.CreationEvent
	for _, ev := range m.log {
		if ev.Height < fromHeight {
			continue
		}
		switch party {
		case domain.PartyOwner:
			if veriport.EqualHash(ev.Owner, address) {
				events = append(events, ev)
			}
		case domain.PartyOrganizer:
			if veriport.EqualHash(ev.Organizer, address) {
				events = append(events, ev)
			}
		}
	}
	return events, m.head, nil
}

type mockStore struct {
	content map[string][]byte
	nextCID int
}

func newMockStore() *mockStore {
	return &mockStore{content: map[string][]byte{}}
}

func (m *mockStore) Pin(ctx context.Context, document []byte, name string) (veriport.PinResult, error) {
	m.nextCID++
	cid := fmt.Sprintf("bafy%d", m.nextCID)
	uri := veriport.ComposeLocator(cid, "")
	m.content[uri] = document
	return veriport.PinResult{CID: cid, URI: uri, Size: int64(len(document))}, nil
}

func (m *mockStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	body, ok := m.content[locator]
	if !ok {
		return nil, domain.FetchError{Status: http.StatusNotFound, Snippet: "not pinned"}
	}
	return body, nil
}

func (m *mockStore) Resolve(locator string) (string, error) {
	return locator, nil
}

type mockAudit struct {
	decisions []domain.Decision
}

func (m *mockAudit) Record(ctx context.Context, decision domain.Decision) error {
	m.decisions = append(m.decisions, decision)
	return nil
}

func (m *mockAudit) ListByRequest(ctx context.Context, requestID uint64) ([]domain.Decision, error) {
	var out []domain.Decision
	for _, d := range m.decisions {
		if d.RequestID == requestID {
			out = append(out, d)
		}
	}
	return out, nil
}

// --- helpers ---

func newTestServer(t *testing.T) (*echo.Echo, *mockLedger, *mockStore) {
	t.Helper()
	ledger := newMockLedger()
	store := newMockStore()
	verify := usecase.NewVerifyUsecase(store)
	lifecycle := usecase.NewLifecycleUsecase(ledger, store, verify, &mockAudit{}, nil, testOrganizer)
	discovery := usecase.NewDiscoveryUsecase(ledger, nil, 1)

	h := NewHandler(lifecycle, discovery, verify, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, ledger, store
}

func do(e *echo.Echo, method, path string, payload any) *httptest.ResponseRecorder {
	var body []byte
	if payload != nil {
		body, _ = json.Marshal(payload)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res := httptest.NewRecorder()
	e.ServeHTTP(res, req)
	return res
}

func createRequestBody() map[string]string {
	return map[string]string{
		"organizer":   testOrganizer,
		"startAt":     "2026-03-01",
		"endAt":       "2026-03-02",
		"title":       "Web3 Hackathon Final",
		"description": "First place",
	}
}

// --- tests ---

func TestHandleCreate(t *testing.T) {
	e, ledger, _ := newTestServer(t)

	res := do(e, http.MethodPost, "/api/v1/requests", createRequestBody())
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body)
	}

	var result usecase.CreateResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if result.ID != 1 || result.TxHash == "" || result.ContentHash == "" {
		t.Fatalf("unexpected create result: %+v", result)
	}
	if ledger.records[result.ID].ContentURI != result.Pin.URI {
		t.Fatalf("ledger record does not reference the pinned document")
	}
}

func TestHandleCreateValidation(t *testing.T) {
	e, _, _ := newTestServer(t)

	cases := []map[string]string{
		{"organizer": testOrganizer, "startAt": "2026-03-01", "endAt": "2026-03-02", "title": ""},
		{"organizer": "nope", "startAt": "2026-03-01", "endAt": "2026-03-02", "title": "X"},
		{"organizer": testOrganizer, "startAt": "2026-03-02", "endAt": "2026-03-01", "title": "X"},
		{"organizer": testOrganizer, "startAt": "not-a-date", "endAt": "2026-03-02", "title": "X"},
	}
	for i, body := range cases {
		res := do(e, http.MethodPost, "/api/v1/requests", body)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400 got %d", i, res.Code)
		}
	}
}

func TestHandleGet(t *testing.T) {
	e, _, _ := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	res := do(e, http.MethodGet, "/api/v1/requests/1", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var rec veriport.AttestationRequest
	if err := json.Unmarshal(res.Body.Bytes(), &rec); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if rec.ID != 1 || rec.Status != veriport.StatusPending {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if res := do(e, http.MethodGet, "/api/v1/requests/99", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.Code)
	}
	if res := do(e, http.MethodGet, "/api/v1/requests/abc", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}

func TestHandleVerify(t *testing.T) {
	e, ledger, store := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	res := do(e, http.MethodGet, "/api/v1/requests/1/verify", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var result veriport.VerificationResult
	json.Unmarshal(res.Body.Bytes(), &result)
	if !result.OK {
		t.Fatalf("expected verification to pass: %+v", result)
	}

	uri := ledger.records[1].ContentURI
	store.content[uri] = []byte("tampered")

	res = do(e, http.MethodGet, "/api/v1/requests/1/verify", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("a failed verification is an outcome, not an error: got %d", res.Code)
	}
	json.Unmarshal(res.Body.Bytes(), &result)
	if result.OK || result.Reason == "" {
		t.Fatalf("expected failed verification with reason: %+v", result)
	}
}

func TestHandleConfirm(t *testing.T) {
	e, ledger, _ := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	res := do(e, http.MethodPost, "/api/v1/requests/1/confirm", map[string]string{})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body)
	}
	if ledger.records[1].Status != veriport.StatusConfirmed {
		t.Fatalf("expected confirmed record")
	}

	// Terminal records conflict.
	if res := do(e, http.MethodPost, "/api/v1/requests/1/confirm", map[string]string{}); res.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", res.Code)
	}
}

func TestHandleConfirmUnverifiedContent(t *testing.T) {
	e, ledger, store := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	uri := ledger.records[1].ContentURI
	store.content[uri] = append(store.content[uri], ' ')

	res := do(e, http.MethodPost, "/api/v1/requests/1/confirm", map[string]string{})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d: %s", res.Code, res.Body)
	}
	if ledger.records[1].Status != veriport.StatusPending {
		t.Fatalf("record must stay pending")
	}
}

func TestHandleReject(t *testing.T) {
	e, ledger, _ := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	if res := do(e, http.MethodPost, "/api/v1/requests/1/reject", map[string]string{}); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing reason, got %d", res.Code)
	}

	res := do(e, http.MethodPost, "/api/v1/requests/1/reject", map[string]string{"reason": "certificate is unreadable"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body)
	}
	if ledger.records[1].Status != veriport.StatusRejected || ledger.records[1].ReasonURI == "" {
		t.Fatalf("expected rejected record with reasonURI")
	}
}

func TestHandleListForOrganizer(t *testing.T) {
	e, _, _ := newTestServer(t)
	for i := 0; i < 3; i++ {
		do(e, http.MethodPost, "/api/v1/requests", createRequestBody())
	}
	do(e, http.MethodPost, "/api/v1/requests/1/confirm", map[string]string{})

	res := do(e, http.MethodGet, "/api/v1/organizers/"+testOrganizer+"/requests", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var all []veriport.AttestationRequest
	json.Unmarshal(res.Body.Bytes(), &all)
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}

	res = do(e, http.MethodGet, "/api/v1/organizers/"+testOrganizer+"/requests?status=pending", nil)
	var pending []veriport.AttestationRequest
	json.Unmarshal(res.Body.Bytes(), &pending)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending records, got %d", len(pending))
	}

	if res := do(e, http.MethodGet, "/api/v1/organizers/"+testOrganizer+"/requests?status=bogus", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.Code)
	}
}

func TestHandleListForOwner(t *testing.T) {
	e, _, _ := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())

	res := do(e, http.MethodGet, "/api/v1/owners/"+testOwner+"/requests", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var records []veriport.AttestationRequest
	json.Unmarshal(res.Body.Bytes(), &records)
	if len(records) != 1 || records[0].Owner != testOwner {
		t.Fatalf("unexpected records: %+v", records)
	}

	if res := do(e, http.MethodGet, "/api/v1/owners/nope/requests", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid address, got %d", res.Code)
	}
}

func TestHandleDecisions(t *testing.T) {
	e, _, _ := newTestServer(t)
	do(e, http.MethodPost, "/api/v1/requests", createRequestBody())
	do(e, http.MethodPost, "/api/v1/requests/1/reject", map[string]string{"reason": "nope"})

	res := do(e, http.MethodGet, "/api/v1/requests/1/decisions", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var decisions []domain.Decision
	json.Unmarshal(res.Body.Bytes(), &decisions)
	if len(decisions) != 2 {
		t.Fatalf("expected create and reject decisions, got %d", len(decisions))
	}
	if decisions[1].Action != domain.ActionReject || decisions[1].URIDigest == "" {
		t.Fatalf("reject decision must carry the reason digest: %+v", decisions[1])
	}
}
