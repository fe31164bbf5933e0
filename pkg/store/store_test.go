package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/weft/pkg/analytics"
	"github.com/ajitpratap0/weft/pkg/config"
	"github.com/ajitpratap0/weft/pkg/json"
	"github.com/ajitpratap0/weft/pkg/platform"
	"github.com/ajitpratap0/weft/pkg/testutil"
	"github.com/ajitpratap0/weft/pkg/wefterrors"
)

func validParams() CreateParams {
	return CreateParams{
		OrganizationID: uuid.New(),
		Name:           "prod-github",
		Source:         "github",
		AuthProvider:   platform.ProviderComposio,
	}
}

func TestValidateCreateAccepts(t *testing.T) {
	require.NoError(t, ValidateCreate(validParams()))
}

func TestValidateCreateRejectsMissingFields(t *testing.T) {
	params := validParams()
	params.Name = ""
	err := ValidateCreate(params)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeValidation))

	params = validParams()
	params.OrganizationID = uuid.Nil
	require.Error(t, ValidateCreate(params))
}

func TestValidateCreateRejectsUnknownSource(t *testing.T) {
	params := validParams()
	params.Source = "salesforce"

	err := ValidateCreate(params)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeValidation))
}

func TestValidateCreateRejectsUnknownProvider(t *testing.T) {
	params := validParams()
	params.AuthProvider = platform.AuthProvider("klavis")

	require.Error(t, ValidateCreate(params))
}

func TestValidateCreateRejectsIncompatiblePair(t *testing.T) {
	params := validParams()
	params.Source = "todoist"

	err := ValidateCreate(params)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeValidation))

	// The error names the providers that would work, if any.
	var weftErr *wefterrors.Error
	require.ErrorAs(t, err, &weftErr)
	assert.Contains(t, weftErr.Details, "compatible_providers")
}

func TestValidateStatus(t *testing.T) {
	assert.NoError(t, validateStatus(StatusPendingAuth))
	assert.NoError(t, validateStatus(StatusActive))
	assert.NoError(t, validateStatus(StatusError))
	assert.Error(t, validateStatus(Status("archived")))
}

// fakeDB stands in for the pgx pool so the query paths can run without a
// live database.
type fakeDB struct {
	execSQL  []string
	execArgs [][]any
	execTag  pgconn.CommandTag
	execErr  error

	row      pgx.Row
	rows     pgx.Rows
	queryErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return f.execTag, f.execErr
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return f.row
}

func scanInto(dest []any, conn *SourceConnection) {
	*(dest[0].(*uuid.UUID)) = conn.ID
	*(dest[1].(*uuid.UUID)) = conn.OrganizationID
	*(dest[2].(*string)) = conn.Name
	*(dest[3].(*string)) = string(conn.Source)
	*(dest[4].(*string)) = string(conn.AuthProvider)
	*(dest[5].(*string)) = string(conn.Status)
	*(dest[6].(*time.Time)) = conn.CreatedAt
	*(dest[7].(*time.Time)) = conn.UpdatedAt
}

type fakeRow struct {
	conn *SourceConnection
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	scanInto(dest, r.conn)
	return nil
}

type fakeRows struct {
	conns []*SourceConnection
	idx   int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx <= len(r.conns)
}

func (r *fakeRows) Scan(dest ...any) error {
	scanInto(dest, r.conns[r.idx-1])
	return nil
}

func newFakeStore(f *fakeDB, events *analytics.BusinessEventTracker) *Store {
	return &Store{
		db:     f,
		events: events,
		logger: zap.NewNop(),
	}
}

func testConnection() *SourceConnection {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &SourceConnection{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Name:           "prod-github",
		Source:         platform.SourceGitHub,
		AuthProvider:   platform.ProviderComposio,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateInsertsPendingConnection(t *testing.T) {
	f := &fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	st := newFakeStore(f, nil)

	conn, err := st.Create(context.Background(), analytics.RequestHeaders{}, validParams())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, conn.ID)
	assert.Equal(t, StatusPendingAuth, conn.Status)
	assert.Equal(t, platform.SourceGitHub, conn.Source)

	require.Len(t, f.execSQL, 1)
	assert.Contains(t, f.execSQL[0], "INSERT INTO source_connections")
	assert.Len(t, f.execArgs[0], 8)
}

func TestCreateInsertFailure(t *testing.T) {
	f := &fakeDB{execErr: assert.AnError}
	st := newFakeStore(f, nil)

	_, err := st.Create(context.Background(), analytics.RequestHeaders{}, validParams())
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConnection))
}

func TestCreateRejectsBeforeTouchingDatabase(t *testing.T) {
	f := &fakeDB{}
	st := newFakeStore(f, nil)

	params := validParams()
	params.Source = "todoist"
	_, err := st.Create(context.Background(), analytics.RequestHeaders{}, params)
	require.Error(t, err)
	assert.Empty(t, f.execSQL)
}

func TestCreateEmitsBusinessEvent(t *testing.T) {
	var captured []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Batch []map[string]interface{} `json:"batch"`
		}
		require.NoError(t, json.DecodeFrom(r.Body, &payload))
		captured = append(captured, payload.Batch...)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := analytics.NewService(config.AnalyticsConfig{
		Enabled:       true,
		APIKey:        "phc_test",
		Host:          server.URL,
		BatchSize:     10,
		FlushInterval: time.Hour,
		QueueSize:     10,
	}, testutil.TestHTTPClient(t))
	events := analytics.NewBusinessEventTracker(analytics.NewContextualService(service))

	f := &fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	st := newFakeStore(f, events)

	params := validParams()
	headers := analytics.RequestHeaders{OrganizationID: params.OrganizationID}
	conn, err := st.Create(context.Background(), headers, params)
	require.NoError(t, err)
	service.Close()

	require.Len(t, captured, 1)
	assert.Equal(t, analytics.EventSourceConnectionCreated, captured[0]["event"])

	properties, ok := captured[0]["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, conn.ID.String(), properties["connection_id"])
	assert.Equal(t, "github", properties["source"])
	assert.Equal(t, "composio", properties["auth_provider"])
	assert.Equal(t, "api_key_"+params.OrganizationID.String(), properties["distinct_id"])
}

func TestGetReturnsConnection(t *testing.T) {
	want := testConnection()
	st := newFakeStore(&fakeDB{row: fakeRow{conn: want}}, nil)

	got, err := st.Get(context.Background(), want.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetMapsNoRowsToNotFound(t *testing.T) {
	st := newFakeStore(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, nil)

	_, err := st.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeNotFound))
}

func TestGetWrapsScanFailure(t *testing.T) {
	st := newFakeStore(&fakeDB{row: fakeRow{err: assert.AnError}}, nil)

	_, err := st.Get(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConnection))
}

func TestListScansAllRows(t *testing.T) {
	first, second := testConnection(), testConnection()
	st := newFakeStore(&fakeDB{rows: &fakeRows{conns: []*SourceConnection{first, second}}}, nil)

	conns, err := st.List(context.Background(), first.OrganizationID)
	require.NoError(t, err)
	require.Len(t, conns, 2)
	assert.Equal(t, first, conns[0])
	assert.Equal(t, second, conns[1])
}

func TestListQueryFailure(t *testing.T) {
	st := newFakeStore(&fakeDB{queryErr: assert.AnError}, nil)

	_, err := st.List(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeConnection))
}

func TestUpdateStatus(t *testing.T) {
	f := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	st := newFakeStore(f, nil)

	require.NoError(t, st.UpdateStatus(context.Background(), uuid.New(), StatusActive))
	require.Len(t, f.execSQL, 1)
	assert.Contains(t, f.execSQL[0], "UPDATE source_connections")
}

func TestUpdateStatusRejectsInvalidState(t *testing.T) {
	f := &fakeDB{}
	st := newFakeStore(f, nil)

	err := st.UpdateStatus(context.Background(), uuid.New(), Status("archived"))
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeValidation))
	assert.Empty(t, f.execSQL)
}

func TestUpdateStatusNotFound(t *testing.T) {
	st := newFakeStore(&fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}, nil)

	err := st.UpdateStatus(context.Background(), uuid.New(), StatusError)
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeNotFound))
}

func TestDeleteNotFound(t *testing.T) {
	st := newFakeStore(&fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}, nil)

	err := st.Delete(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, wefterrors.IsType(err, wefterrors.ErrorTypeNotFound))
}

func TestDelete(t *testing.T) {
	st := newFakeStore(&fakeDB{execTag: pgconn.NewCommandTag("DELETE 1")}, nil)

	require.NoError(t, st.Delete(context.Background(), uuid.New()))
}

func TestMigrateCreatesSchema(t *testing.T) {
	f := &fakeDB{execTag: pgconn.NewCommandTag("CREATE TABLE")}
	st := newFakeStore(f, nil)

	require.NoError(t, st.Migrate(context.Background()))
	require.Len(t, f.execSQL, 1)
	assert.True(t, strings.Contains(f.execSQL[0], "CREATE TABLE IF NOT EXISTS source_connections"))
}
