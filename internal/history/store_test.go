package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"call-sentiment-go/internal/types"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

type mockRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *mockRows) Close()                                       {}
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *int64:
			*d = v.(int64)
		case *string:
			*d = v.(string)
		case *[]byte:
			*d = v.([]byte)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// CreateUser
// ---------------------------------------------------------------------------

func TestCreateUser_HashesPassword(t *testing.T) {
	t.Parallel()

	var gotHash string
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			gotHash = args[2].(string)
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*int64) = 7
				return nil
			}}
		},
	}

	id, err := New(db).CreateUser(context.Background(), "ada", "ada@example.com", "hunter2")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if id != 7 {
		t.Errorf("CreateUser: id=%d, want 7", id)
	}
	if gotHash == "hunter2" || gotHash == "" {
		t.Fatal("CreateUser stored the password unhashed")
	}
	if bcrypt.CompareHashAndPassword([]byte(gotHash), []byte("hunter2")) != nil {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
			}}
		},
	}

	_, err := New(db).CreateUser(context.Background(), "ada", "ada@example.com", "x")
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("CreateUser: err=%v, want ErrUserExists", err)
	}
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	touchedLastLogin := false
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*int64) = 42
				*dest[1].(*string) = string(hash)
				return nil
			}}
		},
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "last_login") {
				touchedLastLogin = true
			}
			return pgconn.CommandTag{}, nil
		},
	}

	id, err := New(db).Authenticate(context.Background(), "ada", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id != 42 {
		t.Errorf("Authenticate: id=%d, want 42", id)
	}
	if !touchedLastLogin {
		t.Error("Authenticate did not update last_login")
	}
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	t.Parallel()

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*int64) = 42
				*dest[1].(*string) = string(hash)
				return nil
			}}
		},
	}

	_, err := New(db).Authenticate(context.Background(), "ada", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate: err=%v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	t.Parallel()

	_, err := New(&mockDB{}).Authenticate(context.Background(), "nobody", "x")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate: err=%v, want ErrInvalidCredentials", err)
	}
}

// ---------------------------------------------------------------------------
// SaveAnalysis / ListAnalyses
// ---------------------------------------------------------------------------

func TestSaveAnalysis_StoresResultJSON(t *testing.T) {
	t.Parallel()

	var gotArgs []any
	db := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			if strings.Contains(sql, "INSERT INTO analyses") {
				gotArgs = args
			}
			return pgconn.CommandTag{}, nil
		},
	}

	result := types.ConversationResult{
		OverallMood: types.OverallMood{Score: 0.5, Confidence: 0.9},
		Meta:        types.Meta{UtteranceCount: 2},
	}
	if err := New(db).SaveAnalysis(context.Background(), 42, "call.json", result); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if len(gotArgs) != 3 {
		t.Fatalf("SaveAnalysis passed %d args, want 3", len(gotArgs))
	}
	if gotArgs[0].(int64) != 42 || gotArgs[1].(string) != "call.json" {
		t.Errorf("SaveAnalysis args=%v", gotArgs[:2])
	}

	var stored types.ConversationResult
	if err := json.Unmarshal(gotArgs[2].([]byte), &stored); err != nil {
		t.Fatalf("stored result is not valid JSON: %v", err)
	}
	if stored.OverallMood.Score != 0.5 {
		t.Errorf("stored score=%v, want 0.5", stored.OverallMood.Score)
	}
}

func TestListAnalyses_DecodesRows(t *testing.T) {
	t.Parallel()

	blob, err := json.Marshal(types.ConversationResult{Meta: types.Meta{UtteranceCount: 3}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	now := time.Now().UTC()
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockRows{data: [][]any{
				{int64(1), "first.json", blob, now},
				{int64(2), "second.json", blob, now},
			}}, nil
		},
	}

	records, err := New(db).ListAnalyses(context.Background(), 42, 0)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Filename != "first.json" || records[0].Result.Meta.UtteranceCount != 3 {
		t.Errorf("records[0]=%+v", records[0])
	}
}

func TestListAnalyses_EmptyIsNotNil(t *testing.T) {
	t.Parallel()

	records, err := New(&mockDB{}).ListAnalyses(context.Background(), 42, 10)
	if err != nil {
		t.Fatalf("ListAnalyses: %v", err)
	}
	if records == nil {
		t.Error("ListAnalyses returned nil, want empty slice so it serializes as []")
	}
}
