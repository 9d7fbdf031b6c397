package services

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
)

// ---------- shared test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *domain.User {
	t.Helper()
	u, err := repo.UpsertUser(context.Background(), db, "auth0|"+uuid.NewString(), uuid.NewString()+"@example.com", "Test User")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// fakeCompleter scripts upstream chat-completion behavior. Each call consumes
// the next reply (or error); the last entry repeats when the script runs out.
type fakeCompleter struct {
	replies []string
	errs    []error
	calls   int
	// windows captures the message window of every call.
	windows [][]llm.Message
}

func (f *fakeCompleter) ChatCompletion(_ context.Context, messages []llm.Message, _ string) (*llm.Completion, error) {
	idx := f.calls
	f.calls++
	f.windows = append(f.windows, append([]llm.Message(nil), messages...))

	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	reply := "ok"
	if len(f.replies) > 0 {
		if idx < len(f.replies) {
			reply = f.replies[idx]
		} else {
			reply = f.replies[len(f.replies)-1]
		}
	}
	return &llm.Completion{
		Choices: []llm.Choice{{Message: llm.Message{Role: "assistant", Content: reply}}},
	}, nil
}
