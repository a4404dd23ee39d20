package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

type stubResponder struct {
	reply string
	err   error
	calls int
}

func (r *stubResponder) Generate(_ context.Context, _ string) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:chat_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE TABLE IF NOT EXISTS chat_faqs (
  id TEXT PRIMARY KEY, keywords TEXT NOT NULL, question TEXT NOT NULL,
  answer TEXT NOT NULL, created_at DATETIME
);`).Error)
	return db
}

func seedFAQ(t *testing.T, db *gorm.DB, keywords, question, answer string) {
	t.Helper()
	require.NoError(t, db.Create(&models.ChatFAQ{
		ID:       uuid.New(),
		Keywords: keywords,
		Question: question,
		Answer:   answer,
	}).Error)
}

func newChat(t *testing.T, db *gorm.DB, llm Responder) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "chat-test", Output: io.Discard})
	svc, err := NewService(db, llm, logg)
	require.NoError(t, err)
	return svc
}

func TestAskMatchesFAQ(t *testing.T) {
	db := newTestDB(t)
	seedFAQ(t, db, "delivery,shipping,courier", "How long does delivery take?",
		"Orders ship within 2 business days.")
	seedFAQ(t, db, "refund,cancel", "How do refunds work?",
		"Refunds are processed within 7 days of cancellation.")

	llm := &stubResponder{reply: "should not be used"}
	svc := newChat(t, db, llm)

	answer, err := svc.Ask(context.Background(), "When will my delivery arrive?")
	require.NoError(t, err)
	assert.Equal(t, "faq", answer.Source)
	assert.Equal(t, "Orders ship within 2 business days.", answer.Reply)
	assert.Zero(t, llm.calls)
}

func TestAskPrefersStrongerKeywordOverlap(t *testing.T) {
	db := newTestDB(t)
	seedFAQ(t, db, "payment", "q1", "generic payment answer")
	seedFAQ(t, db, "payment,failed,retry", "q2", "failed payment answer")

	svc := newChat(t, db, nil)
	answer, err := svc.Ask(context.Background(), "my payment failed, can I retry?")
	require.NoError(t, err)
	assert.Equal(t, "failed payment answer", answer.Reply)
}

func TestAskMatchesPhraseKeyword(t *testing.T) {
	db := newTestDB(t)
	seedFAQ(t, db, "kisan credit card,kcc", "What is the Kisan Credit Card?",
		"KCC gives farmers short-term credit at subsidised rates.")
	seedFAQ(t, db, "credit", "q", "generic credit answer")

	svc := newChat(t, db, nil)

	answer, err := svc.Ask(context.Background(), "How do I apply for a KCC, the kisan credit card?")
	require.NoError(t, err)
	assert.Equal(t, "faq", answer.Source)
	assert.Equal(t, "KCC gives farmers short-term credit at subsidised rates.", answer.Reply)

	// the phrase must appear whole: scattered words do not match it
	answer, err = svc.Ask(context.Background(), "can a kisan get a normal card?")
	require.NoError(t, err)
	assert.NotEqual(t, "KCC gives farmers short-term credit at subsidised rates.", answer.Reply)
}

func TestAskFallsThroughToLLM(t *testing.T) {
	db := newTestDB(t)
	seedFAQ(t, db, "delivery", "q", "a")

	llm := &stubResponder{reply: "Neem oil spray works against aphids."}
	svc := newChat(t, db, llm)

	answer, err := svc.Ask(context.Background(), "how do I treat aphids on chilli plants?")
	require.NoError(t, err)
	assert.Equal(t, "llm", answer.Source)
	assert.Equal(t, "Neem oil spray works against aphids.", answer.Reply)
	assert.Equal(t, 1, llm.calls)
}

func TestAskDegradesWithoutLLM(t *testing.T) {
	db := newTestDB(t)
	svc := newChat(t, db, nil)

	answer, err := svc.Ask(context.Background(), "anything unusual")
	require.NoError(t, err)
	assert.Equal(t, "fallback", answer.Source)
	assert.NotEmpty(t, answer.Reply)
}

func TestAskDegradesOnLLMFailure(t *testing.T) {
	db := newTestDB(t)
	llm := &stubResponder{err: errors.New("quota exceeded")}
	svc := newChat(t, db, llm)

	answer, err := svc.Ask(context.Background(), "anything unusual")
	require.NoError(t, err)
	assert.Equal(t, "fallback", answer.Source)
}

func TestAskValidatesQuestion(t *testing.T) {
	db := newTestDB(t)
	svc := newChat(t, db, nil)

	_, err := svc.Ask(context.Background(), "   ")
	var domainErr *pkgerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, pkgerrors.CodeValidation, domainErr.Code())
}
