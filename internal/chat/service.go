// Package chat answers farmer questions. Questions are first matched against
// curated FAQ rows by keyword; on a miss the question goes to the LLM with an
// agriculture-scoped system prompt. Without an API key the service degrades
// to a canned reply instead of failing.
package chat

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"github.com/AgriNITMZ/agriapp-backend/pkg/db/models"
	pkgerrors "github.com/AgriNITMZ/agriapp-backend/pkg/errors"
	"github.com/AgriNITMZ/agriapp-backend/pkg/logger"
)

const maxQuestionLength = 2000

const fallbackReply = "I can answer questions about products, orders, payments " +
	"and farming practices. The assistant is offline right now, please try one " +
	"of the FAQ topics or contact support."

// Answer is a chat reply with its provenance.
type Answer struct {
	Reply  string `json:"reply"`
	Source string `json:"source"` // "faq", "llm" or "fallback"
}

// Service defines the chat operation.
type Service interface {
	Ask(ctx context.Context, question string) (*Answer, error)
}

// Responder generates a free-form reply for questions no FAQ covers.
type Responder interface {
	Generate(ctx context.Context, question string) (string, error)
}

type service struct {
	db     *gorm.DB
	llm    Responder
	logger *logger.Logger
}

// NewService builds the chat service. llm may be nil, in which case FAQ
// misses get the canned fallback reply.
func NewService(db *gorm.DB, llm Responder, logg *logger.Logger) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{db: db, llm: llm, logger: logg}, nil
}

func (s *service) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question required")
	}
	if len(question) > maxQuestionLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question too long").
			WithDetails(map[string]any{"max_length": maxQuestionLength})
	}

	if faq, err := s.matchFAQ(ctx, question); err != nil {
		return nil, err
	} else if faq != nil {
		return &Answer{Reply: faq.Answer, Source: "faq"}, nil
	}

	if s.llm == nil {
		return &Answer{Reply: fallbackReply, Source: "fallback"}, nil
	}

	reply, err := s.llm.Generate(ctx, question)
	if err != nil {
		s.logger.Error(ctx, "llm generation failed", err)
		return &Answer{Reply: fallbackReply, Source: "fallback"}, nil
	}
	return &Answer{Reply: strings.TrimSpace(reply), Source: "llm"}, nil
}

// matchFAQ returns the FAQ whose keywords overlap the question the most.
// Keywords on a row are comma-separated; a single-word keyword matches a
// question token, a multi-word keyword matches as a whole phrase.
func (s *service) matchFAQ(ctx context.Context, question string) (*models.ChatFAQ, error) {
	var faqs []models.ChatFAQ
	if err := s.db.WithContext(ctx).Find(&faqs).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load faqs")
	}

	tokens := tokenize(question)
	normalized := normalize(question)
	var best *models.ChatFAQ
	bestScore := 0
	for i := range faqs {
		score := 0
		for _, keyword := range strings.Split(faqs[i].Keywords, ",") {
			keyword = normalize(keyword)
			if keyword == "" {
				continue
			}
			if strings.Contains(keyword, " ") {
				if strings.Contains(" "+normalized+" ", " "+keyword+" ") {
					score++
				}
				continue
			}
			if tokens[keyword] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &faqs[i]
		}
	}
	return best, nil
}

func tokenize(text string) map[string]bool {
	tokens := map[string]bool{}
	for _, field := range strings.FieldsFunc(strings.ToLower(text), isWordSeparator) {
		tokens[field] = true
	}
	return tokens
}

// normalize lowercases and collapses punctuation runs to single spaces so
// phrase keywords can match on word boundaries.
func normalize(text string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(text), isWordSeparator), " ")
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
