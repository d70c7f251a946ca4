package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/SAP-F-2025/qpaper-service/internal/ai"
	"github.com/SAP-F-2025/qpaper-service/internal/auth"
	"github.com/SAP-F-2025/qpaper-service/internal/cache"
	apperrors "github.com/SAP-F-2025/qpaper-service/internal/errors"
	"github.com/SAP-F-2025/qpaper-service/internal/models"
	"github.com/SAP-F-2025/qpaper-service/internal/repositories"
	"github.com/SAP-F-2025/qpaper-service/internal/validator"
)

const (
	DuplicateThreshold  = 0.80
	duplicateWindow     = 20
	embeddingCacheTTL   = 7 * 24 * time.Hour
	embeddingKeyPrefix  = "ai:embedding:"
	similarPreviewChars = 50

	generateMaxTokens    = 1500
	generateTemperature  = 0.7
	generateSystemPrompt = "You are an exam paper setter. Return strictly VALID JSON only. No markdown formatting, no explanations."
)

type MarksDistribution struct {
	Short int `json:"short" validate:"min=0,max=50"`
	Long  int `json:"long" validate:"min=0,max=50"`
}

type GeneratePaperRequest struct {
	SubjectID         string             `json:"subjectId"`
	CourseOutcomeIDs  []string           `json:"courseOutcomeIds"`
	Difficulty        string             `json:"difficulty" validate:"omitempty,oneof=easy medium hard Easy Medium Hard"`
	MarksDistribution *MarksDistribution `json:"marksDistribution"`
}

// GeneratedPaper is the draft shape the model is asked to return.
type GeneratedPaper struct {
	SectionA       []string `json:"sectionA"`
	SectionB       []string `json:"sectionB"`
	TotalQuestions int      `json:"totalQuestions"`
}

type DuplicateCheckRequest struct {
	SubjectID    string `json:"subjectId"`
	QuestionText string `json:"questionText"`
}

type DuplicateCheckResult struct {
	IsDuplicate      bool     `json:"isDuplicate"`
	SimilarQuestions []string `json:"similarQuestions"`
	SimilarityScore  float64  `json:"similarityScore"`
}

type AIService interface {
	GeneratePaper(ctx context.Context, p *auth.Principal, req *GeneratePaperRequest) (*GeneratedPaper, error)
	// CheckDuplicate compares the text with the subject's latest questions
	// by embedding similarity.
	CheckDuplicate(ctx context.Context, p *auth.Principal, req *DuplicateCheckRequest) (*DuplicateCheckResult, error)
}

type aiService struct {
	repo      repositories.Repository
	generator ai.Generator
	cache     cache.CacheService
	logger    *ServiceLogger
	validator *validator.Validator
}

func NewAIService(repo repositories.Repository, generator ai.Generator, cache cache.CacheService, logger *slog.Logger, validator *validator.Validator) AIService {
	return &aiService{
		repo:      repo,
		generator: generator,
		cache:     cache,
		logger:    NewServiceLogger(logger, LogConfig{Service: "ai", Component: "service"}),
		validator: validator,
	}
}

func (s *aiService) GeneratePaper(ctx context.Context, p *auth.Principal, req *GeneratePaperRequest) (_ *GeneratedPaper, err error) {
	op := s.logger.WithOperation(ctx, "generate_paper", principalID(p))
	defer func() { op.LogResult(req.SubjectID, "subject", err) }()

	if p == nil {
		return nil, ErrUnauthorized
	}
	if strings.TrimSpace(req.SubjectID) == "" {
		return nil, fmt.Errorf("%w: choose a subject first", apperrors.ErrNotReady)
	}
	if err = s.validator.Validate(req); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: AI collaborator is not configured", apperrors.ErrNotReady)
	}

	subject, err := loadSubject(ctx, s.repo, req.SubjectID)
	if err != nil {
		return nil, err
	}
	var outcomes []*models.CourseOutcome
	if len(req.CourseOutcomeIDs) > 0 {
		if outcomes, err = s.repo.CourseOutcome().GetByIDs(ctx, req.CourseOutcomeIDs); err != nil {
			return nil, fmt.Errorf("failed to load course outcomes: %w", err)
		}
		for _, co := range outcomes {
			if co.SubjectID != subject.ID {
				return nil, fmt.Errorf("%w: %s", ErrCourseOutcomeMismatch, co.Code)
			}
		}
	}

	dist := MarksDistribution{Short: 5, Long: 3}
	if req.MarksDistribution != nil {
		dist = *req.MarksDistribution
	}
	difficulty := strings.ToLower(req.Difficulty)
	if difficulty == "" {
		difficulty = "medium"
	}

	reply, err := s.generator.Complete(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: "system", Content: generateSystemPrompt},
			{Role: "user", Content: generatePrompt(subject, outcomes, difficulty, dist)},
		},
		MaxTokens:   generateMaxTokens,
		Temperature: generateTemperature,
	})
	if err != nil {
		return nil, err
	}

	var paper GeneratedPaper
	if err = json.Unmarshal([]byte(ai.StripCodeFence(reply)), &paper); err != nil {
		return nil, fmt.Errorf("%w: model returned malformed JSON: %v", apperrors.ErrNetworkFailed, err)
	}
	if paper.SectionA == nil {
		paper.SectionA = []string{}
	}
	if paper.SectionB == nil {
		paper.SectionB = []string{}
	}
	if paper.TotalQuestions == 0 {
		paper.TotalQuestions = len(paper.SectionA) + len(paper.SectionB)
	}
	return &paper, nil
}

func generatePrompt(subject *models.Subject, outcomes []*models.CourseOutcome, difficulty string, dist MarksDistribution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate an exam paper for the subject %q.\n", subject.Name)
	if len(outcomes) > 0 {
		b.WriteString("Cover these course outcomes:\n")
		for _, co := range outcomes {
			fmt.Fprintf(&b, "%s: %s\n", co.Code, co.Description)
		}
	}
	fmt.Fprintf(&b, "Difficulty: %s.\n", difficulty)
	fmt.Fprintf(&b, "Exactly %d Short Questions and %d Long Questions.\n", dist.Short, dist.Long)
	b.WriteString(`Return JSON with this structure: {"sectionA": ["short question", ...], "sectionB": ["long question", ...], "totalQuestions": <number>}`)
	return b.String()
}

func (s *aiService) CheckDuplicate(ctx context.Context, p *auth.Principal, req *DuplicateCheckRequest) (_ *DuplicateCheckResult, err error) {
	op := s.logger.WithOperation(ctx, "check_duplicate", principalID(p))
	defer func() { op.LogResult(req.SubjectID, "subject", err) }()

	if p == nil {
		return nil, ErrUnauthorized
	}
	var verrs ValidationErrors
	if strings.TrimSpace(req.SubjectID) == "" {
		verrs = append(verrs, ValidationError{Field: "subjectId", Message: "is required", Rule: "required"})
	}
	if strings.TrimSpace(req.QuestionText) == "" {
		verrs = append(verrs, ValidationError{Field: "questionText", Message: "is required", Rule: "required"})
	}
	if len(verrs) > 0 {
		return nil, verrs
	}
	if s.generator == nil {
		return nil, fmt.Errorf("%w: AI collaborator is not configured", apperrors.ErrNotReady)
	}
	if _, err = loadSubject(ctx, s.repo, req.SubjectID); err != nil {
		return nil, err
	}

	latest, err := s.repo.Question().GetLatestBySubject(ctx, req.SubjectID, duplicateWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	type candidate struct {
		id   string
		text string
	}
	var candidates []candidate
	for _, q := range latest {
		doc := q.Document()
		if text := strings.TrimSpace(doc.PlainText()); text != "" {
			candidates = append(candidates, candidate{id: q.ID, text: text})
		}
	}

	result := &DuplicateCheckResult{SimilarQuestions: []string{}}
	if len(candidates) == 0 {
		return result, nil
	}

	target, err := s.embed(ctx, req.QuestionText)
	if err != nil {
		return nil, err
	}

	best := 0.0
	for _, c := range candidates {
		vec, err := s.embed(ctx, c.text)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(target) {
			s.logger.logger.WarnContext(ctx, "Skipping question with mismatched embedding size",
				"question_id", c.id, "got", len(vec), "want", len(target))
			continue
		}
		score := ai.CosineSimilarity(target, vec)
		if score > DuplicateThreshold {
			result.SimilarQuestions = append(result.SimilarQuestions,
				fmt.Sprintf("QID: %s (%d%%) - %s...", c.id, int(math.Round(score*100)), preview(c.text, similarPreviewChars)))
		}
		if score > best {
			best = score
		}
	}

	result.IsDuplicate = best > DuplicateThreshold
	result.SimilarityScore = math.Round(best*100) / 100
	return result, nil
}

// embed looks the text up in the cache before asking the model. Cache
// failures only cost a model call.
func (s *aiService) embed(ctx context.Context, text string) ([]float64, error) {
	sum := sha256.Sum256([]byte(text))
	key := embeddingKeyPrefix + hex.EncodeToString(sum[:])

	var vec []float64
	if s.cache != nil {
		err := s.cache.Get(ctx, key, &vec)
		if err == nil && len(vec) > 0 {
			return vec, nil
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.logger.WarnContext(ctx, "Embedding cache read failed", "error", err)
		}
	}

	vec, err := s.generator.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, vec, embeddingCacheTTL); err != nil {
			s.logger.logger.WarnContext(ctx, "Embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
