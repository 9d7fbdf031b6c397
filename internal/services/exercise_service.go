// Package services: ExerciseService.
//
// This file implements the mindfulness exercise lifecycle: LLM-backed
// generation with strict schema validation and a deterministic plain-text
// fallback, per-step timing derivation, idempotent completion, and the
// history row logged when an exercise is first completed.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindwell/go-mindwell-backend/internal/domain"
	"github.com/mindwell/go-mindwell-backend/internal/llm"
	"github.com/mindwell/go-mindwell-backend/internal/repo"
	"github.com/mindwell/go-mindwell-backend/internal/search"
)

const (
	defaultCategory   = "meditation"
	defaultDifficulty = "beginner"
	maxDurationMin    = 60
)

// categoryStepWeights holds per-category timing shares in twentieths,
// applied when the generated step count matches the template length.
// Everything else falls back to an even split. Integer shares keep the
// derivation exact: template timings always sum to the full duration.
var categoryStepWeights = map[string][]int{
	"breathing":     {3, 5, 7, 5},
	"meditation":    {2, 6, 8, 4},
	"body-scan":     {2, 4, 5, 5, 4},
	"visualization": {3, 7, 7, 3},
}

// weightDenom is the share denominator for categoryStepWeights.
const weightDenom = 20

// ExerciseService provides exercise generation, listing, and completion.
type ExerciseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// LLM produces exercise content. May be nil in tests that never generate.
	LLM Completer
	// Model overrides the client's default model when non-empty.
	Model string
}

// NewExerciseService constructs an ExerciseService.
func NewExerciseService(db *gorm.DB, completer Completer) *ExerciseService {
	return &ExerciseService{DB: db, LLM: completer}
}

// GenerateInput describes the exercise the user asked for.
type GenerateInput struct {
	Category    string
	DurationMin int
	Difficulty  string
	Focus       string
}

// generatedPayload is the strict schema the LLM must produce.
type generatedPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	Benefits    []string `json:"benefits"`
	Tips        []string `json:"tips"`
}

// Generate asks the LLM for an exercise, validates the response, derives
// per-step timings, and persists the result. The upstream is called once;
// malformed output falls back to a deterministic plain-text parse rather
// than a retry.
func (s *ExerciseService) Generate(ctx context.Context, userID string, in GenerateInput) (*domain.Exercise, error) {
	tr := otel.Tracer("services/ExerciseService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("exercise.category", in.Category),
			attribute.Int("exercise.duration_min", in.DurationMin),
		),
	)
	defer span.End()

	if in.DurationMin < 1 || in.DurationMin > maxDurationMin {
		return nil, ErrInvalidDuration
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = defaultCategory
	}
	difficulty := strings.ToLower(strings.TrimSpace(in.Difficulty))
	if difficulty == "" {
		difficulty = defaultDifficulty
	}

	content, err := s.complete(ctx, category, difficulty, in)
	if err != nil {
		return nil, err
	}

	payload := parseGenerated(content)
	steps := buildSteps(category, payload.Steps, in.DurationMin)

	ex := &domain.Exercise{
		UserID:      userID,
		Title:       payload.Title,
		Description: payload.Description,
		DurationMin: in.DurationMin,
		Category:    category,
		Difficulty:  difficulty,
		Steps:       steps,
		Benefits:    payload.Benefits,
		Tips:        payload.Tips,
	}
	return repo.CreateExercise(ctx, s.DB, ex)
}

func (s *ExerciseService) complete(ctx context.Context, category, difficulty string, in GenerateInput) (string, error) {
	prompt := fmt.Sprintf(
		"Create a %d-minute %s mindfulness exercise for a %s practitioner.",
		in.DurationMin, category, difficulty,
	)
	if focus := strings.TrimSpace(in.Focus); focus != "" {
		prompt += " Focus on: " + focus + "."
	}

	messages := []llm.Message{
		{Role: "system", Content: exerciseSystemPrompt},
		{Role: "user", Content: prompt},
	}
	completion, err := s.LLM.ChatCompletion(ctx, messages, s.Model)
	if err != nil {
		return "", err
	}
	return completion.FirstContent(), nil
}

// exerciseSystemPrompt pins the output contract for generation.
const exerciseSystemPrompt = `You are a mindfulness coach. Respond with a single JSON object and nothing else, using exactly these fields: "title" (string), "description" (string), "steps" (array of short instruction strings), "benefits" (array of strings), "tips" (array of strings).`

// parseGenerated validates the LLM output against the strict schema. When
// the output is not valid JSON or is missing required fields, it degrades to
// a plain-text parse: first line becomes the title, second the description,
// remaining lines the steps.
func parseGenerated(content string) generatedPayload {
	raw := stripCodeFence(content)

	var p generatedPayload
	if err := json.Unmarshal([]byte(raw), &p); err == nil &&
		strings.TrimSpace(p.Title) != "" && len(p.Steps) > 0 {
		p.Title = strings.TrimSpace(p.Title)
		p.Description = strings.TrimSpace(p.Description)
		return p
	}
	return fallbackFromText(content)
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the fence line including any language tag
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// fallbackFromText builds a usable exercise from unstructured output.
func fallbackFromText(content string) generatedPayload {
	var lines []string
	for _, ln := range strings.Split(content, "\n") {
		if t := strings.TrimSpace(ln); t != "" {
			lines = append(lines, t)
		}
	}

	p := generatedPayload{
		Title:       "Mindfulness Exercise",
		Description: "A guided mindfulness practice.",
	}
	if len(lines) > 0 {
		p.Title = lines[0]
	}
	if len(lines) > 1 {
		p.Description = lines[1]
	}
	if len(lines) > 2 {
		p.Steps = lines[2:]
	}
	if len(p.Steps) == 0 {
		p.Steps = []string{
			"Settle into a comfortable position and close your eyes.",
			"Bring your attention to your breath.",
			"Slowly return your awareness to the room.",
		}
	}
	return p
}

// buildSteps attaches per-step timings to step texts. Timings come from the
// category weight template when the step count matches it, summing exactly
// to duration*60; otherwise each step gets an even share rounded down, with
// the remainder dropped so the sum trails the total by less than len(steps)
// seconds.
func buildSteps(category string, texts []string, durationMin int) domain.StepList {
	total := durationMin * 60
	seconds := deriveStepSeconds(category, len(texts), total)

	steps := make(domain.StepList, len(texts))
	for i, t := range texts {
		steps[i] = domain.ExerciseStep{Text: t, Seconds: seconds[i]}
	}
	return steps
}

func deriveStepSeconds(category string, n, totalSeconds int) []int {
	out := make([]int, n)
	if n == 0 {
		return out
	}
	if w, ok := categoryStepWeights[category]; ok && len(w) == n {
		assigned := 0
		for i := range out {
			out[i] = totalSeconds * w[i] / weightDenom
			assigned += out[i]
		}
		// Largest-remainder distribution of the leftover seconds keeps the
		// sum exactly at totalSeconds; ties go to the earlier step.
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return totalSeconds*w[order[a]]%weightDenom > totalSeconds*w[order[b]]%weightDenom
		})
		for i := 0; i < totalSeconds-assigned; i++ {
			out[order[i%n]]++
		}
		return out
	}
	each := totalSeconds / n
	for i := range out {
		out[i] = each
	}
	return out
}

// Get fetches an exercise owned by userID.
func (s *ExerciseService) Get(ctx context.Context, userID, id string) (*domain.Exercise, error) {
	ex, err := repo.GetExercise(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrExerciseNotFound
	}
	return ex, err
}

// List returns all exercises for userID ordered by title.
func (s *ExerciseService) List(ctx context.Context, userID string) ([]domain.Exercise, error) {
	return repo.ListExercises(ctx, s.DB, userID)
}

// ListPage returns a page of exercises with the total count.
func (s *ExerciseService) ListPage(ctx context.Context, userID string, page, pageSize int) ([]domain.Exercise, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountExercises(ctx, s.DB, userID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Exercise{}, 0, nil
	}
	items, err := repo.ListExercisesPage(ctx, s.DB, userID, offset, pageSize)
	return items, total, err
}

// Delete removes an exercise owned by userID.
func (s *ExerciseService) Delete(ctx context.Context, userID, id string) error {
	err := repo.DeleteExercise(ctx, s.DB, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrExerciseNotFound
	}
	return err
}

// CompletedIDs returns the set of exercise IDs userID has completed.
func (s *ExerciseService) CompletedIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := repo.ListCompletedIDs(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Search ranks the user's exercises against a keyword query. The index is
// rebuilt per call; libraries are small (one user's exercises) so this stays
// well under a millisecond.
func (s *ExerciseService) Search(ctx context.Context, userID, query string, k int) ([]domain.Exercise, error) {
	all, err := repo.ListExercises(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return []domain.Exercise{}, nil
	}

	byID := make(map[string]domain.Exercise, len(all))
	docs := make([]search.Doc, 0, len(all))
	for _, ex := range all {
		byID[ex.ID] = ex
		var stepTexts []string
		for _, st := range ex.Steps {
			stepTexts = append(stepTexts, st.Text)
		}
		docs = append(docs, search.Doc{
			ID:    ex.ID,
			Title: ex.Title,
			Text:  ex.Description + " " + ex.Category + " " + strings.Join(stepTexts, " "),
		})
	}

	results := search.NewIndex(docs).TopK(query, k)
	out := make([]domain.Exercise, 0, len(results))
	for _, r := range results {
		if ex, ok := byID[r.ID]; ok {
			out = append(out, ex)
		}
	}
	return out, nil
}

// Complete marks an exercise complete. The first completion also logs a
// history row crediting the exercise duration; repeat calls are no-ops and
// report already=true without touching history.
func (s *ExerciseService) Complete(ctx context.Context, userID, exerciseID string) (already bool, err error) {
	ex, err := repo.GetExercise(ctx, s.DB, exerciseID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return false, ErrExerciseNotFound
		}
		return false, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, cerr := repo.CreateCompletion(ctx, tx, userID, exerciseID); cerr != nil {
			return cerr
		}
		_, herr := repo.CreateMindfulnessSession(ctx, tx, userID, "exercise", ex.DurationMin, "Completed: "+ex.Title)
		return herr
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return true, nil
	}
	return false, err
}
