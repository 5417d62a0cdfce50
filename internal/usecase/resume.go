package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interview-coach/internal/observability"
	"github.com/fairyhunter13/ai-interview-coach/pkg/textx"
)

// Accepted résumé MIME types by extension.
var resumeMIME = map[string]string{
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ResumeService ingests résumés and runs analysis and optimization on them.
type ResumeService struct {
	Repo      domain.ResumeRepository
	Extractor domain.TextExtractor
	AI        Assistant
	Now       func() time.Time
}

// NewResumeService constructs a ResumeService.
func NewResumeService(r domain.ResumeRepository, x domain.TextExtractor, a Assistant) ResumeService {
	return ResumeService{Repo: r, Extractor: x, AI: a, Now: time.Now}
}

// UploadResult is a stored résumé plus the reason analysis did not run,
// if it did not.
type UploadResult struct {
	Resume        domain.Resume `json:"resume"`
	AnalysisError string        `json:"analysis_error,omitempty"`
}

// Upload extracts text from a .txt, .pdf or .docx file, stores the résumé
// and analyzes it. The résumé is kept even when analysis cannot run.
func (s ResumeService) Upload(ctx context.Context, filename string, data []byte) (UploadResult, error) {
	text, err := s.extract(ctx, filename, data)
	if err != nil {
		return UploadResult{}, err
	}
	r, err := s.Repo.Create(ctx, domain.Resume{Filename: filepath.Base(filename), Content: text, Size: int64(len(data))})
	if err != nil {
		return UploadResult{}, fmt.Errorf("op=resume.Upload: %w", err)
	}
	ctx = obsctx.With(ctx, slog.String("resume_id", r.ID))
	analyzed, err := s.analyze(ctx, r)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("résumé stored without analysis", slog.Any("error", err))
		return UploadResult{Resume: r, AnalysisError: err.Error()}, nil
	}
	return UploadResult{Resume: analyzed}, nil
}

func (s ResumeService) extract(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	want, ok := resumeMIME[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type %q", domain.ErrInvalidArgument, ext)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrInvalidArgument)
	}
	if !detectedAs(data, want) {
		return "", fmt.Errorf("%w: content does not match %s", domain.ErrInvalidArgument, ext)
	}
	var text string
	if ext == ".txt" {
		text = string(data)
	} else {
		if s.Extractor == nil {
			return "", fmt.Errorf("%w: document extraction unavailable", domain.ErrInvalidArgument)
		}
		out, err := s.Extractor.Extract(ctx, filename, data)
		if err != nil {
			return "", fmt.Errorf("op=resume.extract: %w", err)
		}
		text = out
	}
	text = textx.SanitizeText(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text found in %s", domain.ErrInvalidArgument, filename)
	}
	return text, nil
}

// detectedAs reports whether the sniffed type of data, or one of its
// parents (JSON is a kind of text/plain), is want.
func detectedAs(data []byte, want string) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func (s ResumeService) analyze(ctx context.Context, r domain.Resume) (domain.Resume, error) {
	an, err := s.AI.AnalyzeResume(ctx, r.Content)
	if err != nil {
		return domain.Resume{}, err
	}
	return s.Repo.Update(ctx, r.ID, domain.ResumePatch{Analysis: &an})
}

// Analyze (re)runs analysis on a stored résumé.
func (s ResumeService) Analyze(ctx context.Context, id string) (domain.Resume, error) {
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Resume{}, err
	}
	out, err := s.analyze(obsctx.With(ctx, slog.String("resume_id", id)), r)
	if err != nil {
		return domain.Resume{}, fmt.Errorf("op=resume.Analyze: %w", err)
	}
	return out, nil
}

// Optimize produces tailoring advice for position (and company, if given)
// and appends it to the résumé's optimization history.
func (s ResumeService) Optimize(ctx context.Context, id, position, company string) (domain.Optimization, error) {
	position, company = strings.TrimSpace(position), strings.TrimSpace(company)
	if position == "" {
		return domain.Optimization{}, fmt.Errorf("%w: target position required", domain.ErrInvalidArgument)
	}
	r, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Optimization{}, err
	}
	if r.Analysis == nil {
		return domain.Optimization{}, fmt.Errorf("%w: résumé has not been analyzed", domain.ErrInvalidState)
	}
	adv, err := s.AI.OptimizeResume(obsctx.With(ctx, slog.String("resume_id", id)), *r.Analysis, position, company)
	if err != nil {
		return domain.Optimization{}, err
	}
	opt := domain.Optimization{TargetPosition: position, TargetCompany: company, Suggestions: adv, CreatedAt: s.Now().UTC()}
	history := append(append([]domain.Optimization{}, r.Optimizations...), opt)
	if _, err := s.Repo.Update(ctx, id, domain.ResumePatch{Optimizations: history}); err != nil {
		return domain.Optimization{}, fmt.Errorf("op=resume.Optimize: %w", err)
	}
	return opt, nil
}

// List returns all résumés.
func (s ResumeService) List(ctx context.Context) ([]domain.Resume, error) { return s.Repo.List(ctx) }

// Get returns one résumé.
func (s ResumeService) Get(ctx context.Context, id string) (domain.Resume, error) {
	return s.Repo.Get(ctx, id)
}

// Delete removes a résumé. Interviews referencing it are left alone.
func (s ResumeService) Delete(ctx context.Context, id string) error { return s.Repo.Delete(ctx, id) }
