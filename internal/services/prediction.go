package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"

	"github.com/aigoflow/news-classifier/internal/classifier"
	"github.com/aigoflow/news-classifier/internal/models"
)

type PredictionService struct {
	model classifier.Model
}

func NewPredictionService(model classifier.Model) *PredictionService {
	return &PredictionService{model: model}
}

// Predict runs the model on req. Every failure, including a panic inside the
// model, is returned as *models.InferenceError.
func (s *PredictionService) Predict(ctx context.Context, req models.PredictRequest) (response *models.PredictResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			response = nil
			err = &models.InferenceError{Err: fmt.Errorf("model panic: %v", r)}
		}
	}()

	if s.model == nil {
		return nil, &models.InferenceError{Err: models.ErrModelNotLoaded}
	}

	input := req.Fields()
	scores, err := s.model.PredictProba(input)
	if err != nil {
		return nil, &models.InferenceError{Err: err}
	}
	label, err := s.model.PredictLabel(input)
	if err != nil {
		return nil, &models.InferenceError{Err: err}
	}
	if !lo.HasKey(scores, label) {
		return nil, &models.InferenceError{Err: fmt.Errorf("label %q missing from scores", label)}
	}

	return &models.PredictResponse{Scores: scores, Label: label}, nil
}

// Labels lists the classes the loaded model can return.
func (s *PredictionService) Labels() []string {
	if s.model == nil {
		return nil
	}
	return s.model.Labels()
}

// DetectLanguage returns the ISO 639-1 code of the article text, or "" when unknown.
func DetectLanguage(req models.PredictRequest) string {
	text := strings.TrimSpace(req.Title + " " + req.Description)
	if text == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
