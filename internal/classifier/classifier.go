package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/samber/lo"

	"github.com/aigoflow/news-classifier/internal/models"
)

// Model is the inference contract the service needs from a loaded classifier.
// Implementations must be safe for concurrent use once loaded.
type Model interface {
	PredictLabel(input map[string]string) (string, error)
	PredictProba(input map[string]string) (map[string]float64, error)
	Labels() []string
}

var defaultFields = []string{"title", "description"}

// artifact is the on-disk model format.
type artifact struct {
	Labels  []string                      `json:"labels"`
	Bias    map[string]float64            `json:"bias"`
	Weights map[string]map[string]float64 `json:"weights"`
	Fields  []string                      `json:"fields"`
}

// NewsCategoryClassifier is a linear bag-of-words classifier with softmax output.
type NewsCategoryClassifier struct {
	labels  []string
	index   map[string]int
	bias    []float64
	weights map[string][]float64
	fields  []string
}

func NewNewsCategoryClassifier() *NewsCategoryClassifier {
	return &NewsCategoryClassifier{}
}

// Load reads model parameters from path. Failures are *models.LoadError.
func (c *NewsCategoryClassifier) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &models.LoadError{Path: path, Err: err}
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return &models.LoadError{Path: path, Err: fmt.Errorf("decode artifact: %w", err)}
	}
	if err := c.setArtifact(a); err != nil {
		return &models.LoadError{Path: path, Err: err}
	}
	return nil
}

func (c *NewsCategoryClassifier) setArtifact(a artifact) error {
	if len(a.Labels) == 0 {
		return errors.New("artifact has no labels")
	}
	if dup := lo.FindDuplicates(a.Labels); len(dup) > 0 {
		return fmt.Errorf("duplicate labels: %v", dup)
	}
	index := make(map[string]int, len(a.Labels))
	for i, l := range a.Labels {
		index[l] = i
	}

	bias := make([]float64, len(a.Labels))
	for label, b := range a.Bias {
		i, ok := index[label]
		if !ok {
			return fmt.Errorf("bias for unknown label %q", label)
		}
		bias[i] = b
	}

	weights := make(map[string][]float64, len(a.Weights))
	for token, perLabel := range a.Weights {
		row := make([]float64, len(a.Labels))
		for label, w := range perLabel {
			i, ok := index[label]
			if !ok {
				return fmt.Errorf("weight for token %q has unknown label %q", token, label)
			}
			row[i] = w
		}
		weights[token] = row
	}

	fields := a.Fields
	if len(fields) == 0 {
		fields = defaultFields
	}

	c.labels = slices.Clone(a.Labels)
	c.index = index
	c.bias = bias
	c.weights = weights
	c.fields = slices.Clone(fields)
	return nil
}

// Labels returns the class labels in model order.
func (c *NewsCategoryClassifier) Labels() []string {
	return slices.Clone(c.labels)
}

// PredictProba returns a softmax probability per label.
func (c *NewsCategoryClassifier) PredictProba(input map[string]string) (map[string]float64, error) {
	probs, err := c.probabilities(input)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]float64, len(c.labels))
	for i, l := range c.labels {
		scores[l] = probs[i]
	}
	return scores, nil
}

// PredictLabel returns the most probable label; ties go to the earlier label.
func (c *NewsCategoryClassifier) PredictLabel(input map[string]string) (string, error) {
	probs, err := c.probabilities(input)
	if err != nil {
		return "", err
	}
	best := lo.MaxBy(lo.Range(len(probs)), func(a, b int) bool { return probs[a] > probs[b] })
	return c.labels[best], nil
}

func (c *NewsCategoryClassifier) probabilities(input map[string]string) ([]float64, error) {
	if len(c.labels) == 0 {
		return nil, models.ErrModelNotLoaded
	}
	logits := slices.Clone(c.bias)
	for _, field := range c.fields {
		for _, token := range tokenize(input[field]) {
			row, ok := c.weights[token]
			if !ok {
				continue
			}
			for i, w := range row {
				logits[i] += w
			}
		}
	}
	return softmax(logits), nil
}

func softmax(logits []float64) []float64 {
	maxLogit := slices.Max(logits)
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
