package classifier

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aigoflow/news-classifier/internal/models"
)

const fixturePath = "testdata/news_classifier.json"

func loadFixture(t *testing.T) *NewsCategoryClassifier {
	t.Helper()
	c := NewNewsCategoryClassifier()
	require.NoError(t, c.Load(fixturePath))
	return c
}

func article(title, description string) map[string]string {
	return models.PredictRequest{
		Source:      "Yahoo Entertainment",
		URL:         "http://example.com",
		Title:       title,
		Description: description,
	}.Fields()
}

func TestPredictEnglishEntertainment(t *testing.T) {
	req := require.New(t)
	c := loadFixture(t)
	in := article("Music Patriarch Marsalis Sr. Dies (AP)",
		"AP - Ellis L. Marsalis Sr., the patriarch of a family of world famous jazz musicians, including grandson Wynton Marsalis, has died. He was 96.")

	label, err := c.PredictLabel(in)
	req.NoError(err)
	req.Equal("Entertainment", label)

	scores, err := c.PredictProba(in)
	req.NoError(err)
	req.Contains(scores, label)
	for l, p := range scores {
		req.GreaterOrEqual(p, 0.0, l)
		req.LessOrEqual(p, 1.0, l)
		req.Greater(scores[label]+1e-12, p)
	}
}

func TestPredictSpanishSports(t *testing.T) {
	c := loadFixture(t)
	label, err := c.PredictLabel(article("Ejemplo",
		"Inigualable enmascarado se presentara en la arena coliseo para defender su titulo"))
	require.NoError(t, err)
	require.Equal(t, "Sports", label)
}

func TestPredictEmojiOnlyFallsBackToBias(t *testing.T) {
	req := require.New(t)
	c := loadFixture(t)
	in := article("", "\U0001f600")

	scores, err := c.PredictProba(in)
	req.NoError(err)
	label, err := c.PredictLabel(in)
	req.NoError(err)
	req.Equal("Business", label)
	req.Contains(scores, label)
}

func TestProbabilitiesSumToOne(t *testing.T) {
	c := loadFixture(t)
	scores, err := c.PredictProba(article("Stocks rally", "Software market profit beats expectations"))
	require.NoError(t, err)
	var sum float64
	for _, p := range scores {
		sum += p
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestSourceIgnoredByDefault(t *testing.T) {
	c := loadFixture(t)
	a, err := c.PredictProba(map[string]string{"source": "jazz jazz jazz", "title": "coach", "description": ""})
	require.NoError(t, err)
	b, err := c.PredictProba(map[string]string{"title": "coach"})
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestTiesGoToEarlierLabel(t *testing.T) {
	c := NewNewsCategoryClassifier()
	require.NoError(t, c.setArtifact(artifact{Labels: []string{"A", "B"}}))
	label, err := c.PredictLabel(nil)
	require.NoError(t, err)
	require.Equal(t, "A", label)
}

func TestUnloadedModel(t *testing.T) {
	c := NewNewsCategoryClassifier()
	_, err := c.PredictLabel(article("t", "d"))
	require.ErrorIs(t, err, models.ErrModelNotLoaded)
	_, err = c.PredictProba(article("t", "d"))
	require.ErrorIs(t, err, models.ErrModelNotLoaded)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "absent.json")},
		{"corrupt json", write("corrupt.json", "{not json")},
		{"no labels", write("empty.json", `{"labels":[]}`)},
		{"duplicate labels", write("dup.json", `{"labels":["A","A"]}`)},
		{"unknown bias label", write("bias.json", `{"labels":["A"],"bias":{"B":1}}`)},
		{"unknown weight label", write("weights.json", `{"labels":["A"],"weights":{"x":{"B":1}}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewNewsCategoryClassifier().Load(tt.path)
			var loadErr *models.LoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
			require.Equal(t, tt.path, loadErr.Path)
		})
	}
}

func TestConcurrentPredictions(t *testing.T) {
	c := loadFixture(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			label, err := c.PredictLabel(article("", "jazz album"))
			if err != nil || label != "Entertainment" {
				t.Errorf("label=%q err=%v", label, err)
			}
		}()
	}
	wg.Wait()
}

func TestSoftmaxStable(t *testing.T) {
	out := softmax([]float64{1000, 1000})
	require.False(t, math.IsNaN(out[0]))
	require.InDelta(t, 0.5, out[0], 1e-12)
}
