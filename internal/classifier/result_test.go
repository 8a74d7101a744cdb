package classifier_test

import (
	"sync"
	"testing"

	"wildcam/internal/classifier"
	"wildcam/internal/config"
)

func TestSelect(t *testing.T) {
	animals := classifier.NewLabelSet(config.DefaultAnimalLabels)

	tests := []struct {
		name       string
		detections []classifier.Detection
		want       classifier.Result
	}{
		{
			name:       "highest animal wins",
			detections: []classifier.Detection{{Label: "dog", Confidence: 0.4}, {Label: "cat", Confidence: 0.9}},
			want:       classifier.Result{IsAnimal: true, Label: "Cat", Confidence: 0.9},
		},
		{
			name:       "non animals ignored",
			detections: []classifier.Detection{{Label: "person", Confidence: 0.99}, {Label: "car", Confidence: 0.8}},
			want:       classifier.Empty(),
		},
		{
			name:       "no detections",
			detections: nil,
			want:       classifier.Empty(),
		},
		{
			name:       "tie keeps first",
			detections: []classifier.Detection{{Label: "bird", Confidence: 0.7}, {Label: "cat", Confidence: 0.7}},
			want:       classifier.Result{IsAnimal: true, Label: "Bird", Confidence: 0.7},
		},
		{
			name:       "zero confidence never wins",
			detections: []classifier.Detection{{Label: "cat", Confidence: 0}},
			want:       classifier.Empty(),
		},
		{
			name:       "label compare is case insensitive",
			detections: []classifier.Detection{{Label: "Horse", Confidence: 0.55}},
			want:       classifier.Result{IsAnimal: true, Label: "Horse", Confidence: 0.55},
		},
		{
			name:       "animal beats stronger non animal",
			detections: []classifier.Detection{{Label: "person", Confidence: 0.95}, {Label: "dog", Confidence: 0.3}},
			want:       classifier.Result{IsAnimal: true, Label: "Dog", Confidence: 0.3},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classifier.Select(tc.detections, animals)
			if got != tc.want {
				t.Fatalf("Select = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestEmptyResult(t *testing.T) {
	got := classifier.Empty()
	if got.IsAnimal || got.Label != "False Positive" || got.Confidence != 0 {
		t.Fatalf("unexpected empty result: %#v", got)
	}
}

func TestLabelSetIgnoresBlanks(t *testing.T) {
	set := classifier.NewLabelSet([]string{" Cat ", "", "dog"})
	if len(set) != 2 {
		t.Fatalf("expected 2 labels, got %d", len(set))
	}
	if !set.Contains("CAT") || set.Contains("") {
		t.Fatalf("unexpected membership: %v", set)
	}
}

func TestSelectCapitalizesOnlyFirstWord(t *testing.T) {
	animals := classifier.NewLabelSet([]string{"teddy bear"})
	got := classifier.Select([]classifier.Detection{{Label: "TEDDY BEAR", Confidence: 0.6}}, animals)
	if got.Label != "Teddy bear" {
		t.Fatalf("label = %q, want %q", got.Label, "Teddy bear")
	}
}

func TestSelectConcurrentCallers(t *testing.T) {
	animals := classifier.NewLabelSet([]string{"cat", "dog"})
	detections := []classifier.Detection{{Label: "cat", Confidence: 0.9}}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if got := classifier.Select(detections, animals); got.Label != "Cat" {
					t.Errorf("label = %q, want Cat", got.Label)
					return
				}
			}
		}()
	}
	wg.Wait()
}
