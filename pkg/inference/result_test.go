package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestDiagnoseResult_Reply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		result DiagnoseResult
		want   string
	}{
		{
			name:   "not a plant image",
			result: DiagnoseResult{Kind: NotAPlantImage, Message: "Please upload correct image for 'Wheat'."},
			want:   "Please upload correct image for 'Wheat'.",
		},
		{
			name:   "healthy without confidence",
			result: DiagnoseResult{Kind: Healthy, Message: "Your Rice (Rice) appears healthy!"},
			want:   "Your Rice (Rice) appears healthy!",
		},
		{
			name:   "healthy with confidence",
			result: DiagnoseResult{Kind: Healthy, Message: "Your Rice (Rice) appears healthy!", Confidence: ptr(0.5)},
			want:   "Your Rice (Rice) appears healthy!\nConfidence: 50.00%",
		},
		{
			name:   "diseased",
			result: DiagnoseResult{Kind: Diseased, Disease: "Late Blight", Confidence: ptr(0.87654), Advice: "Use resistant varieties."},
			want:   "Disease: Late Blight\nConfidence: 87.65%\nAdvice: Use resistant varieties.",
		},
		{
			name:   "diseased without confidence",
			result: DiagnoseResult{Kind: Diseased, Disease: "Leaf Blast", Advice: "Manage water."},
			want:   "Disease: Leaf Blast\nConfidence: unknown\nAdvice: Manage water.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.result.Reply())
		})
	}
}

func TestDiagnosisKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "healthy", Healthy.String())
	assert.Equal(t, "diseased", Diseased.String())
	assert.Equal(t, "not_a_plant_image", NotAPlantImage.String())
	assert.Equal(t, "DiagnosisKind(9)", DiagnosisKind(9).String())
}
