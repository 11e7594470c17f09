package inference

import (
	"fmt"
	"strings"
)

// ConverseResult is the reply of the text-chat service.
type ConverseResult struct {
	Response string `json:"response"`
}

// DiagnosisKind tags the variant held by a DiagnoseResult.
type DiagnosisKind int

const (
	// NotAPlantImage means the service could not confirm the image shows the
	// named plant (or does not know the plant at all).
	NotAPlantImage DiagnosisKind = iota
	Healthy
	Diseased
)

func (k DiagnosisKind) String() string {
	switch k {
	case NotAPlantImage:
		return "not_a_plant_image"
	case Healthy:
		return "healthy"
	case Diseased:
		return "diseased"
	default:
		return fmt.Sprintf("DiagnosisKind(%d)", int(k))
	}
}

// DiagnoseResult is the reply of the image-diagnosis service.
//
// Message is set for NotAPlantImage and Healthy. Disease and Advice are set
// for Diseased. Confidence is optional for Healthy and expected for Diseased.
type DiagnoseResult struct {
	Kind       DiagnosisKind
	Message    string
	Disease    string
	Confidence *float64
	Advice     string
}

// Reply renders the result as the assistant's chat text.
func (r DiagnoseResult) Reply() string {
	switch r.Kind {
	case Healthy:
		if r.Confidence == nil {
			return r.Message
		}
		return r.Message + "\nConfidence: " + formatConfidence(*r.Confidence)
	case Diseased:
		confidence := "unknown"
		if r.Confidence != nil {
			confidence = formatConfidence(*r.Confidence)
		}
		return fmt.Sprintf("Disease: %s\nConfidence: %s\nAdvice: %s", r.Disease, confidence, r.Advice)
	default:
		return r.Message
	}
}

// formatConfidence renders a 0..1 score as a percentage with two decimals.
func formatConfidence(c float64) string {
	return fmt.Sprintf("%.2f%%", c*100)
}

type converseRequest struct {
	Prompt string `json:"prompt"`
}

type diagnoseResponse struct {
	Confirmation *bool    `json:"confirmation"`
	Healthy      *bool    `json:"healthy"`
	Message      string   `json:"message"`
	Disease      string   `json:"disease"`
	Confidence   *float64 `json:"confidence"`
	Advice       string   `json:"advice"`
}

func (d diagnoseResponse) result() (DiagnoseResult, error) {
	switch {
	case d.Confirmation != nil && !*d.Confirmation:
		return DiagnoseResult{Kind: NotAPlantImage, Message: d.Message}, nil
	case d.Healthy != nil && *d.Healthy:
		return DiagnoseResult{Kind: Healthy, Message: d.Message, Confidence: d.Confidence}, nil
	case d.Healthy != nil || strings.TrimSpace(d.Disease) != "":
		return DiagnoseResult{
			Kind:       Diseased,
			Disease:    d.Disease,
			Confidence: d.Confidence,
			Advice:     d.Advice,
		}, nil
	default:
		return DiagnoseResult{}, fmt.Errorf("%w: diagnosis response has no recognised variant", ErrServerRejected)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}
