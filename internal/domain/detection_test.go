package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessmentFor(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{"零分是人写", 0.0, AssessmentHuman},
		{"贴着档位线下沿还是人写", 0.299999, AssessmentHuman},
		{"0.3整归上一档", 0.3, AssessmentMixed},
		{"中间区间", 0.5, AssessmentMixed},
		{"贴着AI档下沿还是混合", 0.699999, AssessmentMixed},
		{"0.7整归AI档", 0.7, AssessmentAI},
		{"满分是AI", 1.0, AssessmentAI},
		{"负数兜底到人写", -0.1, AssessmentHuman},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AssessmentFor(tt.score))
		})
	}
}

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected float64
	}{
		{"中点最模糊", 0.5, 0.0},
		{"零分最笃定", 0.0, 1.0},
		{"满分最笃定", 1.0, 1.0},
		{"离中点四分之一", 0.75, 0.5},
		{"对称的另一侧", 0.25, 0.5},
		{"越界分数收敛到1", 1.2, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ConfidenceFor(tt.score), 1e-9)
		})
	}
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.42, Clamp01(0.42))
}

func newFixtureResult() *DetectionResult {
	return &DetectionResult{
		Score:      0.75,
		Assessment: AssessmentAI,
		Confidence: 0.5,
		Dimensions: []DimensionScore{
			{Dimension: DimComments, Evidence: "c", Contribution: 0.8},
			{Dimension: DimStructure, Evidence: "s", Contribution: 0.7},
			{Dimension: DimNaming, Evidence: "n", Contribution: 0.75},
			{Dimension: DimErrorHandling, Evidence: "e", Contribution: 0.7},
			{Dimension: DimMetadata, Evidence: "m", Contribution: 0.8},
		},
	}
}

func TestDetectionResult_EvidenceFor(t *testing.T) {
	result := newFixtureResult()
	assert.Equal(t, "c", result.EvidenceFor(DimComments))
	assert.Equal(t, "e", result.EvidenceFor(DimErrorHandling))
	assert.Equal(t, "", result.EvidenceFor("unknown"))
}

func TestDetectionPayload_JSONShape(t *testing.T) {
	// 字段名和顺序是跟消费方的兼容性契约，逐字节盯住
	data, err := json.Marshal(newFixtureResult().ToPayload())
	assert.NoError(t, err)

	expected := `{"ai_detection_score":0.75,"ai_detection_details":{"assessment":"Likely AI-generated","confidence":0.5,"comments":"c","structure":"s","naming":"n","error_handling":"e","metadata":"m"}}`
	assert.Equal(t, expected, string(data))
}

func TestDetectionPayload_RoundTrip(t *testing.T) {
	original := newFixtureResult()

	data, err := json.Marshal(original.ToPayload())
	assert.NoError(t, err)

	var payload DetectionPayload
	assert.NoError(t, json.Unmarshal(data, &payload))

	restored := ResultFromPayload(payload)
	assert.Equal(t, original.Score, restored.Score)
	assert.Equal(t, original.Assessment, restored.Assessment)
	assert.Equal(t, original.Confidence, restored.Confidence)

	// 维度顺序和依据文本往返不变（贡献值不进响应，不参与往返）
	assert.Len(t, restored.Dimensions, 5)
	for i, name := range DimensionNames {
		assert.Equal(t, name, restored.Dimensions[i].Dimension)
		assert.Equal(t, original.EvidenceFor(name), restored.Dimensions[i].Evidence)
	}
}
