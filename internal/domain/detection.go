package domain

import "math"

// 五个检测维度的名称，顺序固定
const (
	DimComments      = "comments"
	DimStructure     = "structure"
	DimNaming        = "naming"
	DimErrorHandling = "error_handling"
	DimMetadata      = "metadata"
)

// DimensionNames 是维度的固定输出顺序
var DimensionNames = []string{DimComments, DimStructure, DimNaming, DimErrorHandling, DimMetadata}

// DimensionScore 是单个维度的评分
type DimensionScore struct {
	Dimension    string  `json:"dimension"`
	Evidence     string  `json:"evidence"`     // 人类可读的依据，例如 "Comment density: 12/100 lines"
	Contribution float64 `json:"contribution"` // [0,1]，越高越像 AI
}

// 三档评估标签
const (
	AssessmentHuman = "Likely Human-written"
	AssessmentMixed = "Mixed/Uncertain"
	AssessmentAI    = "Likely AI-generated"
)

// 档位阈值：每档对下界闭区间，0.3 和 0.7 归上一档
const (
	BandMixedThreshold = 0.3
	BandAIThreshold    = 0.7
)

// 从高到低排序的 (阈值, 标签) 查找表，避免散落的魔法数字比较
var assessmentBands = []struct {
	threshold float64
	label     string
}{
	{BandAIThreshold, AssessmentAI},
	{BandMixedThreshold, AssessmentMixed},
	{0.0, AssessmentHuman},
}

// AssessmentFor 把聚合分数映射到评估档位
func AssessmentFor(score float64) string {
	for _, band := range assessmentBands {
		if score >= band.threshold {
			return band.label
		}
	}
	return AssessmentHuman
}

// ConfidenceFor 由分数离中点的距离推导置信度
// 分数贴近 0.5 时置信度低，这反映的是真实的模糊性，不是缺陷
func ConfidenceFor(score float64) float64 {
	return Clamp01(2 * math.Abs(score-0.5))
}

// Clamp01 把数值收敛到 [0,1]
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DetectionResult 是检测器的输出，构造后不再修改，只活在单次请求里
// Score 永远是五个维度贡献的固定加权组合，不允许被单独覆盖
type DetectionResult struct {
	Score      float64          `json:"score"`
	Assessment string           `json:"assessment"`
	Confidence float64          `json:"confidence"`
	Dimensions []DimensionScore `json:"dimensions"` // 固定顺序的 5 项
}

// EvidenceFor 按维度名取依据文本，拼接口响应时用
func (r *DetectionResult) EvidenceFor(dimension string) string {
	for _, d := range r.Dimensions {
		if d.Dimension == dimension {
			return d.Evidence
		}
	}
	return ""
}

// DetectionDetails 是对外响应里的明细块
// 字段名和顺序是跟现有消费方的兼容性契约，动了就会破坏下游
type DetectionDetails struct {
	Assessment    string  `json:"assessment"`
	Confidence    float64 `json:"confidence"`
	Comments      string  `json:"comments"`
	Structure     string  `json:"structure"`
	Naming        string  `json:"naming"`
	ErrorHandling string  `json:"error_handling"`
	Metadata      string  `json:"metadata"`
}

// DetectionPayload 是对外响应字段的完整形状
type DetectionPayload struct {
	AIDetectionScore   float64          `json:"ai_detection_score"`
	AIDetectionDetails DetectionDetails `json:"ai_detection_details"`
}

// ToPayload 把检测结果序列化成响应形状
func (r *DetectionResult) ToPayload() DetectionPayload {
	return DetectionPayload{
		AIDetectionScore: r.Score,
		AIDetectionDetails: DetectionDetails{
			Assessment:    r.Assessment,
			Confidence:    r.Confidence,
			Comments:      r.EvidenceFor(DimComments),
			Structure:     r.EvidenceFor(DimStructure),
			Naming:        r.EvidenceFor(DimNaming),
			ErrorHandling: r.EvidenceFor(DimErrorHandling),
			Metadata:      r.EvidenceFor(DimMetadata),
		},
	}
}

// ResultFromPayload 从响应形状还原检测结果
// 往返之后分数、档位、置信度必须保持不变（维度贡献值不进响应，不参与往返）
func ResultFromPayload(p DetectionPayload) *DetectionResult {
	evidences := map[string]string{
		DimComments:      p.AIDetectionDetails.Comments,
		DimStructure:     p.AIDetectionDetails.Structure,
		DimNaming:        p.AIDetectionDetails.Naming,
		DimErrorHandling: p.AIDetectionDetails.ErrorHandling,
		DimMetadata:      p.AIDetectionDetails.Metadata,
	}
	dims := make([]DimensionScore, 0, len(DimensionNames))
	for _, name := range DimensionNames {
		dims = append(dims, DimensionScore{Dimension: name, Evidence: evidences[name]})
	}
	return &DetectionResult{
		Score:      p.AIDetectionScore,
		Assessment: p.AIDetectionDetails.Assessment,
		Confidence: p.AIDetectionDetails.Confidence,
		Dimensions: dims,
	}
}
